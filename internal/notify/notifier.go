package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// Notifier pushes trade lifecycle events to an external sink. Delivery is
// best effort: errors are logged and never returned to the caller.
type Notifier interface {
	Notify(event string, payload map[string]interface{})
}

// Noop discards every event.
type Noop struct{}

func (Noop) Notify(string, map[string]interface{}) {}

// Telegram sends events as messages via the Bot API.
type Telegram struct {
	chatID   string
	endpoint string
	client   *http.Client
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		chatID:   chatID,
		endpoint: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers on a goroutine so a slow Bot API never stalls the
// trading path.
func (t *Telegram) Notify(event string, payload map[string]interface{}) {
	go t.send(event, formatEvent(event, payload))
}

func (t *Telegram) send(event, text string) {
	body, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		log.WithError(err).Error("failed to marshal telegram message")
		return
	}

	resp, err := t.client.Post(t.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		log.WithError(err).WithField("event", event).Error("telegram notification failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithFields(log.Fields{
			"event":  event,
			"status": resp.StatusCode,
		}).Error("telegram rejected notification")
	}
}

func formatEvent(event string, payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := bytes.NewBufferString(fmt.Sprintf("[%s]", event))
	for _, k := range keys {
		fmt.Fprintf(buf, "\n%s: %v", k, payload[k])
	}
	return buf.String()
}
