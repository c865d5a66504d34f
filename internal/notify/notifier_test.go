package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	queues   []string
	messages []interface{}
	err      error
}

func (f *fakePublisher) Publish(queueName string, message interface{}) error {
	f.queues = append(f.queues, queueName)
	f.messages = append(f.messages, message)
	return f.err
}

func TestQueueNotify(t *testing.T) {
	t.Run("publishes event envelope to the configured queue", func(t *testing.T) {
		publisher := &fakePublisher{}
		q := NewQueue(publisher, "trade_events")

		q.Notify("position_opened", map[string]interface{}{"token": "Mint111"})

		require.Len(t, publisher.messages, 1)
		assert.Equal(t, "trade_events", publisher.queues[0])

		msg, ok := publisher.messages[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "position_opened", msg["event"])
		payload, ok := msg["payload"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Mint111", payload["token"])
	})

	t.Run("publish failure is swallowed", func(t *testing.T) {
		publisher := &fakePublisher{err: errors.New("channel closed")}
		q := NewQueue(publisher, "trade_events")

		assert.NotPanics(t, func() {
			q.Notify("position_closed", nil)
		})
	})
}

func TestMultiFansOut(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	m := Multi{first, second}

	m.Notify("position_opened", map[string]interface{}{"token": "Mint111"})

	assert.Equal(t, []string{"position_opened"}, first.events)
	assert.Equal(t, []string{"position_opened"}, second.events)
}

type recordingSink struct {
	events []string
}

func (r *recordingSink) Notify(event string, _ map[string]interface{}) {
	r.events = append(r.events, event)
}

func TestTelegramNotifyAsync(t *testing.T) {
	received := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg map[string]string
		json.Unmarshal(body, &msg)
		received <- msg
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg := NewTelegram("token", "chat-42")
	tg.endpoint = server.URL

	tg.Notify("take_profit", map[string]interface{}{"token": "Mint111", "pnl": 0.05})

	select {
	case msg := <-received:
		assert.Equal(t, "chat-42", msg["chat_id"])
		assert.Contains(t, msg["text"], "[take_profit]")
		assert.Contains(t, msg["text"], "token: Mint111")
	case <-time.After(2 * time.Second):
		t.Fatal("telegram message never delivered")
	}
}

func TestFormatEventSortsKeys(t *testing.T) {
	text := formatEvent("stop_loss", map[string]interface{}{
		"token": "Mint111",
		"pnl":   -0.01,
		"exit":  0.0004,
	})

	assert.Equal(t, "[stop_loss]\nexit: 0.0004\npnl: -0.01\ntoken: Mint111", text)
}
