package solana

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNoEndpoints is returned when the ranker was built with an empty list.
var ErrNoEndpoints = errors.New("no rpc endpoints configured")

// EndpointStats holds rolling health state for one RPC endpoint.
type EndpointStats struct {
	URL         string        `json:"url"`
	Priority    int           `json:"priority"`
	Healthy     bool          `json:"healthy"`
	AvgLatency  time.Duration `json:"avg_latency"`
	LastLatency time.Duration `json:"last_latency"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	LastChecked time.Time     `json:"last_checked"`
	LastError   string        `json:"last_error,omitempty"`
}

// EndpointRanker races getHealth probes across the configured endpoints and
// keeps a rolling latency average per endpoint. FastestEndpoint returns the
// healthiest endpoint by latency; when every probe fails it falls back to the
// configured priority order rather than refusing to answer.
type EndpointRanker struct {
	mu           sync.RWMutex
	stats        map[string]*EndpointStats
	order        []string
	probeTimeout time.Duration
}

// NewEndpointRanker builds a ranker over urls. Priority follows list order,
// first entry wins ties and all-fail fallback.
func NewEndpointRanker(urls []string, probeTimeout time.Duration) *EndpointRanker {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	r := &EndpointRanker{
		stats:        make(map[string]*EndpointStats, len(urls)),
		order:        append([]string(nil), urls...),
		probeTimeout: probeTimeout,
	}
	for i, u := range urls {
		r.stats[u] = &EndpointStats{URL: u, Priority: i}
	}
	return r
}

// Refresh probes every endpoint concurrently and folds the results into the
// rolling stats. Returns the number of healthy endpoints observed.
func (r *EndpointRanker) Refresh(ctx context.Context) int {
	if len(r.order) == 0 {
		return 0
	}

	results := ProbeEndpoints(ctx, r.order, r.probeTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	healthy := 0
	for _, res := range results {
		st, ok := r.stats[res.URL]
		if !ok {
			continue
		}
		st.LastChecked = time.Now()
		st.Healthy = res.OK
		st.LastLatency = res.Latency
		if res.OK {
			healthy++
			st.Successes++
			st.LastError = ""
			// exponential moving average, alpha 0.3
			if st.AvgLatency == 0 {
				st.AvgLatency = res.Latency
			} else {
				st.AvgLatency = time.Duration(float64(st.AvgLatency)*0.7 + float64(res.Latency)*0.3)
			}
		} else {
			st.Failures++
			st.LastError = res.Error
		}
	}

	log.WithFields(log.Fields{
		"endpoints": len(r.order),
		"healthy":   healthy,
	}).Debug("rpc endpoint probe cycle finished")

	return healthy
}

// FastestEndpoint returns the healthy endpoint with the lowest rolling
// latency. When no endpoint is healthy it logs a warning and returns the
// highest-priority endpoint so callers always have something to try.
func (r *EndpointRanker) FastestEndpoint() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "", ErrNoEndpoints
	}

	best := ""
	var bestLatency time.Duration
	for _, u := range r.order {
		st := r.stats[u]
		if !st.Healthy {
			continue
		}
		lat := st.AvgLatency
		if lat == 0 {
			lat = st.LastLatency
		}
		if best == "" || lat < bestLatency {
			best = u
			bestLatency = lat
		}
	}

	if best == "" {
		log.WithField("fallback", r.order[0]).Warn("all rpc endpoints unhealthy, using priority fallback")
		return r.order[0], nil
	}
	return best, nil
}

// Snapshot returns a copy of the per-endpoint stats sorted by priority.
func (r *EndpointRanker) Snapshot() []EndpointStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EndpointStats, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, *r.stats[u])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
