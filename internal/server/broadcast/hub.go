package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
)

// Subscription receives encoded envelopes for the channels it joined.
// C is closed by Hub.Unsubscribe.
type Subscription struct {
	C        <-chan []byte
	ch       chan []byte
	channels []string
}

func (s *Subscription) Channels() []string { return s.channels }

// Hub fans envelopes out to in-process subscribers. Sends never block: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	buffer      int
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewHub(buffer int, logger logging.Logger, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
		logger:      logger.With("module", "hub"),
		metrics:     m,
	}
}

func (h *Hub) Subscribe(channels ...string) *Subscription {
	ch := make(chan []byte, h.buffer)
	sub := &Subscription{C: ch, ch: ch, channels: channels}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range channels {
		set, ok := h.subscribers[name]
		if !ok {
			set = make(map[*Subscription]struct{})
			h.subscribers[name] = set
		}
		set[sub] = struct{}{}
	}
	return sub
}

// Unsubscribe removes sub from every channel and closes its queue. Calling
// it twice is safe.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	found := false
	for _, name := range sub.channels {
		set := h.subscribers[name]
		if _, ok := set[sub]; ok {
			found = true
			delete(set, sub)
		}
		if len(set) == 0 {
			delete(h.subscribers, name)
		}
	}
	if found {
		close(sub.ch)
	}
}

// Subscribers returns how many subscribers listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[channel])
}

// Deliver sends env to every subscriber of its channel and returns how many
// received it.
func (h *Hub) Deliver(ctx context.Context, env Envelope) int {
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error(ctx, "encode envelope", "channel", env.Channel, "event", env.Event, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subscribers[env.Channel] {
		select {
		case sub.ch <- frame:
			delivered++
		default:
			h.logger.Warn(ctx, "subscriber buffer full, event dropped", "channel", env.Channel, "event", env.Event)
			if h.metrics != nil {
				h.metrics.BroadcastDroppedTotal.WithLabelValues(env.Channel).Inc()
			}
		}
	}
	if h.metrics != nil && delivered > 0 {
		h.metrics.BroadcastPublishedTotal.WithLabelValues(env.Channel, env.Event).Add(float64(delivered))
	}
	return delivered
}
