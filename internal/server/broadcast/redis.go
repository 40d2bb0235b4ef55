package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	relayRetryBase = time.Second
	relayRetryMax  = 30 * time.Second
)

var errRelayClosed = errors.New("subscription closed")

// RedisClient is the part of *redis.Client the relay uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type relayMessage struct {
	Origin   string   `json:"origin"`
	Envelope Envelope `json:"envelope"`
}

// RedisRelay mirrors envelopes between server instances over Redis pub/sub.
// Messages carry the publishing instance id so an instance never re-delivers
// its own events.
type RedisRelay struct {
	client     RedisClient
	hub        *Hub
	prefix     string
	instanceID string
	breaker    *gobreaker.CircuitBreaker
	logger     logging.Logger
	metrics    *metrics.Metrics
}

func NewRedisRelay(client RedisClient, hub *Hub, prefix string, logger logging.Logger, m *metrics.Metrics) *RedisRelay {
	logger = logger.With("module", "relay")
	return &RedisRelay{
		client:     client,
		hub:        hub,
		prefix:     prefix,
		instanceID: uuid.NewString(),
		logger:     logger,
		metrics:    m,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-relay",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn(context.Background(), "circuit breaker state changed",
					"circuit_breaker", name, "from_state", from.String(), "to_state", to.String())
			},
		}),
	}
}

func (r *RedisRelay) InstanceID() string { return r.instanceID }

func (r *RedisRelay) countError(op string) {
	if r.metrics != nil {
		r.metrics.RelayErrorsTotal.WithLabelValues(op).Inc()
	}
}

// Forward publishes env for the other instances. Failures are logged and
// dropped.
func (r *RedisRelay) Forward(ctx context.Context, env Envelope) {
	payload, err := json.Marshal(relayMessage{Origin: r.instanceID, Envelope: env})
	if err != nil {
		r.logger.Error(ctx, "encode relay message", "error", err)
		r.countError("encode")
		return
	}

	_, err = r.breaker.Execute(func() (any, error) {
		return nil, r.client.Publish(ctx, r.prefix+env.Channel, payload).Err()
	})
	if err != nil {
		r.logger.Warn(ctx, "relay publish failed", "channel", env.Channel, "event", env.Event, "error", err)
		r.countError("publish")
	}
}

// handle injects a relayed message into the local hub unless this instance
// sent it. It reports whether the message was delivered.
func (r *RedisRelay) handle(ctx context.Context, payload string) bool {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn(ctx, "bad relay message", "error", err)
		r.countError("decode")
		return false
	}
	if msg.Origin == r.instanceID {
		return false
	}
	r.hub.Deliver(ctx, msg.Envelope)
	return true
}

// Run subscribes to every broadcast channel and pumps messages from other
// instances into the hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, channels []string) error {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = r.prefix + c
	}

	sub := r.client.Subscribe(ctx, names...)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	r.logger.Info(ctx, "relay subscribed", "channels", names, "instance_id", r.instanceID)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			r.handle(ctx, m.Payload)
		}
	}
}

// RunWithRetry keeps the relay subscribed until ctx is cancelled. A failed
// or dropped subscription is retried after a doubling delay, so a Redis
// outage only pauses cross-instance delivery.
func (r *RedisRelay) RunWithRetry(ctx context.Context, channels []string) {
	retryUntilDone(ctx, r.logger, relayRetryBase, relayRetryMax, func(ctx context.Context) error {
		return r.Run(ctx, channels)
	})
}

func retryUntilDone(ctx context.Context, logger logging.Logger, base, maxDelay time.Duration, fn func(context.Context) error) {
	delay := base
	for {
		started := time.Now()
		err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errRelayClosed
		}
		// a long healthy run starts the schedule over
		if time.Since(started) > maxDelay {
			delay = base
		}

		logger.Warn(ctx, "relay stopped, retrying", "error", err, "delay", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		delay = min(delay*2, maxDelay)
	}
}
