package broadcast

import (
	"context"

	"github.com/dmitrijs2005/sketchhub/internal/logging"
)

// Publisher is what services depend on to announce changes.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent)
}

// Forwarder ships locally published envelopes to other server instances.
type Forwarder interface {
	Forward(ctx context.Context, env Envelope)
}

// Notifier encodes events, delivers them to the local hub and, when a
// forwarder is configured, to the other instances.
type Notifier struct {
	hub       *Hub
	forwarder Forwarder
	logger    logging.Logger
}

func NewNotifier(hub *Hub, forwarder Forwarder, logger logging.Logger) *Notifier {
	return &Notifier{hub: hub, forwarder: forwarder, logger: logger.With("module", "notifier")}
}

func (n *Notifier) Publish(ctx context.Context, ev ChangeEvent) {
	env, err := Encode(ev)
	if err != nil {
		n.logger.Error(ctx, "encode event", "error", err)
		return
	}

	delivered := n.hub.Deliver(ctx, env)
	n.logger.Debug(ctx, "event published", "channel", env.Channel, "event", env.Event, "delivered", delivered)

	if n.forwarder != nil {
		n.forwarder.Forward(ctx, env)
	}
}
