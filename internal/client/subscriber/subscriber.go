package subscriber

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/gorilla/websocket"
)

type Options struct {
	// URL of the broadcast endpoint, e.g. ws://host/api/broadcasting/ws.
	URL      string
	Channels []string
	// ReconnectInterval is the pause between connection attempts.
	ReconnectInterval time.Duration
	Dialer            *websocket.Dialer
	Logger            logging.Logger

	// OnSubscribed runs each time every channel is acknowledged, including
	// after a reconnect. Events missed while disconnected are not replayed,
	// so this is where the caller re-fetches state.
	OnSubscribed func(ctx context.Context) error
	// OnEvent receives every decoded change event.
	OnEvent func(Event)
	// OnStatus observes state machine transitions.
	OnStatus func(Status)
}

// Subscriber reads the broadcast stream, reconnecting after drops until
// its context is cancelled.
type Subscriber struct {
	opts    Options
	logger  logging.Logger
	machine *machine
}

func New(opts Options) *Subscriber {
	if len(opts.Channels) == 0 {
		opts.Channels = common.Channels
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 3 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Subscriber{
		opts:    opts,
		logger:  logger.With("module", "subscriber"),
		machine: &machine{status: Disconnected, onChange: opts.OnStatus},
	}
}

func (s *Subscriber) Status() Status { return s.machine.current() }

// Run blocks until ctx is done. It always ends in Unsubscribed.
func (s *Subscriber) Run(ctx context.Context) error {
	defer func() { _ = s.machine.transition(Unsubscribed) }()

	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn(ctx, "broadcast connection lost", "error", err)
		if err := s.machine.transition(Disconnected); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.opts.ReconnectInterval):
		}
	}
}

func (s *Subscriber) endpoint() (string, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for _, ch := range s.opts.Channels {
		q.Add("channel", ch)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Subscriber) session(ctx context.Context) error {
	if err := s.machine.transition(Subscribing); err != nil {
		return err
	}

	endpoint, err := s.endpoint()
	if err != nil {
		return err
	}
	conn, _, err := s.opts.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	pending := make(map[string]struct{}, len(s.opts.Channels))
	for _, ch := range s.opts.Channels {
		pending[ch] = struct{}{}
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := Decode(frame)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				s.logger.Debug(ctx, "skipping frame", "error", err)
				continue
			}
			s.logger.Warn(ctx, "bad frame", "error", err)
			continue
		}

		if ack, ok := ev.(SubscribeAck); ok {
			delete(pending, ack.Name)
			if len(pending) == 0 && s.machine.current() == Subscribing {
				if err := s.machine.transition(Subscribed); err != nil {
					return err
				}
				s.logger.Info(ctx, "subscribed", "channels", s.opts.Channels)
				if s.opts.OnSubscribed != nil {
					if err := s.opts.OnSubscribed(ctx); err != nil {
						s.logger.Warn(ctx, "resync failed", "error", err)
					}
				}
			}
			continue
		}

		if s.opts.OnEvent != nil {
			s.opts.OnEvent(ev)
		}
	}
}
