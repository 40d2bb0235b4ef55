package subscriber

import (
	"errors"
	"fmt"
	"sync"
)

var ErrInvalidTransition = errors.New("invalid subscription transition")

// Status is the lifecycle of one subscriber.
//
//	Disconnected -> Subscribing -> Subscribed -> Disconnected (drop) -> Subscribing ...
//	any -> Unsubscribed (terminal)
type Status int

const (
	Disconnected Status = iota
	Subscribing
	Subscribed
	Unsubscribed
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Subscribing:
		return "subscribing"
	case Subscribed:
		return "subscribed"
	case Unsubscribed:
		return "unsubscribed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var transitions = map[Status][]Status{
	Disconnected: {Subscribing, Unsubscribed},
	Subscribing:  {Subscribed, Disconnected, Unsubscribed},
	Subscribed:   {Disconnected, Unsubscribed},
}

type machine struct {
	mu       sync.Mutex
	status   Status
	onChange func(Status)
}

func (m *machine) current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *machine) transition(to Status) error {
	m.mu.Lock()
	from := m.status
	allowed := false
	for _, s := range transitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.status = to
	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange(to)
	}
	return nil
}
