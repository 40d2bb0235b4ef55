package subscriber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Lifecycle(t *testing.T) {
	var seen []Status
	m := &machine{status: Disconnected, onChange: func(s Status) { seen = append(seen, s) }}

	require.NoError(t, m.transition(Subscribing))
	require.NoError(t, m.transition(Subscribed))
	require.NoError(t, m.transition(Disconnected))
	require.NoError(t, m.transition(Subscribing))
	require.NoError(t, m.transition(Unsubscribed))

	assert.Equal(t, []Status{Subscribing, Subscribed, Disconnected, Subscribing, Unsubscribed}, seen)
	assert.Equal(t, Unsubscribed, m.current())
}

func TestMachine_RejectsInvalid(t *testing.T) {
	tests := []struct {
		from, to Status
	}{
		{Disconnected, Subscribed},
		{Subscribed, Subscribing},
		{Unsubscribed, Subscribing},
		{Unsubscribed, Disconnected},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			m := &machine{status: tt.from}
			assert.ErrorIs(t, m.transition(tt.to), ErrInvalidTransition)
			assert.Equal(t, tt.from, m.current())
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "subscribed", Subscribed.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
