package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(l *Listener) []string {
	var out []string
	for {
		select {
		case m, ok := <-l.C:
			if !ok {
				return out
			}
			out = append(out, string(m))
		default:
			return out
		}
	}
}

func TestPublishFansOut(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("g1", "ana", []byte("snap-a"))
	b := h.Subscribe("g1", "bo", nil)
	other := h.Subscribe("g2", "cy", nil)

	h.Publish("g1", []byte("roll"))
	assert.Equal(t, []string{"snap-a", "roll"}, drain(a))
	assert.Equal(t, []string{"roll"}, drain(b))
	assert.Empty(t, drain(other))
	assert.Equal(t, 2, h.Count("g1"))
}

func TestResubscribeReplaces(t *testing.T) {
	h := NewHub()
	old := h.Subscribe("g1", "ana", nil)
	fresh := h.Subscribe("g1", "ana", nil)

	_, open := <-old.C
	assert.False(t, open)
	assert.Equal(t, 1, h.Count("g1"))

	h.Unsubscribe(old) // stale handle must not remove the new one
	assert.Equal(t, 1, h.Count("g1"))
	h.Unsubscribe(fresh)
	h.Unsubscribe(fresh)
	assert.Zero(t, h.Count("g1"))
}

func TestSlowListenerDropped(t *testing.T) {
	h := NewHub()
	slow := h.Subscribe("g1", "ana", nil)
	for i := 0; i < bufferSize+1; i++ {
		h.Publish("g1", []byte("x"))
	}
	assert.Zero(t, h.Count("g1"))
	got := drain(slow)
	require.Len(t, got, bufferSize)
}

func TestCloseEndsEveryListener(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("g1", "ana", nil)
	b := h.Subscribe("g1", "bo", nil)
	h.Publish("g1", []byte(`{"winner":"ana"}`))
	h.Close("g1")

	assert.Equal(t, []string{`{"winner":"ana"}`}, drain(a))
	assert.Equal(t, []string{`{"winner":"ana"}`}, drain(b))
	_, open := <-a.C
	assert.False(t, open)
	assert.Zero(t, h.Count("g1"))
	h.Publish("g1", []byte("late"))
}
