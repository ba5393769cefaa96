package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversAndUnsubscribes(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(4)
	require.Equal(t, 1, b.Subscribers())

	b.Publish(Event{Type: TypeRunStarted, Platform: "shopee"})
	got := <-ch
	assert.Equal(t, TypeRunStarted, got.Type)
	assert.False(t, got.At.IsZero())

	cancel()
	cancel()
	assert.Equal(t, 0, b.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	defer cancel()
	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})
	assert.Equal(t, "a", (<-ch).Type)
	assert.Len(t, ch, 0)
}
