package likestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier(nil)
	a, cancelA := n.Subscribe(1)
	b, cancelB := n.Subscribe(1)
	defer cancelB()

	ev := Event{Kind: EventLike, LikeEvent: domain.LikeEvent{CardPath: "card/1.png", IsLiked: true, NewCount: 1}}
	n.Publish(ev)
	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)

	cancelA()
	cancelA()
	_, ok := <-a
	assert.False(t, ok)

	n.Publish(ev)
	assert.Equal(t, ev, <-b)
}

func TestNotifierNeverBlocks(t *testing.T) {
	n := NewNotifier(nil)
	ch, cancel := n.Subscribe(1)
	defer cancel()

	for i := range 10 {
		n.Publish(Event{Kind: EventLike, LikeEvent: domain.LikeEvent{NewCount: int64(i)}})
	}
	assert.Len(t, ch, 1)
	assert.Equal(t, int64(0), (<-ch).NewCount)
}
