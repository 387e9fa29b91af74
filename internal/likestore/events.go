package likestore

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

type EventKind string

const (
	// EventLike carries the current like state of a card: optimistic, corrected or reverted.
	EventLike EventKind = "like"
	// EventLimit is published when a like is rejected by the daily limit.
	EventLimit EventKind = "limit"
)

type Event struct {
	Kind EventKind
	domain.LikeEvent
}

// Notifier is an in-process fan-out bus. Publish never blocks; a subscriber
// whose buffer is full misses the event.
type Notifier struct {
	logger logrus.FieldLogger

	mu   sync.RWMutex
	next uint64
	subs map[uint64]chan Event
}

func NewNotifier(logger logrus.FieldLogger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{
		logger: logger,
		subs:   make(map[uint64]chan Event),
	}
}

// Subscribe returns the event channel and a cancel func that closes it.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 0))

	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = ch
	n.mu.Unlock()

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
}

func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for id, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			n.logger.WithFields(logrus.Fields{
				"subscriber": id,
				"cardPath":   ev.CardPath,
			}).Debug("like event dropped, subscriber is full")
		}
	}
}
