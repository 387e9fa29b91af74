package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/metrics"
)

const (
	eventQueueSize     = 1024
	eventBatchSize     = 100
	eventFlushInterval = 1 * time.Second
	shutdownFlushLimit = 5 * time.Second
)

type likeEventWorker struct {
	Cache         domain.CardLikeCache
	ch            chan domain.LikeEvent
	flushInterval time.Duration
	done          chan struct{}
}

var _ domain.LikeEventWorker = (*likeEventWorker)(nil)

func NewLikeEventWorker(cache domain.CardLikeCache) *likeEventWorker {
	return &likeEventWorker{
		Cache:         cache,
		ch:            make(chan domain.LikeEvent, eventQueueSize),
		flushInterval: eventFlushInterval,
		done:          make(chan struct{}),
	}
}

// Send queues the event; it never blocks the request path.
func (s *likeEventWorker) Send(event domain.LikeEvent) {
	select {
	case s.ch <- event:
	default:
		metrics.EventsDropped.Inc()
		logrus.Info("LikeEventWorker's channel is full, event dropped")
	}
}

// Done is closed once Start has flushed the remaining events and returned.
func (s *likeEventWorker) Done() <-chan struct{} {
	return s.done
}

func (s *likeEventWorker) Start(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.LikeEvent, 0, eventBatchSize)
	for {
		select {
		case ev := <-s.ch:
			batch = append(batch, ev)
			if len(batch) == eventBatchSize {
				s.flush(ctx, batch)
				batch = make([]domain.LikeEvent, 0, eventBatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = make([]domain.LikeEvent, 0, eventBatchSize)
			}
		case <-ctx.Done():
			logrus.Info("shutting down LikeEventWorker, flushing remain events...")
			// 排空队列中剩余的事件
			for drained := false; !drained; {
				select {
				case ev := <-s.ch:
					batch = append(batch, ev)
				default:
					drained = true
				}
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushLimit)
			s.flush(flushCtx, batch)
			cancel()
			return
		}
	}
}

type eventKey struct {
	cardPath, sessionID string
}

// collapse keeps the last event per (card, session) and sums score deltas per card.
func collapse(batch []domain.LikeEvent) domain.LikeEventBatch {
	var res domain.LikeEventBatch

	deltaIdx := make(map[string]int)
	eventIdx := make(map[eventKey]int)
	for _, ev := range batch {
		delta := 1.0
		if !ev.IsLiked {
			delta = -1
		}
		if i, ok := deltaIdx[ev.CardPath]; ok {
			res.Deltas[i].Score += delta
		} else {
			deltaIdx[ev.CardPath] = len(res.Deltas)
			res.Deltas = append(res.Deltas, domain.RankEntry{CardPath: ev.CardPath, Score: delta})
		}

		key := eventKey{cardPath: ev.CardPath, sessionID: ev.SessionID}
		if i, ok := eventIdx[key]; ok {
			res.Events[i] = ev
		} else {
			eventIdx[key] = len(res.Events)
			res.Events = append(res.Events, ev)
		}
	}

	// like 和 unlike 互相抵消的卡片不需要写入
	deltas := res.Deltas[:0]
	for _, d := range res.Deltas {
		if d.Score != 0 {
			deltas = append(deltas, d)
		}
	}
	res.Deltas = deltas
	return res
}

func (s *likeEventWorker) flush(ctx context.Context, batch []domain.LikeEvent) {
	if len(batch) == 0 {
		return
	}
	changes := collapse(batch)
	if err := s.Cache.ApplyLikeEvents(ctx, changes); err != nil {
		logrus.Errorf("failed to apply %d like events: %v", len(batch), err)
		return
	}
	metrics.EventsPublished.Add(float64(len(changes.Events)))
}
