package redis

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

const subscriberBuffer = 64

type likeEventBroker struct {
	client *redis.Client
}

var _ domain.LikeEventSubscriber = (*likeEventBroker)(nil)

func NewLikeEventBroker(client *redis.Client) *likeEventBroker {
	return &likeEventBroker{client: client}
}

// Subscribe relays ChannelLikeEvents until ctx is done.
func (b *likeEventBroker) Subscribe(ctx context.Context) (<-chan domain.LikeEvent, error) {
	ps := b.client.Subscribe(ctx, ChannelLikeEvents)
	// 等待订阅确认, 保证返回后不会丢失事件
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan domain.LikeEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.LikeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logrus.Warnf("dropped malformed like event: %v", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
