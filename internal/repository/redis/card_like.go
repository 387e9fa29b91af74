package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
)

const (
	KeyHotDailyRaw            = "card:hot:daily:raw:%s"
	KeyHotDailyAggregatedRank = "card:hot:daily:rank"
	ChannelLikeEvents         = "card:likes:events"

	hourBucketLayout  = "2006010203"
	hourBucketTTL     = 26 * time.Hour
	aggregatedRankTTL = 5 * time.Minute
)

type cardLikeCache struct {
	client *redis.Client
	now    func() time.Time
}

var _ domain.CardLikeCache = (*cardLikeCache)(nil)

func NewCardLikeCache(client *redis.Client) *cardLikeCache {
	return &cardLikeCache{
		client: client,
		now:    time.Now,
	}
}

func hourKey(t time.Time) string {
	return fmt.Sprintf(KeyHotDailyRaw, t.Format(hourBucketLayout))
}

// ApplyLikeEvents writes the whole batch in one pipeline: score deltas go to the
// current hour bucket, events are published for every server instance.
func (c *cardLikeCache) ApplyLikeEvents(ctx context.Context, batch domain.LikeEventBatch) error {
	if len(batch.Deltas) == 0 && len(batch.Events) == 0 {
		return nil
	}

	key := hourKey(c.now())
	pipe := c.client.Pipeline()
	for _, d := range batch.Deltas {
		pipe.ZIncrBy(ctx, key, d.Score, d.CardPath)
	}
	if len(batch.Deltas) > 0 {
		pipe.Expire(ctx, key, hourBucketTTL)
	}
	for _, ev := range batch.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			logrus.Warnf("failed to marshal like event for card %s: %v", ev.CardPath, err)
			continue
		}
		pipe.Publish(ctx, ChannelLikeEvents, string(payload))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *cardLikeCache) GetDailyRank(ctx context.Context, limit int64) ([]domain.RankEntry, error) {
	exists, err := c.client.Exists(ctx, KeyHotDailyAggregatedRank).Result()
	if err != nil {
		return nil, err
	}

	if exists == 0 {
		// 合并最近24个小时桶
		keys := make([]string, 24)
		now := c.now()
		for i := range 24 {
			keys[i] = hourKey(now.Add(time.Duration(-i) * time.Hour))
		}

		err := c.client.ZUnionStore(ctx, KeyHotDailyAggregatedRank, &redis.ZStore{
			Keys:      keys,
			Aggregate: "SUM",
		}).Err()
		if err != nil {
			return nil, err
		}

		c.client.Expire(ctx, KeyHotDailyAggregatedRank, aggregatedRankTTL)
	}

	return c.fetchRankFromKey(ctx, KeyHotDailyAggregatedRank, limit)
}

func (c *cardLikeCache) fetchRankFromKey(ctx context.Context, key string, limit int64) ([]domain.RankEntry, error) {
	zRes, err := c.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	res := make([]domain.RankEntry, 0, len(zRes))
	for _, z := range zRes {
		// 净点赞为0或负数的卡片不上榜
		if z.Score <= 0 {
			continue
		}
		member, ok := z.Member.(string)
		if !ok {
			logrus.Errorf("invalid member type in rank %s: %v", key, z.Member)
			continue
		}
		res = append(res, domain.RankEntry{
			CardPath: member,
			Score:    z.Score,
		})
	}
	return res, nil
}
