package cardlike

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/metrics"
)

const aggregateTimeout = 10 * time.Second

type Service struct {
	likeRepo    domain.CardLikeRepository
	likeCache   domain.CardLikeCache
	eventWorker domain.LikeEventWorker
	dailyLimit  int64
	now         func() time.Time

	aggregateGroup singleflight.Group
}

var _ domain.CardLikeUsecase = (*Service)(nil)

// NewService will create a new card like service object.
// A non-positive dailyLimit falls back to domain.MaxUserLikesPerDay.
func NewService(r domain.CardLikeRepository, c domain.CardLikeCache, w domain.LikeEventWorker, dailyLimit int64) *Service {
	if dailyLimit <= 0 {
		dailyLimit = domain.MaxUserLikesPerDay
	}
	return &Service{
		likeRepo:    r,
		likeCache:   c,
		eventWorker: w,
		dailyLimit:  dailyLimit,
		now:         time.Now,
	}
}

// GetAll merges the global count of every liked card with the liked flag of
// the requesting session. An empty sessionID means "no prior likes".
func (s *Service) GetAll(ctx context.Context, sessionID string) (domain.CardLikes, error) {
	if err := s.likeRepo.EnsureSchema(ctx); err != nil {
		logrus.Errorf("failed to ensure card_likes schema: %v", err)
		return domain.CardLikes{}, err
	}

	// 并发的聚合查询合并为一次, 结果不做缓存
	// 共享的查询不随首个请求取消
	v, err, _ := s.aggregateGroup.Do("aggregate", func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), aggregateTimeout)
		defer cancel()
		return s.likeRepo.CountByCard(qctx)
	})
	if err != nil {
		logrus.Errorf("failed to CountByCard from repo: %v", err)
		return domain.CardLikes{}, err
	}
	counts := v.(map[string]int64)

	res := domain.CardLikes{
		CardLikes: make(map[string]domain.CardLikeSummary, len(counts)),
	}
	for path, n := range counts {
		res.CardLikes[path] = domain.CardLikeSummary{Count: n}
	}
	if sessionID == "" {
		return res, nil
	}

	liked, err := s.likeRepo.FetchLikedCards(ctx, sessionID)
	if err != nil {
		logrus.Errorf("failed to FetchLikedCards from repo: %v", err)
		return domain.CardLikes{}, err
	}
	for _, path := range liked {
		summary := res.CardLikes[path]
		summary.UserLiked = true
		// 两次查询之间插入的点赞
		summary.Count = max(summary.Count, 1)
		res.CardLikes[path] = summary
	}

	recent, err := s.likeRepo.CountSince(ctx, sessionID, s.now().Add(-domain.LikeWindow))
	if err != nil {
		logrus.Errorf("failed to CountSince from repo: %v", err)
		return domain.CardLikes{}, err
	}
	res.UserLikeCount = recent
	return res, nil
}

// Update applies a like or unlike and returns the authoritative count of the card.
// Both actions are idempotent.
func (s *Service) Update(ctx context.Context, like domain.CardLike, action domain.LikeAction) (int64, error) {
	if like.SessionID == "" || like.CardPath == "" {
		return 0, domain.ErrBadParamInput
	}
	if err := s.likeRepo.EnsureSchema(ctx); err != nil {
		logrus.Errorf("failed to ensure card_likes schema: %v", err)
		return 0, err
	}

	var (
		changed bool
		err     error
	)
	switch action {
	case domain.Like:
		changed, err = s.addLike(ctx, like)
	case domain.Unlike:
		changed, err = s.likeRepo.Delete(ctx, like)
	default:
		return 0, fmt.Errorf("unsupported action %v: %w", action, domain.ErrBadParamInput)
	}
	if err != nil {
		return 0, err
	}

	newCount, err := s.likeRepo.CountForCard(ctx, like.CardPath)
	if err != nil {
		logrus.Errorf("failed to CountForCard from repo: %v", err)
		return 0, err
	}

	if !changed {
		metrics.LikesNoop.WithLabelValues(action.String()).Inc()
		return newCount, nil
	}

	metrics.LikesApplied.WithLabelValues(action.String()).Inc()
	s.eventWorker.Send(domain.LikeEvent{
		CardPath:  like.CardPath,
		SessionID: like.SessionID,
		IsLiked:   action == domain.Like,
		NewCount:  newCount,
		Timestamp: s.now().UnixMilli(),
	})
	return newCount, nil
}

func (s *Service) addLike(ctx context.Context, like domain.CardLike) (bool, error) {
	like.CreatedAt = s.now()
	inserted, err := s.likeRepo.InsertWithinLimit(ctx, like, like.CreatedAt.Add(-domain.LikeWindow), s.dailyLimit)
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		metrics.LikesRateLimited.Inc()
		logrus.Warnf("session %s reached the daily like limit (%d)", like.SessionID, s.dailyLimit)
		return false, err
	case err != nil:
		logrus.Errorf("failed to InsertWithinLimit like to repo: %v", err)
		return false, err
	}
	return inserted, nil
}

func (s *Service) FetchDailyRank(ctx context.Context, limit int64) ([]domain.RankEntry, error) {
	res, err := s.likeCache.GetDailyRank(ctx, limit)
	if err != nil {
		logrus.Errorf("failed to GetDailyRank from redis: %v", err)
		return nil, err
	}
	return res, nil
}
