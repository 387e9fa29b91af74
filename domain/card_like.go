package domain

import (
	"context"
	"time"
)

const (
	// MaxUserLikesPerDay 每个会话在滚动窗口内最多可以点赞的卡片数
	MaxUserLikesPerDay = 10

	// LikeWindow is the rolling window the daily like limit is counted over.
	LikeWindow = 24 * time.Hour
)

// CardLike is representing a like record: one row per (session, card) pair
type CardLike struct {
	SessionID string    // Anonymous per-device identity
	CardPath  string    // Stable identifier of the liked card
	CreatedAt time.Time // When the like was recorded
}

// CardLikeSummary is the aggregate like state of one card as seen by one session.
type CardLikeSummary struct {
	Count     int64
	UserLiked bool
}

// CardLikes is the result of a bulk fetch for a session.
type CardLikes struct {
	CardLikes     map[string]CardLikeSummary
	UserLikeCount int64 // likes of the session inside LikeWindow
}

// LikeEvent is broadcast whenever the like state of a card changes.
type LikeEvent struct {
	CardPath  string `json:"cardPath"`
	SessionID string `json:"sessionId"`
	IsLiked   bool   `json:"isLiked"`
	NewCount  int64  `json:"newCount"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// RankEntry is one row of the hot card ranking.
type RankEntry struct {
	CardPath string
	Score    float64
}

// LikeEventBatch is what the event worker hands to the cache in one flush.
type LikeEventBatch struct {
	// Deltas holds the net score change per card, in order of first appearance.
	Deltas []RankEntry
	Events []LikeEvent
}

// CardLikeRepository defines the contract for like record persistence
type CardLikeRepository interface {
	// EnsureSchema creates the backing table if absent. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// CountByCard returns the like count of every card with at least one like.
	CountByCard(ctx context.Context) (map[string]int64, error)

	// CountForCard returns the like count of a single card.
	CountForCard(ctx context.Context, cardPath string) (int64, error)

	// FetchLikedCards returns the card paths liked by the session.
	FetchLikedCards(ctx context.Context, sessionID string) ([]string, error)

	// CountSince counts the likes of the session created after since.
	CountSince(ctx context.Context, sessionID string, since time.Time) (int64, error)

	// InsertWithinLimit stores the like unless the session already has limit
	// likes created after since, in which case it returns ErrRateLimited.
	// Returns false if the pair was already liked; that is never rate limited.
	// The check and the insert are atomic per session.
	InsertWithinLimit(ctx context.Context, like CardLike, since time.Time, limit int64) (bool, error)

	// Delete removes the like. Returns false if the pair was not liked.
	Delete(ctx context.Context, like CardLike) (bool, error)
}

type CardLikeCache interface {
	// ApplyLikeEvents 更新小时热榜并广播事件
	ApplyLikeEvents(ctx context.Context, batch LikeEventBatch) error

	GetDailyRank(ctx context.Context, limit int64) ([]RankEntry, error)
}

// LikeEventSubscriber streams like events published by any server instance.
// The returned channel is closed once ctx is done.
type LikeEventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan LikeEvent, error)
}

type CardLikeUsecase interface {
	GetAll(ctx context.Context, sessionID string) (CardLikes, error)
	Update(ctx context.Context, like CardLike, action LikeAction) (int64, error)
	FetchDailyRank(ctx context.Context, limit int64) ([]RankEntry, error)
}
