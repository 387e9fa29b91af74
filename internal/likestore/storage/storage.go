// Package storage persists the like cache when the counter service is unreachable.
package storage

import (
	"context"
	"errors"
	"time"
)

// SnapshotKey is the fixed key of the fallback record.
const SnapshotKey = "card_gallery_likes_fallback"

// ErrNotFound is returned by Load when nothing was saved yet.
var ErrNotFound = errors.New("storage: snapshot not found")

type Entry struct {
	Count     int64 `json:"count"`
	UserLiked bool  `json:"userLiked"`
}

// Snapshot is the single fallback record.
type Snapshot struct {
	CardLikes      map[string]Entry `json:"cardLikes"`
	UserLikesCount int64            `json:"userLikesCount"`
	LastUpdated    int64            `json:"lastUpdated"` // unix milliseconds
}

func (s Snapshot) LastUpdatedTime() time.Time {
	return time.UnixMilli(s.LastUpdated)
}

// Local is where the LikeStore keeps its state in local mode.
type Local interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
