package domain

import (
	"context"
	"fmt"
)

type LikeAction int8

const (
	Like   LikeAction = 1
	Unlike LikeAction = -1
)

func (l LikeAction) String() string {
	switch l {
	case Like:
		return "like"
	case Unlike:
		return "unlike"
	default:
		return "unknown"
	}
}

// ParseLikeAction accepts exactly "like" or "unlike".
func ParseLikeAction(s string) (LikeAction, error) {
	switch s {
	case "like":
		return Like, nil
	case "unlike":
		return Unlike, nil
	default:
		return 0, fmt.Errorf("unsupported action %q: %w", s, ErrBadParamInput)
	}
}

type LikeEventWorker interface {
	Start(ctx context.Context)

	// Send queues an event without blocking; the event is dropped if the queue is full
	Send(event LikeEvent)
}
