// Package likestore gives a UI an optimistic view of card likes and keeps it
// eventually consistent with the counter service.
package likestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/card-gallery-likes/domain"
	"github.com/Guyuepp/card-gallery-likes/internal/client"
	"github.com/Guyuepp/card-gallery-likes/internal/likestore/storage"
)

const (
	defaultInitAttempts   = 3
	defaultInitRetryDelay = time.Second
	defaultUpdateTimeout  = 10 * time.Second
)

// Counter is the remote like counter, implemented by *client.Client.
type Counter interface {
	GetAll(ctx context.Context, sessionID string) (domain.CardLikes, error)
	Update(ctx context.Context, like domain.CardLike, action domain.LikeAction) (int64, error)
}

// IdentityProvider is implemented by *session.Manager.
type IdentityProvider interface {
	Acquire(ctx context.Context) (string, error)
}

type Mode int32

const (
	ModeUninitialized Mode = iota
	ModeRemote
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	default:
		return "uninitialized"
	}
}

// LikeData is the like state of one card as seen by the current session.
type LikeData struct {
	Count int64
	Liked bool
}

type Options struct {
	InitAttempts   uint64
	InitRetryDelay time.Duration
	UpdateTimeout  time.Duration
	MaxLikesPerDay int64
	Now            func() time.Time
	Logger         logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.InitAttempts == 0 {
		o.InitAttempts = defaultInitAttempts
	}
	if o.InitRetryDelay <= 0 {
		o.InitRetryDelay = defaultInitRetryDelay
	}
	if o.UpdateTimeout <= 0 {
		o.UpdateTimeout = defaultUpdateTimeout
	}
	if o.MaxLikesPerDay <= 0 {
		o.MaxLikesPerDay = domain.MaxUserLikesPerDay
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// stamp is one like inside the daily window. An empty cardPath means the
// like was reported by the server without saying which card it was.
type stamp struct {
	cardPath string
	at       time.Time
}

type Store struct {
	counter  Counter
	local    storage.Local
	identity IdentityProvider
	opts     Options
	notifier *Notifier

	mu        sync.Mutex
	mode      Mode
	sessionID string
	cache     map[string]storage.Entry
	likeLog   []stamp
	syncs     map[string]*cardSync

	persistMu sync.Mutex
	wg        sync.WaitGroup
}

func New(counter Counter, local storage.Local, identity IdentityProvider, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		counter:  counter,
		local:    local,
		identity: identity,
		opts:     opts,
		notifier: NewNotifier(opts.Logger),
		cache:    make(map[string]storage.Entry),
		syncs:    make(map[string]*cardSync),
	}
}

// Init acquires the session identity and loads the like state, retrying the
// counter service before falling back to local storage. Calling it again is a no-op.
func (s *Store) Init(ctx context.Context) error {
	if s.Mode() != ModeUninitialized {
		return nil
	}

	sessionID, err := s.identity.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire session identity: %w", err)
	}
	log := s.opts.Logger.WithField("session", sessionID)

	var remote domain.CardLikes
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.InitRetryDelay), s.opts.InitAttempts-1),
		ctx,
	)
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		res, err := s.counter.GetAll(ctx, sessionID)
		if err != nil {
			log.Warnf("failed to fetch likes (attempt %d/%d): %v", attempt, s.opts.InitAttempts, err)
			return err
		}
		remote = res
		return nil
	}, policy)

	if err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.mode != ModeUninitialized {
			return nil
		}
		s.sessionID = sessionID
		s.cache = make(map[string]storage.Entry, len(remote.CardLikes))
		for path, l := range remote.CardLikes {
			s.cache[path] = storage.Entry{Count: max(l.Count, 0), UserLiked: l.UserLiked}
		}
		s.likeLog = unattributed(remote.UserLikeCount, s.opts.Now())
		s.mode = ModeRemote
		log.Infof("like store ready, %d cards loaded", len(s.cache))
		return nil
	}

	log.Warnf("counter service unavailable, falling back to local storage: %v", err)
	snap, err := s.local.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		snap = storage.Snapshot{}
	case err != nil:
		log.Errorf("failed to load local likes: %v", err)
		snap = storage.Snapshot{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeUninitialized {
		return nil
	}
	s.sessionID = sessionID
	s.cache = make(map[string]storage.Entry, len(snap.CardLikes))
	for path, e := range snap.CardLikes {
		s.cache[path] = storage.Entry{Count: max(e.Count, 0), UserLiked: e.UserLiked}
	}
	s.likeLog = unattributed(snap.UserLikesCount, snap.LastUpdatedTime())
	s.mode = ModeLocal
	return nil
}

func unattributed(n int64, at time.Time) []stamp {
	res := make([]stamp, 0, max(n, 0))
	for range max(n, 0) {
		res = append(res, stamp{at: at})
	}
	return res
}

func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Subscribe returns the like notifications and a func to stop receiving them.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	return s.notifier.Subscribe(buffer)
}

// Wait blocks until every in-flight reconciliation finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// GetLikeData never fails; unknown cards and an uninitialized store read as zero.
func (s *Store) GetLikeData(cardPath string) LikeData {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.cache[cardPath]
	return LikeData{Count: e.Count, Liked: e.UserLiked}
}

// GetUserLikeCount returns the likes of this session inside the daily window.
func (s *Store) GetUserLikeCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userLikeCountLocked()
}

func (s *Store) userLikeCountLocked() int64 {
	cutoff := s.opts.Now().Add(-domain.LikeWindow)
	kept := s.likeLog[:0]
	for _, st := range s.likeLog {
		if st.at.After(cutoff) {
			kept = append(kept, st)
		}
	}
	s.likeLog = kept
	return int64(len(s.likeLog))
}

// findStampLocked returns the stamp of cardPath's own like, if any.
func (s *Store) findStampLocked(cardPath string) *stamp {
	for _, st := range s.likeLog {
		if st.cardPath == cardPath {
			return &st
		}
	}
	return nil
}

// removeStampLocked drops the stamp of cardPath's own like. Unattributed
// stamps are never removed: the card they belong to is unknown, and a card
// liked before the window has no stamp at all.
func (s *Store) removeStampLocked(cardPath string) (stamp, bool) {
	for i, st := range s.likeLog {
		if st.cardPath == cardPath {
			s.likeLog = append(s.likeLog[:i], s.likeLog[i+1:]...)
			return st, true
		}
	}
	return stamp{}, false
}

// cardSync serializes the Update calls of one card. While a call is on the
// wire only the latest desired state is recorded; it is sent once the call
// returns, if it differs from what the server confirmed.
type cardSync struct {
	desired        bool
	confirmed      storage.Entry
	confirmedStamp *stamp
}

// ToggleLike flips the like state of cardPath and returns the new state.
// It returns false when the toggle was rejected.
func (s *Store) ToggleLike(cardPath string) bool {
	if cardPath == "" {
		return false
	}

	s.mu.Lock()
	if s.mode == ModeUninitialized {
		s.mu.Unlock()
		return false
	}

	prev := s.cache[cardPath]
	liking := !prev.UserLiked
	if liking && s.userLikeCountLocked() >= s.opts.MaxLikesPerDay {
		ev := s.eventLocked(EventLimit, cardPath, prev)
		s.mu.Unlock()
		s.opts.Logger.WithField("cardPath", cardPath).Info("daily like limit reached")
		s.notifier.Publish(ev)
		return false
	}

	next := storage.Entry{UserLiked: liking}
	var removed *stamp
	if liking {
		next.Count = prev.Count + 1
		s.likeLog = append(s.likeLog, stamp{cardPath: cardPath, at: s.opts.Now()})
	} else {
		next.Count = max(prev.Count-1, 0)
		if st, ok := s.removeStampLocked(cardPath); ok {
			removed = &st
		}
	}
	s.cache[cardPath] = next
	ev := s.eventLocked(EventLike, cardPath, next)

	mode := s.mode
	var spawn *cardSync
	if mode == ModeRemote {
		cs, ok := s.syncs[cardPath]
		if !ok {
			// 没有进行中的请求时, 当前缓存即服务端确认的状态
			cs = &cardSync{confirmed: prev, confirmedStamp: removed}
			s.syncs[cardPath] = cs
			spawn = cs
			s.wg.Add(1)
		}
		cs.desired = liking
	} else {
		// 本地模式接管该卡片, 降级前发出的请求结果作废
		delete(s.syncs, cardPath)
	}
	s.mu.Unlock()

	s.notifier.Publish(ev)

	if mode == ModeLocal {
		s.persist()
		return liking
	}
	if spawn != nil {
		go s.sync(cardPath, spawn)
	}
	return liking
}

// sync sends the desired state of cardPath until the server agrees with it,
// a call fails, or the store leaves remote mode.
func (s *Store) sync(cardPath string, cs *cardSync) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.syncs[cardPath] != cs {
			s.mu.Unlock()
			return
		}
		if s.mode != ModeRemote || cs.desired == cs.confirmed.UserLiked {
			delete(s.syncs, cardPath)
			s.mu.Unlock()
			return
		}
		want := cs.desired
		like := domain.CardLike{SessionID: s.sessionID, CardPath: cardPath}
		s.mu.Unlock()

		action := domain.Unlike
		if want {
			action = domain.Like
		}
		log := s.opts.Logger.WithFields(logrus.Fields{
			"cardPath": cardPath,
			"action":   action.String(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.UpdateTimeout)
		newCount, err := s.counter.Update(ctx, like, action)
		cancel()

		s.mu.Lock()
		if s.syncs[cardPath] != cs {
			s.mu.Unlock()
			log.Debug("discarded stale like response")
			return
		}

		var (
			ev      Event
			degrade bool
		)
		if err == nil {
			cs.confirmed = storage.Entry{Count: max(newCount, 0), UserLiked: want}
			cs.confirmedStamp = nil
			if want {
				cs.confirmedStamp = s.findStampLocked(cardPath)
				if cs.confirmedStamp == nil {
					// 已被乐观取消, 以确认时间记录这次点赞
					cs.confirmedStamp = &stamp{cardPath: cardPath, at: s.opts.Now()}
				}
			}
			e := cs.confirmed
			if cs.desired != want {
				// 请求途中再次切换, 保留乐观状态, 下一轮发送
				e.UserLiked = cs.desired
				e.Count = max(newCount-1, 0)
				if cs.desired {
					e.Count = newCount + 1
				}
			}
			s.cache[cardPath] = e
			ev = s.eventLocked(EventLike, cardPath, e)
		} else {
			// 回滚到服务端确认的状态
			s.cache[cardPath] = cs.confirmed
			s.removeStampLocked(cardPath)
			if cs.confirmed.UserLiked && cs.confirmedStamp != nil {
				s.likeLog = append(s.likeLog, *cs.confirmedStamp)
			}
			kind := client.KindOf(err)
			degrade = kind == client.KindNetwork || kind == client.KindStorage
			if degrade {
				s.mode = ModeLocal
			}
			ev = s.eventLocked(EventLike, cardPath, cs.confirmed)
		}
		local := s.mode == ModeLocal
		stop := err != nil || local
		if stop {
			delete(s.syncs, cardPath)
		}
		s.mu.Unlock()

		if err != nil {
			log.Warnf("failed to update like, reverted: %v", err)
		}
		s.notifier.Publish(ev)
		if degrade {
			log.Warn("counter service unavailable, switched to local storage")
		}
		if local {
			s.persist()
		}
		if stop {
			return
		}
	}
}

func (s *Store) eventLocked(kind EventKind, cardPath string, e storage.Entry) Event {
	return Event{
		Kind: kind,
		LikeEvent: domain.LikeEvent{
			CardPath:  cardPath,
			SessionID: s.sessionID,
			IsLiked:   e.UserLiked,
			NewCount:  e.Count,
			Timestamp: s.opts.Now().UnixMilli(),
		},
	}
}

func (s *Store) snapshotLocked() storage.Snapshot {
	snap := storage.Snapshot{
		CardLikes:      make(map[string]storage.Entry, len(s.cache)),
		UserLikesCount: s.userLikeCountLocked(),
		LastUpdated:    s.opts.Now().UnixMilli(),
	}
	for path, e := range s.cache {
		snap.CardLikes[path] = e
	}
	return snap
}

// persist saves the current state; concurrent callers save in order.
func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.local.Save(context.Background(), snap); err != nil {
		s.opts.Logger.Errorf("failed to persist likes locally: %v", err)
	}
}
