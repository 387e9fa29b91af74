// Package session derives the anonymous per-device identity that scopes likes.
//
// The identity is an anti-abuse hint, not a credential: two devices with the
// same fingerprint at the same millisecond may collide and any client can forge one.
package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StorageKey is the key the identity is persisted under.
const StorageKey = "card_gallery_session_id"

const randomSuffixLen = 9

// Fingerprint is the device information the identity is derived from.
type Fingerprint struct {
	UserAgent    string
	ScreenWidth  int
	ScreenHeight int
	ColorDepth   int
	Timezone     string
	Languages    []string
}

// Hash returns the base36 FNV-1a hash of the fingerprint.
func (f Fingerprint) Hash() string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.Join([]string{
		f.UserAgent,
		fmt.Sprintf("%dx%dx%d", f.ScreenWidth, f.ScreenHeight, f.ColorDepth),
		f.Timezone,
		strings.Join(f.Languages, ","),
	}, "|")))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// Storage is a session-scoped key/value store.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Manager hands out the identity of the current session, generating it at most once.
type Manager struct {
	store       Storage
	fingerprint Fingerprint
	now         func() time.Time
	random      func() string

	mu sync.Mutex
}

func NewManager(store Storage, fp Fingerprint) *Manager {
	return &Manager{
		store:       store,
		fingerprint: fp,
		now:         time.Now,
		random:      randomSuffix,
	}
}

// Acquire returns the stored identity, or generates and stores a new one if absent.
func (m *Manager) Acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return "", fmt.Errorf("load session id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = Generate(m.fingerprint, m.now(), m.random())
	if err := m.store.Set(ctx, StorageKey, id); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return id, nil
}

// Generate builds `<fingerprint hash>_<base36 unix ms>_<suffix>`.
func Generate(fp Fingerprint, at time.Time, suffix string) string {
	return fp.Hash() + "_" + strconv.FormatInt(at.UnixMilli(), 36) + "_" + suffix
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:randomSuffixLen]
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
