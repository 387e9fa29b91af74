package session

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFingerprint = Fingerprint{
	UserAgent:    "Mozilla/5.0 (X11; Linux x86_64)",
	ScreenWidth:  1920,
	ScreenHeight: 1080,
	ColorDepth:   24,
	Timezone:     "Asia/Shanghai",
	Languages:    []string{"zh-CN", "en-US"},
}

type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStorage) Set(context.Context, string, string) error        { return f.err }

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, testFingerprint.Hash(), testFingerprint.Hash())

	other := testFingerprint
	other.Timezone = "Europe/Berlin"
	assert.NotEqual(t, testFingerprint.Hash(), other.Hash())

	_, err := strconv.ParseUint(testFingerprint.Hash(), 36, 32)
	assert.NoError(t, err)
}

func TestGenerate(t *testing.T) {
	at := time.UnixMilli(1760500000000)
	id := Generate(testFingerprint, at, "abc123xyz")

	assert.Equal(t, testFingerprint.Hash()+"_"+strconv.FormatInt(1760500000000, 36)+"_abc123xyz", id)
}

func TestAcquireGeneratesOnce(t *testing.T) {
	m := NewManager(NewMemoryStorage(), testFingerprint)

	first, err := m.Acquire(context.TODO())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+_[0-9a-z]+_[0-9a-f]{9}$`), first)

	second, err := m.Acquire(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAcquireReturnsStoredIdentity(t *testing.T) {
	store := NewMemoryStorage()
	stored := faker.UUIDDigit()
	require.NoError(t, store.Set(context.TODO(), StorageKey, stored))

	id, err := NewManager(store, testFingerprint).Acquire(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, stored, id)
}

func TestAcquireConcurrent(t *testing.T) {
	m := NewManager(NewMemoryStorage(), testFingerprint)

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := m.Acquire(context.TODO())
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestAcquireStorageError(t *testing.T) {
	_, err := NewManager(failingStorage{err: errors.New("quota exceeded")}, testFingerprint).Acquire(context.TODO())
	assert.Error(t, err)
}
