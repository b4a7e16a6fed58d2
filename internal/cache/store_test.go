package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profithive/profithive-go/internal/database"
	"github.com/profithive/profithive-go/internal/models"
)

func sampleEntry(key string) *models.CacheEntry {
	now := time.Now().Truncate(time.Second)
	return &models.CacheEntry{
		Key: key,
		Days: []models.ForecastDay{
			{
				Date:             now.AddDate(0, 0, 1),
				PredictedRevenue: decimal.NewFromFloat(1250.50),
				LowerBound:       decimal.NewFromFloat(1100),
				UpperBound:       decimal.NewFromFloat(1400),
				Confidence:       82,
			},
		},
		Confidence: 82,
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}
}

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), logrus.New())
	require.NoError(t, err)
	return store
}

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(&database.RedisClient{Client: client})
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"file":  newFileStore(t),
		"redis": newRedisStore(t),
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entry := sampleEntry("abc123")

			require.NoError(t, store.Put(ctx, entry))

			got, err := store.Get(ctx, "abc123")
			require.NoError(t, err)
			assert.Equal(t, entry.Key, got.Key)
			assert.Equal(t, entry.Confidence, got.Confidence)
			require.Len(t, got.Days, 1)
			assert.True(t, got.Days[0].PredictedRevenue.Equal(entry.Days[0].PredictedRevenue))
		})
	}
}

func TestStore_GetMiss(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrCacheMiss)
		})
	}
}

func TestStore_Evict(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, sampleEntry("gone")))
			require.NoError(t, store.Evict(ctx, "gone"))

			_, err := store.Get(ctx, "gone")
			assert.ErrorIs(t, err, ErrCacheMiss)

			// Evicting a missing key is not an error.
			assert.NoError(t, store.Evict(ctx, "never-existed"))
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				require.NoError(t, store.Put(ctx, sampleEntry(fmt.Sprintf("key-%d", i))))
			}
			require.NoError(t, store.Clear(ctx))

			for i := 0; i < 3; i++ {
				_, err := store.Get(ctx, fmt.Sprintf("key-%d", i))
				assert.ErrorIs(t, err, ErrCacheMiss)
			}
		})
	}
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	logger := logrus.New()
	ctx := context.Background()

	first, err := NewFileStore(dir, logger)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, sampleEntry("persist")))

	// A new store over the same directory sees the entry.
	second, err := NewFileStore(dir, logger)
	require.NoError(t, err)
	got, err := second.Get(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "persist", got.Key)
}

func TestFileStore_CorruptEntryBehavesLikeMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, logrus.New())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err = store.Get(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// The corrupt file was removed.
	_, statErr := os.Stat(filepath.Join(dir, "bad.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRedisStore_SkipsAlreadyExpiredEntries(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	entry := sampleEntry("stale")
	entry.ExpiresAt = time.Now().Add(-time.Minute)

	require.NoError(t, store.Put(ctx, entry))
	_, err := store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
