// internal/clarify/store_test.go
package clarify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nlq-resolver/internal/common/errors"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/models"
)

func pendingFixture(token string, now time.Time) *models.PendingQuery {
	return &models.PendingQuery{
		Token:        token,
		OriginalText: "revenue by game",
		Slots: models.ResolvedSlots{
			Dimensions: []models.Dimension{{Name: "Game", BackingField: "game_name", DataType: models.DimensionTypeString}},
		},
		Unresolved: models.UnresolvedSlot{
			Kind:   models.SlotTimeRange,
			Reason: models.ReasonMissing,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(logger.NewTestLogger(t))
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	pending := pendingFixture("tok-1", now)
	require.NoError(t, store.Put(ctx, pending, 10*time.Minute))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, pending.OriginalText, got.OriginalText)
	assert.Equal(t, models.SlotTimeRange, got.Unresolved.Kind)

	// The store hands out copies.
	got.OriginalText = "mutated"
	again, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "revenue by game", again.OriginalText)

	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Get(ctx, "tok-1")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestMemoryStoreReclaimsExpired(t *testing.T) {
	store := NewMemoryStore(logger.NewTestLogger(t))
	defer store.Close()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	pending := pendingFixture("tok-old", past)
	pending.ExpiresAt = past.Add(10 * time.Minute)
	require.NoError(t, store.Put(ctx, pending, 10*time.Minute))

	store.reclaim()
	_, err := store.Get(ctx, "tok-old")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, logger.NewTestLogger(t))
	defer store.Close()
	ctx := context.Background()

	pending := pendingFixture("tok-2", time.Now())
	require.NoError(t, store.Put(ctx, pending, 10*time.Minute))

	got, err := store.Get(ctx, "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "revenue by game", got.OriginalText)
	assert.Equal(t, "Game", got.Slots.Dimensions[0].Name)

	require.NoError(t, store.Delete(ctx, "tok-2"))
	_, err = store.Get(ctx, "tok-2")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}

func TestRedisStoreBackendFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "tok-err").SetErr(redis.ErrClosed)
	_, err := store.Get(ctx, "tok-err")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrSessionNotFound))

	var coded *apperrors.StandardError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, apperrors.ErrCodeSessionStore, coded.Code)
	assert.True(t, coded.Retryable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreKeyExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, logger.NewTestLogger(t))
	defer store.Close()
	ctx := context.Background()

	pending := pendingFixture("tok-3", time.Now())
	require.NoError(t, store.Put(ctx, pending, time.Minute))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "tok-3")
	assert.True(t, errors.Is(err, apperrors.ErrSessionNotFound))
}
