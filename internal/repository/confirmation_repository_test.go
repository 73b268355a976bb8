package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

func sampleConfirmation(id string) models.DeleteConfirmation {
	return models.DeleteConfirmation{
		ID:         id,
		Collection: models.CollectionWarnings,
		RecordID:   4,
		StudentID:  7,
	}
}

func newRedisRepo(t *testing.T) (*RedisConfirmationRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisConfirmationRepository(client, nil), mr
}

func TestRedisConfirmationIsSingleUse(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleConfirmation("c1"), time.Minute))
	assert.True(t, mr.Exists(confirmationKey("c1")))
	assert.Equal(t, time.Minute, mr.TTL(confirmationKey("c1")))

	got, err := repo.Take(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.RecordID)
	assert.Equal(t, models.CollectionWarnings, got.Collection)

	_, err = repo.Take(ctx, "c1")
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))
}

func TestRedisConfirmationExpires(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleConfirmation("c2"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Take(ctx, "c2")
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))
}

func TestRedisConfirmationDiscard(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleConfirmation("c3"), time.Minute))
	assert.True(t, appErrors.IsCode(repo.Save(ctx, sampleConfirmation("c3"), time.Minute), "CONFLICT"))
	require.NoError(t, repo.Discard(ctx, "c3"))
	assert.True(t, appErrors.IsCode(repo.Discard(ctx, "c3"), "CONFIRMATION_INVALID"))
	require.NoError(t, repo.Ping(ctx))
}

func TestMemoryConfirmationRepository(t *testing.T) {
	repo := NewMemoryConfirmationRepository()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleConfirmation("m1"), time.Minute))
	require.NoError(t, repo.Save(ctx, sampleConfirmation("m2"), time.Minute))

	got, err := repo.Take(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	_, err = repo.Take(ctx, "m1")
	assert.True(t, appErrors.IsCode(err, "CONFIRMATION_INVALID"))

	now = now.Add(2 * time.Minute)
	assert.True(t, appErrors.IsCode(repo.Discard(ctx, "m2"), "CONFIRMATION_INVALID"))
}
