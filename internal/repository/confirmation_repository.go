package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/models"
	appErrors "github.com/noah-isme/sma-report-portal/pkg/errors"
)

const confirmationKeyPrefix = "portal:delete-confirmation:"

// RedisConfirmationRepository keeps pending delete confirmations in Redis so
// every gateway replica can confirm a token issued by another.
type RedisConfirmationRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisConfirmationRepository constructs the Redis-backed repository.
func NewRedisConfirmationRepository(client *redis.Client, logger *zap.Logger) *RedisConfirmationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisConfirmationRepository{client: client, logger: logger}
}

func confirmationKey(id string) string {
	return confirmationKeyPrefix + id
}

// Save stores the confirmation until ttl elapses.
func (r *RedisConfirmationRepository) Save(ctx context.Context, confirmation models.DeleteConfirmation, ttl time.Duration) error {
	payload, err := json.Marshal(confirmation)
	if err != nil {
		return fmt.Errorf("marshal confirmation %s: %w", confirmation.ID, err)
	}

	ok, err := r.client.SetNX(ctx, confirmationKey(confirmation.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", confirmation.ID, err)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrConflict, "confirmation already exists")
	}
	return nil
}

// Take atomically reads and removes a confirmation so it can be used once.
func (r *RedisConfirmationRepository) Take(ctx context.Context, id string) (*models.DeleteConfirmation, error) {
	raw, err := r.client.GetDel(ctx, confirmationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.Clone(appErrors.ErrConfirmationInvalid, "")
		}
		return nil, fmt.Errorf("redis getdel %s: %w", id, err)
	}

	var confirmation models.DeleteConfirmation
	if err := json.Unmarshal(raw, &confirmation); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation %s: %w", id, err)
	}
	return &confirmation, nil
}

// Discard removes a confirmation without using it.
func (r *RedisConfirmationRepository) Discard(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, confirmationKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", id, err)
	}
	if removed == 0 {
		return appErrors.Clone(appErrors.ErrConfirmationInvalid, "")
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisConfirmationRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection.
func (r *RedisConfirmationRepository) Close() error {
	return r.client.Close()
}

// MemoryConfirmationRepository is the single-process fallback used when
// Redis is disabled.
type MemoryConfirmationRepository struct {
	mu      sync.Mutex
	entries map[string]memoryConfirmation
	now     func() time.Time
}

type memoryConfirmation struct {
	confirmation models.DeleteConfirmation
	expiresAt    time.Time
}

// NewMemoryConfirmationRepository constructs the in-memory repository.
func NewMemoryConfirmationRepository() *MemoryConfirmationRepository {
	return &MemoryConfirmationRepository{entries: map[string]memoryConfirmation{}, now: time.Now}
}

// Save stores the confirmation until ttl elapses.
func (r *MemoryConfirmationRepository) Save(_ context.Context, confirmation models.DeleteConfirmation, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	if _, exists := r.entries[confirmation.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, "confirmation already exists")
	}
	r.entries[confirmation.ID] = memoryConfirmation{confirmation: confirmation, expiresAt: r.now().Add(ttl)}
	return nil
}

// Take reads and removes a confirmation.
func (r *MemoryConfirmationRepository) Take(_ context.Context, id string) (*models.DeleteConfirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	entry, ok := r.entries[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConfirmationInvalid, "")
	}
	delete(r.entries, id)
	confirmation := entry.confirmation
	return &confirmation, nil
}

// Discard removes a confirmation without using it.
func (r *MemoryConfirmationRepository) Discard(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	if _, ok := r.entries[id]; !ok {
		return appErrors.Clone(appErrors.ErrConfirmationInvalid, "")
	}
	delete(r.entries, id)
	return nil
}

// Ping always succeeds.
func (r *MemoryConfirmationRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryConfirmationRepository) evictLocked() {
	now := r.now()
	for id, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, id)
		}
	}
}
