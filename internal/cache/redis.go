package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"goldshop/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// versionTTL bounds how long an idle user's invalidation counter lingers.
const versionTTL = 24 * time.Hour

// RedisCartCache stores carts as JSON under cart:<user id> and the
// invalidation counter under cart:<user id>:ver
type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
	jitter  time.Duration
}

func NewRedisCartCache(client *redis.Client, ttl time.Duration) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: ttl,
		jitter:  ttl / 5,
	}
}

func (r *RedisCartCache) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	return &cart, nil
}

func (r *RedisCartCache) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// Set writes the cart only while the version still matches. WATCH aborts the
// write if Delete bumps the version between the check and EXEC.
func (r *RedisCartCache) Set(ctx context.Context, cart *domain.Cart, version int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// Jitter spreads expiry so carts cached together don't all miss together.
	ttl := r.baseTTL
	if r.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(r.jitter)))
	}

	verKey := versionKey(cart.UserID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(cart.UserID), data, ttl)
			return nil
		})
		return err
	}, verKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete drops the cached cart and bumps its version in one transaction
func (r *RedisCartCache) Delete(ctx context.Context, userID uuid.UUID) error {
	verKey := versionKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
		pipe.Del(ctx, cacheKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

func versionKey(userID uuid.UUID) string {
	return cacheKey(userID) + ":ver"
}
