// Package cache is the device-scoped key/value store: anonymous cart and
// favorites blobs, one-shot merge markers, and checkout context keyed by the
// payment session. Values are JSON with a TTL; expiry of a cart blob never
// touches the device identity itself.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the minimal surface the managers need. SetNX is the atomic
// check-and-set backing merge markers; Incr is the atomic counter backing
// quote correlation.
type Store interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisStore struct {
	client *redis.Client
}

// NewRedis connects a go-redis client and verifies it with a ping.
func NewRedis(ctx context.Context, addr, password string, db int) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) GetJSON(ctx context.Context, key string, v interface{}) error {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *redisStore) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

func (s *redisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Key builders. Carts expire on their own TTL; favorites ride the stable
// device id with a long TTL.

func AnonCartKey(deviceID string) string     { return "anon:cart:" + deviceID }
func AnonFavoriteKey(deviceID string) string { return "anon:fav:" + deviceID }
func MergeMarkerKey(customerID, domain string) string {
	return "merge:" + customerID + ":" + domain
}
func CheckoutKey(id string) string         { return "checkout:" + id }
func CheckoutSessionKey(id string) string  { return "checkout:session:" + id }
func CheckoutQuoteSeqKey(id string) string { return "checkout:seq:" + id }
