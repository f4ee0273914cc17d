package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credon/pkg/domain"
)

const otpKeyPrefix = "otp:"

// RedisStore keeps codes in Redis with native TTL expiry. The single-use
// guarantee rides on GETDEL.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed OTP store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, contactID domain.ContactID, hash []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKeyPrefix+contactID.String(), hash, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, contactID domain.ContactID) ([]byte, error) {
	hash, err := s.client.GetDel(ctx, otpKeyPrefix+contactID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoCode
		}
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	return hash, nil
}
