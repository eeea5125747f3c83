package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "session:"
	redisUserPrefix = "session:user:"
)

// RedisStore implements Store on Redis so sessions survive restarts and are
// shared between service instances. Expiry is delegated to Redis TTLs; a
// per-user set tracks tokens so DeleteByUserID can revoke every session.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) Create(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+session.Token, data, ttl)
	if session.UserID != nil {
		userKey := redisUserPrefix + session.UserID.String()
		pipe.SAdd(ctx, userKey, session.Token)
		pipe.Expire(ctx, userKey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (rs *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := rs.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Join(ErrStoreFailure, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}
	return &session, nil
}

func (rs *RedisStore) Delete(ctx context.Context, token string) error {
	session, err := rs.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := rs.client.TxPipeline()
	pipe.Del(ctx, redisKeyPrefix+token)
	if session.UserID != nil {
		pipe.SRem(ctx, redisUserPrefix+session.UserID.String(), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (rs *RedisStore) DeleteByUserID(ctx context.Context, userID string) error {
	userKey := redisUserPrefix + userID
	tokens, err := rs.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	pipe := rs.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, redisKeyPrefix+token)
	}
	pipe.Del(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
