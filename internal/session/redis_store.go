package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"healthcare-portal/internal/config"
	"healthcare-portal/internal/models"
)

const redisKeyPrefix = "portal:session:"

// RedisStore keeps each session as a hash with token, role and id fields.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient builds a client from cfg and pings it with a short timeout.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Load(ctx context.Context, id string) (models.Session, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return models.Session{}, err
	}
	if len(fields) == 0 {
		return models.Session{}, ErrNotFound
	}
	s := models.Session{Token: fields["token"], Role: fields["role"]}
	if raw, ok := fields["id"]; ok && raw != "" {
		// An unparsable id reads as zero, which the guard treats as a
		// corrupt session.
		s.PrincipalID, _ = strconv.ParseInt(raw, 10, 64)
	}
	return s, nil
}

// Save replaces the hash in a single transaction.
func (r *RedisStore) Save(ctx context.Context, id string, s models.Session, ttl time.Duration) error {
	key := redisKeyPrefix + id
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"token", s.Token,
			"role", s.Role,
			"id", strconv.FormatInt(s.PrincipalID, 10),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}
