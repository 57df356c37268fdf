package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV KV respaldado por Redis; cada perfil usa su propio prefijo de clave.
type RedisKV struct {
	client redis.UniversalClient
	prefix string
}

var _ KV = (*RedisKV)(nil)

// NewRedisKV construye el KV del perfil sobre un cliente compartido.
func NewRedisKV(client redis.UniversalClient, app, profile string) *RedisKV {
	return &RedisKV{client: client, prefix: fmt.Sprintf("%s:%s:", app, profile)}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
