package localstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/insightos/pkg/config"
)

// KVFactory abre el KV de cada perfil sobre el backend configurado (file, redis, memory).
// Con redis todos los perfiles comparten un cliente y se separan por prefijo de clave.
type KVFactory struct {
	cfg    config.LocalConfig
	app    string
	redis  redis.UniversalClient
	mu     sync.Mutex
	memory map[string]*MemoryKV
}

// NewKVFactory valida el backend y, si es redis, abre el cliente y comprueba la conexión.
func NewKVFactory(ctx context.Context, cfg config.LocalConfig, app string) (*KVFactory, error) {
	f := &KVFactory{cfg: cfg, app: app, memory: map[string]*MemoryKV{}}
	switch cfg.Backend {
	case "file", "memory":
	case "redis":
		f.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := f.redis.Ping(pingCtx).Err(); err != nil {
			_ = f.redis.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
	default:
		return nil, fmt.Errorf("backend local desconocido %q", cfg.Backend)
	}
	return f, nil
}

// Backend nombre del backend en uso.
func (f *KVFactory) Backend() string { return f.cfg.Backend }

// Open devuelve el KV del perfil. En memoria el mismo perfil recibe siempre la misma instancia.
func (f *KVFactory) Open(profile string) (KV, error) {
	switch f.cfg.Backend {
	case "redis":
		return NewRedisKV(f.redis, f.app, profile), nil
	case "memory":
		f.mu.Lock()
		defer f.mu.Unlock()
		kv, ok := f.memory[profile]
		if !ok {
			kv = NewMemoryKV()
			f.memory[profile] = kv
		}
		return kv, nil
	default:
		return NewFileKV(f.cfg.DataDir, profile)
	}
}

// Close libera el cliente redis si existe.
func (f *KVFactory) Close() error {
	if f.redis != nil {
		return f.redis.Close()
	}
	return nil
}
