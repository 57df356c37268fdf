package localstore

import (
	"context"
	"sync"
)

// Claves de las colecciones persistidas.
const (
	KeyUsers     = "users"
	KeyCompanies = "companies"
	KeySession   = "session"
)

// KV almacén clave/valor durable con el alcance de un perfil. Las operaciones son síncronas
// desde el punto de vista del flujo de autenticación (no suspenden en I/O remota).
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV implementación en memoria (tests y LOCAL_BACKEND=memory).
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ KV = (*MemoryKV)(nil)

// NewMemoryKV construye un KV vacío.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
