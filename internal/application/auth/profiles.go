package auth

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/jhoicas/insightos/internal/domain"
)

// DefaultProfile perfil usado cuando el cliente no indica uno.
const DefaultProfile = "default"

var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidProfile informa si el id de perfil es aceptable como nombre de directorio o prefijo de clave.
func ValidProfile(id string) bool {
	return profilePattern.MatchString(id)
}

// Factory construye el AuthUseCase de un perfil (almacén local con el alcance del perfil).
type Factory func(ctx context.Context, profile string) (*AuthUseCase, error)

type profileEntry struct {
	once sync.Once
	uc   *AuthUseCase
	err  error
}

// Profiles registro de contextos de autenticación por perfil. Cada perfil se construye
// y se arranca (Bootstrap) una sola vez, al primer uso.
type Profiles struct {
	factory Factory
	mu      sync.Mutex
	items   map[string]*profileEntry
}

// NewProfiles construye el registro.
func NewProfiles(factory Factory) *Profiles {
	return &Profiles{factory: factory, items: map[string]*profileEntry{}}
}

// Get devuelve el contexto del perfil, creándolo y resolviendo su sesión si es el primer uso.
func (p *Profiles) Get(ctx context.Context, profile string) (*AuthUseCase, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !ValidProfile(profile) {
		return nil, fmt.Errorf("perfil %q: %w", profile, domain.ErrInvalidInput)
	}

	p.mu.Lock()
	entry, ok := p.items[profile]
	if !ok {
		entry = &profileEntry{}
		p.items[profile] = entry
	}
	p.mu.Unlock()

	entry.once.Do(func() {
		uc, err := p.factory(ctx, profile)
		if err != nil {
			entry.err = fmt.Errorf("perfil %s: %w", profile, err)
			return
		}
		uc.Bootstrap(ctx)
		entry.uc = uc
	})
	if entry.err != nil {
		p.mu.Lock()
		if p.items[profile] == entry {
			delete(p.items, profile)
		}
		p.mu.Unlock()
		return nil, entry.err
	}
	return entry.uc, nil
}

// Close libera todos los perfiles.
func (p *Profiles) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.items {
		if e.uc != nil {
			e.uc.Close()
		}
		delete(p.items, id)
	}
}
