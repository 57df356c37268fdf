package auth

import (
	"context"
	"fmt"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/pkg/logger"
)

// FallbackSessionStore prueba los backends en orden, estrictamente secuencial: el intento remoto
// termina (éxito o fallo) antes de empezar el local. Continúa solo ante errores de fallback
// (domain.IsFallback) y devuelve qué backend satisfizo la petición.
type FallbackSessionStore struct {
	stores []SessionStore
	log    *logger.Logger
}

// NewFallbackSessionStore compone los backends; los nil se descartan.
func NewFallbackSessionStore(log *logger.Logger, stores ...SessionStore) *FallbackSessionStore {
	f := &FallbackSessionStore{log: log}
	for _, s := range stores {
		if s != nil {
			f.stores = append(f.stores, s)
		}
	}
	return f
}

// Stores backends compuestos, en orden de preferencia.
func (f *FallbackSessionStore) Stores() []SessionStore {
	return append([]SessionStore(nil), f.stores...)
}

func attempt[T any](ctx context.Context, f *FallbackSessionStore, op string, fn func(SessionStore) (T, error)) (T, Source, error) {
	var zero T
	lastErr := domain.ErrNotConfigured
	for _, s := range f.stores {
		if !s.Available() {
			f.log.Debug().Str("op", op).Str("store", s.Name()).Msg("backend no disponible, se omite")
			continue
		}
		if err := ctx.Err(); err != nil {
			return zero, SourceNone, err
		}
		res, err := fn(s)
		if err == nil {
			return res, Source(s.Name()), nil
		}
		if !domain.IsFallback(err) {
			return zero, Source(s.Name()), err
		}
		f.log.Warn().Err(err).Str("op", op).Str("store", s.Name()).Msg("fallo en backend, se intenta el siguiente")
		lastErr = err
	}
	return zero, SourceNone, fmt.Errorf("%s: %w", op, lastErr)
}

func attemptErr(ctx context.Context, f *FallbackSessionStore, op string, fn func(SessionStore) error) (Source, error) {
	_, src, err := attempt(ctx, f, op, func(s SessionStore) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return src, err
}

// Load resuelve usuario + empresa.
func (f *FallbackSessionStore) Load(ctx context.Context, userID, email string) (*entity.Account, Source, error) {
	return attempt(ctx, f, "load", func(s SessionStore) (*entity.Account, error) {
		return s.Load(ctx, userID, email)
	})
}

// Authenticate verifica credenciales.
func (f *FallbackSessionStore) Authenticate(ctx context.Context, email, password string) (*entity.User, Source, error) {
	return attempt(ctx, f, "authenticate", func(s SessionStore) (*entity.User, error) {
		return s.Authenticate(ctx, email, password)
	})
}

// Restore devuelve la primera sesión persistida; un backend sin sesión cede al siguiente.
func (f *FallbackSessionStore) Restore(ctx context.Context) (*entity.SessionPointer, Source, error) {
	return attempt(ctx, f, "restore", func(s SessionStore) (*entity.SessionPointer, error) {
		ptr, err := s.Restore(ctx)
		if err == nil && ptr == nil {
			return nil, fmt.Errorf("%s sin sesión: %w", s.Name(), domain.ErrNotConfigured)
		}
		return ptr, err
	})
}

// CreateTenant crea empresa + administrador.
func (f *FallbackSessionStore) CreateTenant(ctx context.Context, company *entity.Company, admin *entity.User, password string) (Source, error) {
	return attemptErr(ctx, f, "create_tenant", func(s SessionStore) error {
		return s.CreateTenant(ctx, company, admin, password)
	})
}

// AddMember agrega un usuario a la empresa.
func (f *FallbackSessionStore) AddMember(ctx context.Context, user *entity.User, password string) (Source, error) {
	return attemptErr(ctx, f, "add_member", func(s SessionStore) error {
		return s.AddMember(ctx, user, password)
	})
}

// UpdateUser actualiza campos del usuario.
func (f *FallbackSessionStore) UpdateUser(ctx context.Context, userID string, patch entity.UserPatch) (Source, error) {
	return attemptErr(ctx, f, "update_user", func(s SessionStore) error {
		return s.UpdateUser(ctx, userID, patch)
	})
}

// UpdateCompany actualiza campos de la empresa.
func (f *FallbackSessionStore) UpdateCompany(ctx context.Context, companyID string, patch entity.CompanyPatch) (Source, error) {
	return attemptErr(ctx, f, "update_company", func(s SessionStore) error {
		return s.UpdateCompany(ctx, companyID, patch)
	})
}

// Members lista los miembros activos de una empresa.
func (f *FallbackSessionStore) Members(ctx context.Context, companyID string) ([]*entity.User, Source, error) {
	return attempt(ctx, f, "members", func(s SessionStore) ([]*entity.User, error) {
		return s.Members(ctx, companyID)
	})
}

// SignOut cierra sesión en todos los backends disponibles; los fallos solo se registran.
func (f *FallbackSessionStore) SignOut(ctx context.Context, userID string) {
	for _, s := range f.stores {
		if !s.Available() {
			continue
		}
		if err := s.SignOut(ctx, userID); err != nil {
			f.log.Warn().Err(err).Str("store", s.Name()).Str("user_id", userID).Msg("sign out fallido, se ignora")
		}
	}
}
