package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jhoicas/insightos/pkg/logger"
)

// TokenKey clave del almacén del perfil donde se guarda la sesión de identidad.
const TokenKey = "auth_token"

// Tipos de evento emitidos por Auth.
const (
	EventSignedIn    = "SIGNED_IN"
	EventSignedOut   = "SIGNED_OUT"
	EventUserUpdated = "USER_UPDATED"
)

// Event cambio de estado de la sesión de identidad.
type Event struct {
	Type   string
	UserID string // id de identidad, distinto del id de users
	Email  string
}

// TokenStore almacén clave/valor del perfil (lo satisface localstore.KV).
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Auth sesión de identidad de un perfil: persiste los tokens en el almacén del perfil para que
// GetSession sobreviva reinicios y notifica cambios a los suscriptores (onAuthStateChange).
type Auth struct {
	client *Client
	tokens TokenStore
	log    *logger.Logger

	mu        sync.Mutex
	listeners map[int]func(Event)
	nextID    int
}

// NewAuth construye la sesión de identidad del perfil.
func NewAuth(client *Client, tokens TokenStore, log *logger.Logger) *Auth {
	if log == nil {
		log = logger.Nop()
	}
	return &Auth{
		client:    client,
		tokens:    tokens,
		log:       log.Component("supabase"),
		listeners: map[int]func(Event){},
	}
}

// Client adaptador REST subyacente.
func (a *Auth) Client() *Client { return a.client }

// IsConfigured informa si el proveedor está configurado.
func (a *Auth) IsConfigured() bool { return a.client.IsConfigured() }

// SignUp registra la identidad; no abre sesión.
func (a *Auth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	return a.client.SignUp(ctx, email, password, metadata)
}

// SignIn abre sesión, la persiste y emite SIGNED_IN.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := a.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.save(ctx, s); err != nil {
		return nil, err
	}
	a.emit(Event{Type: EventSignedIn, UserID: s.User.ID, Email: s.User.Email})
	return s, nil
}

// GetSession devuelve la sesión persistida validada contra el proveedor; nil si no hay.
// Un token vencido se renueva con el refresh token; uno revocado se descarta.
func (a *Auth) GetSession(ctx context.Context) (*Session, error) {
	s, err := a.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	u, err := a.client.GetUser(ctx, s.AccessToken)
	if err == nil {
		s.User = *u
		return s, nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return nil, err
	}
	if s.RefreshToken != "" {
		refreshed, rerr := a.client.RefreshSession(ctx, s.RefreshToken)
		if rerr == nil {
			if err := a.save(ctx, refreshed); err != nil {
				return nil, err
			}
			return refreshed, nil
		}
		a.log.Debug().Err(rerr).Msg("no se pudo renovar la sesión de identidad")
	}
	a.log.Info().Str("user_id", s.User.ID).Msg("sesión de identidad expirada, se descarta")
	if err := a.tokens.Delete(ctx, TokenKey); err != nil {
		return nil, err
	}
	a.emit(Event{Type: EventSignedOut, UserID: s.User.ID, Email: s.User.Email})
	return nil, nil
}

// SignOut revoca el token (best-effort), borra la sesión persistida y emite SIGNED_OUT.
func (a *Auth) SignOut(ctx context.Context) error {
	s, err := a.load(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	var revokeErr error
	if s.AccessToken != "" {
		revokeErr = a.client.SignOut(ctx, s.AccessToken)
	}
	if err := a.tokens.Delete(ctx, TokenKey); err != nil {
		return err
	}
	a.emit(Event{Type: EventSignedOut, UserID: s.User.ID, Email: s.User.Email})
	return revokeErr
}

// NotifyUserUpdated emite USER_UPDATED para el usuario indicado.
func (a *Auth) NotifyUserUpdated(userID string) {
	a.emit(Event{Type: EventUserUpdated, UserID: userID})
}

// OnAuthStateChange suscribe fn a los eventos de sesión.
func (a *Auth) OnAuthStateChange(fn func(Event)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) emit(ev Event) {
	a.mu.Lock()
	fns := make([]func(Event), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (a *Auth) load(ctx context.Context) (*Session, error) {
	raw, ok, err := a.tokens.Get(ctx, TokenKey)
	if err != nil || !ok {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.AccessToken == "" {
		a.log.Warn().Err(err).Msg("sesión de identidad corrupta, se ignora")
		return nil, nil
	}
	return &s, nil
}

func (a *Auth) save(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializar sesión de identidad: %w", err)
	}
	return a.tokens.Set(ctx, TokenKey, string(b))
}
