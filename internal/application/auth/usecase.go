package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/pkg/logger"
)

// AuthUseCase contexto de autenticación de un perfil: resuelve la sesión al arrancar y expone
// login, registro, logout y mutaciones. Es el único escritor de su StateStore y admite a lo
// sumo una operación en curso; las solapadas se rechazan con domain.ErrOperationInProgress.
type AuthUseCase struct {
	remote SessionStore // nil si el perfil no tiene backend remoto
	local  LocalSessionStore
	chain  *FallbackSessionStore
	state  *StateStore
	log    *logger.Logger

	inflight sync.Mutex
	now      func() time.Time
	newID    func() string
	unsubs   []func()
}

// Option ajusta dependencias del caso de uso (tests).
type Option func(*AuthUseCase)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(uc *AuthUseCase) { uc.now = now }
}

// WithIDGenerator reemplaza el generador de ids.
func WithIDGenerator(gen func() string) Option {
	return func(uc *AuthUseCase) { uc.newID = gen }
}

// NewAuthUseCase construye el caso de uso. remote puede ser nil; local es obligatorio.
func NewAuthUseCase(remote SessionStore, local LocalSessionStore, log *logger.Logger, opts ...Option) *AuthUseCase {
	if log == nil {
		log = logger.Nop()
	}
	uc := &AuthUseCase{
		remote: remote,
		local:  local,
		state:  NewStateStore(),
		log:    log.Component("auth"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.chain = NewFallbackSessionStore(uc.log, remote, local)

	for _, s := range uc.chain.Stores() {
		if src, ok := s.(AuthEventSource); ok {
			uc.unsubs = append(uc.unsubs, src.OnAuthStateChange(uc.onAuthEvent))
		}
	}
	return uc
}

// Close libera las suscripciones a eventos de identidad.
func (uc *AuthUseCase) Close() {
	for _, fn := range uc.unsubs {
		fn()
	}
	uc.unsubs = nil
}

// State devuelve el AuthState actual.
func (uc *AuthUseCase) State() State {
	return uc.state.Get()
}

// Subscribe observa los cambios de AuthState.
func (uc *AuthUseCase) Subscribe(fn func(State)) (unsubscribe func()) {
	return uc.state.Subscribe(fn)
}

// RemoteConfigured informa si el camino remoto se intentará.
func (uc *AuthUseCase) RemoteConfigured() bool {
	return uc.remote != nil && uc.remote.Available()
}

func (uc *AuthUseCase) begin() (func(), error) {
	if !uc.inflight.TryLock() {
		return nil, domain.ErrOperationInProgress
	}
	return uc.inflight.Unlock, nil
}

// busy estado devuelto a una llamada rechazada: no toca el estado publicado.
func (uc *AuthUseCase) busy() (State, error) {
	return uc.state.Get(), domain.ErrOperationInProgress
}

// fail publica un estado no autenticado con el mensaje del error.
func (uc *AuthUseCase) fail(op string, err error) State {
	uc.log.Info().Err(err).Str("op", op).Msg("operación de autenticación fallida")
	st := unauthenticated(domain.UserMessage(err))
	uc.state.publish(st)
	return st
}

// failKeep publica el error conservando la sesión (operaciones de actualización).
func (uc *AuthUseCase) failKeep(op string, err error) State {
	uc.log.Info().Err(err).Str("op", op).Msg("actualización fallida")
	st := uc.state.Get()
	st.Loading = false
	st.Error = domain.UserMessage(err)
	uc.state.publish(st)
	return st
}

// startLoading publica {Loading:true} conservando el resto del estado.
func (uc *AuthUseCase) startLoading() {
	st := uc.state.Get()
	st.Loading = true
	st.Error = ""
	uc.state.publish(st)
}

// onAuthEvent limpia el estado ante un SIGNED_OUT del usuario de la sesión emitido fuera de
// las operaciones propias (Bootstrap y Logout publican su propio resultado). El id de identidad
// no coincide con el de users, así que se compara por email cuando el evento lo trae.
func (uc *AuthUseCase) onAuthEvent(ev AuthEvent) {
	if ev.Type != EventSignedOut {
		return
	}
	if !uc.inflight.TryLock() {
		return
	}
	defer uc.inflight.Unlock()
	cur := uc.state.Get()
	if cur.User == nil || !sameEventUser(cur.User, ev) {
		return
	}
	uc.log.Info().Str("user_id", cur.User.ID).Msg("sesión remota cerrada, se limpia el estado")
	uc.state.publish(State{})
}

func sameEventUser(u *entity.User, ev AuthEvent) bool {
	if ev.Email != "" {
		return entity.SameEmail(u.Email, ev.Email)
	}
	return ev.UserID != "" && u.ID == ev.UserID
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
