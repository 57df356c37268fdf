package auth

import (
	"sort"
	"sync"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Source backend que satisfizo la sesión.
type Source string

const (
	SourceNone   Source = ""
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceDemo   Source = "demo"
)

// State proyección observable de la sesión actual (AuthState).
// User y Company siempre llegan juntos: o ambos presentes, o ambos nil.
type State struct {
	IsAuthenticated bool
	User            *entity.User
	Company         *entity.Company
	Loading         bool
	Error           string
	Source          Source
}

func (s State) clone() State {
	s.User = s.User.Clone()
	s.Company = s.Company.Clone()
	return s
}

// authenticated nunca expone el hash de contraseña en el estado publicado.
func authenticated(acc *entity.Account, src Source) State {
	user := acc.User.Clone()
	user.PasswordHash = ""
	return State{IsAuthenticated: true, User: user, Company: acc.Company.Clone(), Source: src}
}

func unauthenticated(msg string) State {
	return State{Error: msg}
}

// StateStore contenedor observable con un único escritor: el AuthUseCase del perfil.
// El estado se reemplaza completo; los lectores reciben copias.
type StateStore struct {
	mu   sync.RWMutex
	cur  State
	subs map[int]func(State)
	next int
}

// NewStateStore arranca en {Loading: true} hasta la primera resolución.
func NewStateStore() *StateStore {
	return &StateStore{cur: State{Loading: true}, subs: map[int]func(State){}}
}

// Get devuelve una copia del estado actual.
func (s *StateStore) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Subscribe registra fn para cada nuevo estado publicado.
func (s *StateStore) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *StateStore) publish(st State) {
	s.mu.Lock()
	s.cur = st.clone()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st.clone())
	}
}
