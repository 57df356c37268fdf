package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Store colecciones users/companies/session serializadas en un KV de perfil.
// Cada escritura reescribe la colección completa; no hay escrituras parciales.
type Store struct {
	kv       KV
	fixtures func() ([]*entity.User, []*entity.Company, error)
	mu       sync.Mutex
}

// NewStore construye el almacén. fixtures genera los datos semilla de Initialize.
func NewStore(kv KV, fixtures func() ([]*entity.User, []*entity.Company, error)) *Store {
	return &Store{kv: kv, fixtures: fixtures}
}

// Initialize siembra users y companies solo si la clave aún no existe. Las llamadas
// posteriores no cambian nada.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, hasUsers, err := s.kv.Get(ctx, KeyUsers)
	if err != nil {
		return err
	}
	_, hasCompanies, err := s.kv.Get(ctx, KeyCompanies)
	if err != nil {
		return err
	}
	if hasUsers && hasCompanies {
		return nil
	}
	if s.fixtures == nil {
		return nil
	}
	users, companies, err := s.fixtures()
	if err != nil {
		return fmt.Errorf("generar fixtures: %w", err)
	}
	if !hasCompanies {
		if err := s.saveCompanies(ctx, companies); err != nil {
			return err
		}
	}
	if !hasUsers {
		if err := s.saveUsers(ctx, users); err != nil {
			return err
		}
	}
	return nil
}

// Users lee la colección de usuarios.
func (s *Store) Users(ctx context.Context) ([]*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers(ctx)
}

// Companies lee la colección de empresas.
func (s *Store) Companies(ctx context.Context) ([]*entity.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCompanies(ctx)
}

// FindUserByIDOrEmail devuelve el primer usuario activo con ese id; si no hay, el primero
// activo con ese email. nil si ninguno coincide.
func (s *Store) FindUserByIDOrEmail(ctx context.Context, id, email string) (*entity.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	return findActive(users, id, email), nil
}

func findActive(users []*entity.User, id, email string) *entity.User {
	if id != "" {
		for _, u := range users {
			if u.IsActive && u.ID == id {
				return u
			}
		}
	}
	if email != "" {
		for _, u := range users {
			if u.IsActive && entity.SameEmail(u.Email, email) {
				return u
			}
		}
	}
	return nil
}

// FindCompany devuelve la empresa por id; nil si no existe.
func (s *Store) FindCompany(ctx context.Context, id string) (*entity.Company, error) {
	companies, err := s.Companies(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range companies {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// UpsertUser reemplaza por id (o agrega) y persiste la colección completa.
func (s *Store) UpsertUser(ctx context.Context, u *entity.User) error {
	return s.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		return upsertUser(users, u), nil
	})
}

// UpsertCompany reemplaza por id (o agrega) y persiste la colección completa.
func (s *Store) UpsertCompany(ctx context.Context, c *entity.Company) error {
	return s.UpdateCompanies(ctx, func(companies []*entity.Company) ([]*entity.Company, error) {
		return upsertCompany(companies, c), nil
	})
}

// UpdateUsers lectura-modificación-escritura atómica de la colección de usuarios.
func (s *Store) UpdateUsers(ctx context.Context, fn func([]*entity.User) ([]*entity.User, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	next, err := fn(users)
	if err != nil {
		return err
	}
	return s.saveUsers(ctx, next)
}

// UpdateCompanies lectura-modificación-escritura atómica de la colección de empresas.
func (s *Store) UpdateCompanies(ctx context.Context, fn func([]*entity.Company) ([]*entity.Company, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	companies, err := s.loadCompanies(ctx)
	if err != nil {
		return err
	}
	next, err := fn(companies)
	if err != nil {
		return err
	}
	return s.saveCompanies(ctx, next)
}

// Session devuelve el puntero de sesión; nil si no hay o está corrupto.
func (s *Store) Session(ctx context.Context) (*entity.SessionPointer, error) {
	raw, ok, err := s.kv.Get(ctx, KeySession)
	if err != nil || !ok {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.UserID == "" {
		return nil, nil
	}
	return &entity.SessionPointer{UserID: rec.UserID, Email: rec.Email, Timestamp: rec.Timestamp}, nil
}

// SetSession persiste el puntero de sesión.
func (s *Store) SetSession(ctx context.Context, ptr entity.SessionPointer) error {
	b, err := json.Marshal(sessionRecord{UserID: ptr.UserID, Email: ptr.Email, Timestamp: ptr.Timestamp})
	if err != nil {
		return fmt.Errorf("serializar sesión: %w", err)
	}
	return s.kv.Set(ctx, KeySession, string(b))
}

// ClearSession borra el puntero de sesión.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.kv.Delete(ctx, KeySession)
}

func upsertUser(users []*entity.User, u *entity.User) []*entity.User {
	for i, cur := range users {
		if cur.ID == u.ID {
			users[i] = u
			return users
		}
	}
	return append(users, u)
}

func upsertCompany(companies []*entity.Company, c *entity.Company) []*entity.Company {
	for i, cur := range companies {
		if cur.ID == c.ID {
			companies[i] = c
			return companies
		}
	}
	return append(companies, c)
}

func (s *Store) loadUsers(ctx context.Context) ([]*entity.User, error) {
	raw, ok, err := s.kv.Get(ctx, KeyUsers)
	if err != nil || !ok {
		return nil, err
	}
	var recs []userRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("decodificar %s: %w", KeyUsers, err)
	}
	out := make([]*entity.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (s *Store) saveUsers(ctx context.Context, users []*entity.User) error {
	recs := make([]userRecord, 0, len(users))
	for _, u := range users {
		recs = append(recs, toUserRecord(u))
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("serializar %s: %w", KeyUsers, err)
	}
	return s.kv.Set(ctx, KeyUsers, string(b))
}

func (s *Store) loadCompanies(ctx context.Context) ([]*entity.Company, error) {
	raw, ok, err := s.kv.Get(ctx, KeyCompanies)
	if err != nil || !ok {
		return nil, err
	}
	var recs []companyRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("decodificar %s: %w", KeyCompanies, err)
	}
	out := make([]*entity.Company, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (s *Store) saveCompanies(ctx context.Context, companies []*entity.Company) error {
	recs := make([]companyRecord, 0, len(companies))
	for _, c := range companies {
		recs = append(recs, toCompanyRecord(c))
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("serializar %s: %w", KeyCompanies, err)
	}
	return s.kv.Set(ctx, KeyCompanies, string(b))
}
