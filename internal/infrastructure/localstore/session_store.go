package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/pkg/logger"
)

// legacyPasswords contraseñas aceptadas para registros sin hash cuando LegacyPasswords está activo.
var legacyPasswords = []string{"demo", "123456"}

// Config opciones del backend local.
type Config struct {
	BcryptCost      int
	LegacyPasswords bool
	Now             func() time.Time
}

// SessionStore backend local de sesiones sobre Store. Siempre disponible; sus errores son
// terminales (no hay otro backend detrás).
type SessionStore struct {
	store *Store
	cfg   Config
	log   *logger.Logger
}

var _ auth.LocalSessionStore = (*SessionStore)(nil)

// NewSessionStore construye el backend local.
func NewSessionStore(store *Store, cfg Config, log *logger.Logger) *SessionStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SessionStore{store: store, cfg: cfg, log: log.Component("localstore")}
}

func (s *SessionStore) Name() string    { return string(auth.SourceLocal) }
func (s *SessionStore) Available() bool { return true }

// Load resuelve usuario + empresa y solo entonces marca al usuario en línea y persiste la colección.
func (s *SessionStore) Load(ctx context.Context, userID, email string) (*entity.Account, error) {
	user, err := s.store.FindUserByIDOrEmail(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("local load: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("local load: %w", domain.ErrUserNotFound)
	}
	company, err := s.store.FindCompany(ctx, user.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("local load: %w", err)
	}
	if company == nil {
		return nil, fmt.Errorf("local load %s: %w", user.CompanyID, domain.ErrCompanyNotFound)
	}

	var found *entity.User
	err = s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		u := findActive(users, user.ID, "")
		if u == nil {
			return nil, domain.ErrUserNotFound
		}
		u.MarkOnline(s.cfg.Now())
		found = u.Clone()
		return users, nil
	})
	if err != nil {
		return nil, fmt.Errorf("local load: %w", err)
	}
	return &entity.Account{User: found, Company: company}, nil
}

// Authenticate busca el usuario activo por email y compara la contraseña con su hash bcrypt.
func (s *SessionStore) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.store.FindUserByIDOrEmail(ctx, "", email)
	if err != nil {
		return nil, fmt.Errorf("local authenticate: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if !s.passwordMatches(u.PasswordHash, password) {
		s.log.Debug().Str("user_id", u.ID).Msg("contraseña rechazada")
		return nil, domain.ErrInvalidCredentials
	}
	return u.Clone(), nil
}

func (s *SessionStore) passwordMatches(hash, password string) bool {
	if hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	if !s.cfg.LegacyPasswords {
		return false
	}
	for _, p := range legacyPasswords {
		if p == password {
			return true
		}
	}
	return false
}

// Restore devuelve el puntero de sesión persistido.
func (s *SessionStore) Restore(ctx context.Context) (*entity.SessionPointer, error) {
	return s.store.Session(ctx)
}

// CreateTenant agrega empresa + administrador. Rechaza emails ya usados por cualquier
// usuario local, activo o no.
func (s *SessionStore) CreateTenant(ctx context.Context, company *entity.Company, admin *entity.User, password string) error {
	users, err := s.store.Users(ctx)
	if err != nil {
		return fmt.Errorf("local create tenant: %w", err)
	}
	if emailTaken(users, admin.Email) {
		return domain.ErrEmailAlreadyExists
	}
	rec := admin.Clone()
	if rec.PasswordHash, err = hashPassword(password, s.cfg.BcryptCost); err != nil {
		return fmt.Errorf("local create tenant: hash: %w", err)
	}
	if err := s.insertUser(ctx, rec); err != nil {
		return err
	}
	if err := s.store.UpsertCompany(ctx, company.Clone()); err != nil {
		s.removeUser(ctx, rec.ID)
		return fmt.Errorf("local create tenant: %w", err)
	}
	return nil
}

// removeUser deshace el alta de un usuario; un fallo solo se registra.
func (s *SessionStore) removeUser(ctx context.Context, id string) {
	err := s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		out := users[:0]
		for _, u := range users {
			if u.ID != id {
				out = append(out, u)
			}
		}
		return out, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("no se pudo deshacer el alta del usuario")
	}
}

// AddMember agrega un usuario a una empresa existente.
func (s *SessionStore) AddMember(ctx context.Context, user *entity.User, password string) error {
	company, err := s.store.FindCompany(ctx, user.CompanyID)
	if err != nil {
		return fmt.Errorf("local add member: %w", err)
	}
	if company == nil {
		return domain.ErrCompanyNotFound
	}
	rec := user.Clone()
	if rec.PasswordHash, err = hashPassword(password, s.cfg.BcryptCost); err != nil {
		return fmt.Errorf("local add member: hash: %w", err)
	}
	return s.insertUser(ctx, rec)
}

func (s *SessionStore) insertUser(ctx context.Context, u *entity.User) error {
	err := s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		if emailTaken(users, u.Email) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return append(users, u), nil
	})
	if err != nil && !errors.Is(err, domain.ErrEmailAlreadyExists) {
		return fmt.Errorf("local insert user: %w", err)
	}
	return err
}

func emailTaken(users []*entity.User, email string) bool {
	for _, u := range users {
		if entity.SameEmail(u.Email, email) {
			return true
		}
	}
	return false
}

// UpdateUser aplica el patch al usuario activo.
func (s *SessionStore) UpdateUser(ctx context.Context, userID string, patch entity.UserPatch) error {
	return s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		u := findActive(users, userID, "")
		if u == nil {
			return nil, domain.ErrUserNotFound
		}
		patch.Apply(u)
		return users, nil
	})
}

// UpdateCompany aplica el patch a la empresa.
func (s *SessionStore) UpdateCompany(ctx context.Context, companyID string, patch entity.CompanyPatch) error {
	return s.store.UpdateCompanies(ctx, func(companies []*entity.Company) ([]*entity.Company, error) {
		for _, c := range companies {
			if c.ID == companyID {
				patch.Apply(c)
				return companies, nil
			}
		}
		return nil, domain.ErrCompanyNotFound
	})
}

// Members usuarios activos de la empresa, en orden de alta.
func (s *SessionStore) Members(ctx context.Context, companyID string) ([]*entity.User, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("local members: %w", err)
	}
	out := make([]*entity.User, 0, len(users))
	for _, u := range users {
		if u.IsActive && u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	return out, nil
}

// SignOut marca al usuario fuera de línea y borra el puntero de sesión.
func (s *SessionStore) SignOut(ctx context.Context, userID string) error {
	err := s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		if u := findActive(users, userID, ""); u != nil {
			u.Status = entity.StatusOffline
		}
		return users, nil
	})
	if cerr := s.store.ClearSession(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// EnsureAccount inserta la empresa y el usuario de la cuenta si aún no existen.
func (s *SessionStore) EnsureAccount(ctx context.Context, account *entity.Account) error {
	existing, err := s.store.FindCompany(ctx, account.Company.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := s.store.UpsertCompany(ctx, account.Company.Clone()); err != nil {
			return err
		}
	}
	return s.store.UpdateUsers(ctx, func(users []*entity.User) ([]*entity.User, error) {
		for _, u := range users {
			if u.ID == account.User.ID {
				return users, nil
			}
		}
		return append(users, account.User.Clone()), nil
	})
}

// Remember persiste el puntero de sesión.
func (s *SessionStore) Remember(ctx context.Context, ptr entity.SessionPointer) error {
	return s.store.SetSession(ctx, ptr)
}
