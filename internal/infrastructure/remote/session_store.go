package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/domain/repository"
	"github.com/jhoicas/insightos/internal/infrastructure/supabase"
	"github.com/jhoicas/insightos/pkg/logger"
)

// Identity sesión de identidad del perfil (la satisface *supabase.Auth).
type Identity interface {
	IsConfigured() bool
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.User, error)
	SignIn(ctx context.Context, email, password string) (*supabase.Session, error)
	GetSession(ctx context.Context) (*supabase.Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(supabase.Event)) (unsubscribe func())
}

// TxRunner ejecuta el alta de registros en una transacción (lo satisface *postgres.TxRunner).
type TxRunner interface {
	RunTenant(ctx context.Context, fn func(repository.CompanyRepository, repository.UserRepository) error) error
}

// Deps dependencias del backend remoto. Users/Companies/Tx nil = sin base de datos.
type Deps struct {
	Identity  Identity
	Users     repository.UserRepository
	Companies repository.CompanyRepository
	Tx        TxRunner
	Timeout   time.Duration
	Now       func() time.Time
}

// SessionStore backend remoto: registros en la base alojada + identidad del proveedor.
// Todo fallo se envuelve en domain.ErrRemote para que el llamador continúe con el almacén
// local; la única excepción es un email inexistente en Authenticate, que es terminal.
type SessionStore struct {
	d   Deps
	log *logger.Logger
}

var (
	_ auth.SessionStore    = (*SessionStore)(nil)
	_ auth.AuthEventSource = (*SessionStore)(nil)
)

// NewSessionStore construye el backend remoto.
func NewSessionStore(d Deps, log *logger.Logger) *SessionStore {
	if d.Timeout <= 0 {
		d.Timeout = 8 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SessionStore{d: d, log: log.Component("remote")}
}

func (s *SessionStore) Name() string { return string(auth.SourceRemote) }

// Available exige proveedor configurado y acceso a los registros.
func (s *SessionStore) Available() bool {
	return s.d.Identity != nil && s.d.Identity.IsConfigured() &&
		s.d.Users != nil && s.d.Companies != nil
}

func (s *SessionStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.d.Timeout)
}

// remoteErr envuelve err como fallo remoto y lo registra.
func (s *SessionStore) remoteErr(op string, err error) error {
	s.log.Warn().Err(err).Str("op", op).Msg("operación remota fallida")
	if domain.IsFallback(err) {
		return fmt.Errorf("remote %s: %w", op, err)
	}
	return fmt.Errorf("remote %s: %v: %w", op, err, domain.ErrRemote)
}

func (s *SessionStore) guard(op string) error {
	if !s.Available() {
		return fmt.Errorf("remote %s: %w", op, domain.ErrNotConfigured)
	}
	return nil
}

// Load busca usuario activo + empresa; lo marca en línea (best-effort).
func (s *SessionStore) Load(ctx context.Context, userID, email string) (*entity.Account, error) {
	if err := s.guard("load"); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var acc *entity.Account
	var err error
	if userID != "" {
		acc, err = s.d.Users.GetActiveAccount(ctx, userID)
	}
	if err == nil && acc == nil && email != "" {
		acc, err = s.d.Users.GetActiveAccountByEmail(ctx, email)
	}
	if err != nil {
		return nil, s.remoteErr("load", err)
	}
	if acc == nil {
		return nil, s.remoteErr("load", domain.ErrUserNotFound)
	}

	now := s.d.Now()
	if err := s.d.Users.MarkOnline(ctx, acc.User.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", acc.User.ID).Msg("no se pudo marcar en línea")
	}
	acc.User.MarkOnline(now)
	return acc, nil
}

// Authenticate busca el usuario activo por email e inicia sesión en el proveedor.
func (s *SessionStore) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if err := s.guard("authenticate"); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u, err := s.d.Users.FindActiveByEmail(ctx, email)
	if err != nil {
		return nil, s.remoteErr("authenticate", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if _, err := s.d.Identity.SignIn(ctx, email, password); err != nil {
		return nil, s.remoteErr("sign in", err)
	}
	return u, nil
}

// Restore devuelve la sesión de identidad persistida; nil si no hay.
func (s *SessionStore) Restore(ctx context.Context) (*entity.SessionPointer, error) {
	if err := s.guard("restore"); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.d.Identity.GetSession(ctx)
	if err != nil {
		return nil, s.remoteErr("restore", err)
	}
	if sess == nil || sess.User.ID == "" {
		return nil, nil
	}
	return &entity.SessionPointer{UserID: sess.User.ID, Email: sess.User.Email, Timestamp: s.d.Now()}, nil
}

// CreateTenant inserta empresa y administrador y registra la identidad, todo en una transacción:
// si el alta de identidad falla no quedan registros.
func (s *SessionStore) CreateTenant(ctx context.Context, company *entity.Company, admin *entity.User, password string) error {
	if err := s.guard("create tenant"); err != nil {
		return err
	}
	if s.d.Tx == nil {
		return fmt.Errorf("remote create tenant: sin transacciones: %w", domain.ErrNotConfigured)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.d.Tx.RunTenant(ctx, func(companies repository.CompanyRepository, users repository.UserRepository) error {
		if err := companies.Create(ctx, company); err != nil {
			return err
		}
		if err := users.Create(ctx, admin); err != nil {
			return err
		}
		_, err := s.d.Identity.SignUp(ctx, admin.Email, password, identityMetadata(admin))
		return err
	})
	if err != nil {
		return s.remoteErr("create tenant", err)
	}
	return nil
}

// AddMember inserta el usuario y, si trae contraseña, registra su identidad.
func (s *SessionStore) AddMember(ctx context.Context, user *entity.User, password string) error {
	if err := s.guard("add member"); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	create := func(users repository.UserRepository) error {
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		if password == "" {
			return nil
		}
		_, err := s.d.Identity.SignUp(ctx, user.Email, password, identityMetadata(user))
		return err
	}
	var err error
	if s.d.Tx != nil {
		err = s.d.Tx.RunTenant(ctx, func(_ repository.CompanyRepository, users repository.UserRepository) error {
			return create(users)
		})
	} else {
		err = create(s.d.Users)
	}
	if err != nil {
		return s.remoteErr("add member", err)
	}
	return nil
}

func identityMetadata(u *entity.User) map[string]any {
	return map[string]any{
		"name":       u.Name,
		"company_id": u.CompanyID,
		"role":       string(u.Role),
	}
}

// UpdateUser actualiza los campos presentes del patch.
func (s *SessionStore) UpdateUser(ctx context.Context, userID string, patch entity.UserPatch) error {
	if err := s.guard("update user"); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.d.Users.Update(ctx, userID, patch); err != nil {
		return s.remoteErr("update user", err)
	}
	return nil
}

// UpdateCompany actualiza los campos presentes del patch.
func (s *SessionStore) UpdateCompany(ctx context.Context, companyID string, patch entity.CompanyPatch) error {
	if err := s.guard("update company"); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.d.Companies.Update(ctx, companyID, patch); err != nil {
		return s.remoteErr("update company", err)
	}
	return nil
}

// Members lista los usuarios activos de la empresa. Una empresa que no existe en la base
// remota (alta hecha solo en local) es un fallo remoto, no una lista vacía.
func (s *SessionStore) Members(ctx context.Context, companyID string) ([]*entity.User, error) {
	if err := s.guard("members"); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	company, err := s.d.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, s.remoteErr("members", err)
	}
	if company == nil {
		return nil, s.remoteErr("members", domain.ErrCompanyNotFound)
	}
	users, err := s.d.Users.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, s.remoteErr("members", err)
	}
	return users, nil
}

// SignOut cierra la sesión de identidad y marca al usuario fuera de línea.
func (s *SessionStore) SignOut(ctx context.Context, userID string) error {
	if err := s.guard("sign out"); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var errs []error
	if err := s.d.Identity.SignOut(ctx); err != nil {
		errs = append(errs, fmt.Errorf("identidad: %w", err))
	}
	if userID != "" {
		if err := s.d.Users.MarkOffline(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return s.remoteErr("sign out", err)
	}
	return nil
}

// OnAuthStateChange traduce los eventos del proveedor de identidad.
func (s *SessionStore) OnAuthStateChange(fn func(auth.AuthEvent)) (unsubscribe func()) {
	if s.d.Identity == nil {
		return func() {}
	}
	return s.d.Identity.OnAuthStateChange(func(ev supabase.Event) {
		fn(auth.AuthEvent{Type: ev.Type, UserID: ev.UserID, Email: ev.Email})
	})
}
