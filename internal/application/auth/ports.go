package auth

import (
	"context"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// SessionStore backend capaz de resolver y mutar sesiones (servicio remoto o almacén local).
// Las implementaciones señalan con domain.ErrRemote / domain.ErrNotConfigured los fallos que
// permiten continuar con el siguiente backend; cualquier otro error es terminal.
type SessionStore interface {
	// Name identifica el backend en logs y en State.Source.
	Name() string
	// Available informa si el backend puede intentarse (el remoto exige configuración).
	Available() bool

	// Load busca el usuario activo por id (o por email) con su empresa y lo marca en línea.
	Load(ctx context.Context, userID, email string) (*entity.Account, error)
	// Authenticate verifica credenciales y devuelve el usuario activo.
	Authenticate(ctx context.Context, email, password string) (*entity.User, error)
	// Restore devuelve la sesión persistida por este backend; nil si no hay.
	Restore(ctx context.Context) (*entity.SessionPointer, error)

	CreateTenant(ctx context.Context, company *entity.Company, admin *entity.User, password string) error
	AddMember(ctx context.Context, user *entity.User, password string) error
	UpdateUser(ctx context.Context, userID string, patch entity.UserPatch) error
	UpdateCompany(ctx context.Context, companyID string, patch entity.CompanyPatch) error
	Members(ctx context.Context, companyID string) ([]*entity.User, error)

	// SignOut cierra la sesión del backend y marca al usuario fuera de línea (best-effort).
	SignOut(ctx context.Context, userID string) error
}

// LocalSessionStore capacidades adicionales del almacén local.
type LocalSessionStore interface {
	SessionStore
	// EnsureAccount inserta el par usuario/empresa si no existe (cuenta demo).
	EnsureAccount(ctx context.Context, account *entity.Account) error
	// Remember persiste el puntero de sesión.
	Remember(ctx context.Context, ptr entity.SessionPointer) error
}

// Tipos de evento de identidad.
const (
	EventSignedIn    = "SIGNED_IN"
	EventSignedOut   = "SIGNED_OUT"
	EventUserUpdated = "USER_UPDATED"
)

// AuthEvent cambio de estado notificado por el proveedor de identidad.
type AuthEvent struct {
	Type   string
	UserID string
	Email  string
}

// AuthEventSource backend que notifica cambios de sesión (onAuthStateChange).
type AuthEventSource interface {
	OnAuthStateChange(fn func(AuthEvent)) (unsubscribe func())
}
