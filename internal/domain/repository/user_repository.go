package repository

import (
	"context"
	"time"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// UserRepository define el puerto de persistencia remota para User (DIP).
// Las búsquedas devuelven (nil, nil) cuando no hay coincidencia.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	// GetActiveAccount usuario activo por id junto con su empresa.
	GetActiveAccount(ctx context.Context, id string) (*entity.Account, error)
	// GetActiveAccountByEmail igual que GetActiveAccount, buscando por email.
	GetActiveAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindActiveByEmail(ctx context.Context, email string) (*entity.User, error)
	MarkOnline(ctx context.Context, id string, at time.Time) error
	MarkOffline(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch entity.UserPatch) error
	ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.User, error)
}
