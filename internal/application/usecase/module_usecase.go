package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// profileSource entrega el contexto de autenticación de un perfil (lo implementa *auth.Profiles).
type profileSource interface {
	Get(ctx context.Context, profile string) (*auth.AuthUseCase, error)
}

// ModuleService verifica qué módulos tiene activos la empresa de la sesión.
// Es el único punto de la aplicación que conoce la lógica de activación de módulos.
type ModuleService struct {
	profiles profileSource
}

// NewModuleService construye el servicio de módulos.
func NewModuleService(profiles profileSource) *ModuleService {
	return &ModuleService{profiles: profiles}
}

// HasActiveModule informa si la empresa tiene el módulo habilitado y su plan lo permite.
// Devuelve false (sin error) si la sesión del perfil pertenece a otra empresa.
// Devuelve domain.ErrNotAuthenticated si el perfil no tiene sesión.
func (s *ModuleService) HasActiveModule(ctx context.Context, profile, companyID, moduleName string) (bool, error) {
	if companyID == "" || moduleName == "" {
		return false, fmt.Errorf("module: companyID y moduleName son obligatorios: %w", domain.ErrInvalidInput)
	}
	uc, err := s.profiles.Get(ctx, profile)
	if err != nil {
		return false, err
	}
	st := uc.State()
	if !st.IsAuthenticated || st.Company == nil {
		return false, domain.ErrNotAuthenticated
	}
	if st.Company.ID != companyID {
		return false, nil
	}
	return moduleActive(st.Company, moduleName), nil
}

func moduleActive(c *entity.Company, module string) bool {
	if !c.HasModule(module) {
		return false
	}
	plan, ok := entity.PlanByName(c.Plan)
	return ok && plan.Allows(module)
}
