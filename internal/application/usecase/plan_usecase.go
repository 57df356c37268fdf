package usecase

import (
	"context"
	"time"

	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/domain/repository"
	"github.com/jhoicas/insightos/pkg/logger"
)

// PlanService expone el catálogo de planes. Los módulos de cada plan son siempre los del
// catálogo embebido; la tabla remota solo puede sobrescribir precios.
type PlanService struct {
	repo    repository.PlanRepository // nil = sin base de datos
	timeout time.Duration
	log     *logger.Logger
}

// NewPlanService construye el servicio. repo puede ser nil.
func NewPlanService(repo repository.PlanRepository, timeout time.Duration, log *logger.Logger) *PlanService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PlanService{repo: repo, timeout: timeout, log: log.Component("plans")}
}

// List devuelve el catálogo con los precios remotos cuando están disponibles.
// Un fallo remoto no es error: se devuelve el catálogo embebido.
func (s *PlanService) List(ctx context.Context) []entity.Plan {
	plans := entity.Plans()
	if s.repo == nil {
		return plans
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	remote, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("no se pudo leer el catálogo remoto, se usan precios embebidos")
		return plans
	}
	prices := make(map[string]entity.Plan, len(remote))
	for _, p := range remote {
		prices[p.Name] = p
	}
	for i, p := range plans {
		if r, ok := prices[p.Name]; ok && !r.MonthlyPrice.IsNegative() {
			plans[i].MonthlyPrice = r.MonthlyPrice
		}
	}
	return plans
}
