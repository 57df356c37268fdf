package repository

import (
	"context"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// PlanRepository catálogo de planes publicado por el servicio remoto.
type PlanRepository interface {
	List(ctx context.Context) ([]entity.Plan, error)
}
