package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/domain/repository"
)

var _ repository.PlanRepository = (*PlanRepo)(nil)

// PlanRepo lee la tabla plans; monthly_price es NUMERIC y se escanea a decimal.Decimal.
type PlanRepo struct {
	q Querier
}

// NewPlanRepository construye el adaptador del catálogo de planes.
func NewPlanRepository(q Querier) *PlanRepo {
	return &PlanRepo{q: q}
}

// List devuelve los planes ordenados por precio.
func (r *PlanRepo) List(ctx context.Context) ([]entity.Plan, error) {
	rows, err := r.q.Query(ctx, `SELECT name, monthly_price, modules FROM plans ORDER BY monthly_price, name`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var list []entity.Plan
	for rows.Next() {
		var (
			p     entity.Plan
			price decimal.Decimal
		)
		if err := rows.Scan(&p.Name, &price, &p.Modules); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.MonthlyPrice = price
		list = append(list, p)
	}
	return list, rows.Err()
}
