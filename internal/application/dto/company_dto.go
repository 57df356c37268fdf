package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// WorkingHoursDTO horario laboral HH:MM.
type WorkingHoursDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NotificationsDTO canales de notificación.
type NotificationsDTO struct {
	Email   bool `json:"email"`
	Push    bool `json:"push"`
	Desktop bool `json:"desktop"`
}

// SettingsDTO preferencias de la empresa.
type SettingsDTO struct {
	Timezone      string           `json:"timezone"`
	Currency      string           `json:"currency"`
	Language      string           `json:"language"`
	WorkingHours  WorkingHoursDTO  `json:"working_hours"`
	Notifications NotificationsDTO `json:"notifications"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Plan      string      `json:"plan"`
	Industry  string      `json:"industry,omitempty"`
	Size      string      `json:"size,omitempty"`
	Address   string      `json:"address,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Website   string      `json:"website,omitempty"`
	Settings  SettingsDTO `json:"settings"`
	Modules   []string    `json:"modules"`
	CreatedAt time.Time   `json:"created_at"`
}

// UpdateCompanyRequest entrada para actualizar la empresa de la sesión (campos opcionales).
type UpdateCompanyRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=200"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Plan     *string      `json:"plan" validate:"omitempty,oneof=free business enterprise"`
	Industry *string      `json:"industry"`
	Size     *string      `json:"size"`
	Address  *string      `json:"address"`
	Phone    *string      `json:"phone"`
	Website  *string      `json:"website"`
	Settings *SettingsDTO `json:"settings"`
	Modules  *[]string    `json:"modules"`
}

// Patch traduce la petición al patch de dominio.
func (r UpdateCompanyRequest) Patch() entity.CompanyPatch {
	p := entity.CompanyPatch{
		Name:     r.Name,
		Email:    r.Email,
		Plan:     r.Plan,
		Industry: r.Industry,
		Size:     r.Size,
		Address:  r.Address,
		Phone:    r.Phone,
		Website:  r.Website,
		Modules:  r.Modules,
	}
	if r.Settings != nil {
		s := r.Settings.toEntity()
		p.Settings = &s
	}
	return p
}

func (s SettingsDTO) toEntity() entity.CompanySettings {
	return entity.CompanySettings{
		Timezone:      s.Timezone,
		Currency:      s.Currency,
		Language:      s.Language,
		WorkingHours:  entity.WorkingHours{Start: s.WorkingHours.Start, End: s.WorkingHours.End},
		Notifications: entity.NotificationSettings(s.Notifications),
	}
}

// NewCompanyResponse mapea la entidad; nil si c es nil.
func NewCompanyResponse(c *entity.Company) *CompanyResponse {
	if c == nil {
		return nil
	}
	return &CompanyResponse{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Plan:     c.Plan,
		Industry: c.Industry,
		Size:     c.Size,
		Address:  c.Address,
		Phone:    c.Phone,
		Website:  c.Website,
		Settings: SettingsDTO{
			Timezone:      c.Settings.Timezone,
			Currency:      c.Settings.Currency,
			Language:      c.Settings.Language,
			WorkingHours:  WorkingHoursDTO{Start: c.Settings.WorkingHours.Start, End: c.Settings.WorkingHours.End},
			Notifications: NotificationsDTO(c.Settings.Notifications),
		},
		Modules:   append([]string{}, c.Modules...),
		CreatedAt: c.CreatedAt,
	}
}

// PlanResponse plan del catálogo con su precio mensual.
type PlanResponse struct {
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Modules      []string        `json:"modules"`
}

// NewPlanResponses mapea el catálogo.
func NewPlanResponses(plans []entity.Plan) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanResponse{Name: p.Name, MonthlyPrice: p.MonthlyPrice, Modules: append([]string{}, p.Modules...)})
	}
	return out
}
