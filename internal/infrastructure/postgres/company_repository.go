package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para empresas. Pasar pool o tx.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

const companyColumns = `
	c.id, c.name, c.email, c.plan, COALESCE(c.industry, ''), COALESCE(c.size, ''),
	COALESCE(c.address, ''), COALESCE(c.phone, ''), COALESCE(c.website, ''),
	c.settings, c.modules, c.created_at`

type companyRow struct {
	ID, Name, Email, Plan                   string
	Industry, Size, Address, Phone, Website string
	Settings                                []byte
	Modules                                 []string
	CreatedAt                               time.Time
}

func (r *companyRow) targets() []any {
	return []any{
		&r.ID, &r.Name, &r.Email, &r.Plan, &r.Industry, &r.Size,
		&r.Address, &r.Phone, &r.Website,
		&r.Settings, &r.Modules, &r.CreatedAt,
	}
}

type settingsJSON struct {
	Timezone     string `json:"timezone"`
	Currency     string `json:"currency"`
	Language     string `json:"language"`
	WorkingHours struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"working_hours"`
	Notifications struct {
		Email   bool `json:"email"`
		Push    bool `json:"push"`
		Desktop bool `json:"desktop"`
	} `json:"notifications"`
}

// toEntity mapea el registro; settings NULL o vacío toma los valores por defecto.
func (r *companyRow) toEntity() (*entity.Company, error) {
	settings := entity.DefaultSettings()
	if len(r.Settings) > 0 && string(r.Settings) != "null" {
		var s settingsJSON
		if err := json.Unmarshal(r.Settings, &s); err != nil {
			return nil, fmt.Errorf("decodificar settings de %s: %w", r.ID, err)
		}
		settings = entity.CompanySettings{
			Timezone:      s.Timezone,
			Currency:      s.Currency,
			Language:      s.Language,
			WorkingHours:  entity.WorkingHours{Start: s.WorkingHours.Start, End: s.WorkingHours.End},
			Notifications: entity.NotificationSettings(s.Notifications),
		}
	}
	modules := r.Modules
	if len(modules) == 0 {
		modules = []string{entity.ModuleCore}
	}
	plan := r.Plan
	if plan == "" {
		plan = entity.PlanFree
	}
	return &entity.Company{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Plan:      plan,
		Industry:  r.Industry,
		Size:      r.Size,
		Address:   r.Address,
		Phone:     r.Phone,
		Website:   r.Website,
		Settings:  settings,
		Modules:   modules,
		CreatedAt: r.CreatedAt,
	}, nil
}

func encodeSettings(s entity.CompanySettings) ([]byte, error) {
	var out settingsJSON
	out.Timezone = s.Timezone
	out.Currency = s.Currency
	out.Language = s.Language
	out.WorkingHours.Start = s.WorkingHours.Start
	out.WorkingHours.End = s.WorkingHours.End
	out.Notifications.Email = s.Notifications.Email
	out.Notifications.Push = s.Notifications.Push
	out.Notifications.Desktop = s.Notifications.Desktop
	return json.Marshal(out)
}

// Create persiste una nueva empresa.
func (r *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	settings, err := encodeSettings(company.Settings)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	query := `
		INSERT INTO companies (id, name, email, plan, industry, size, address, phone, website,
			settings, modules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	_, err = r.q.Exec(ctx, query,
		company.ID, company.Name, company.Email, company.Plan,
		nullable(company.Industry), nullable(company.Size), nullable(company.Address),
		nullable(company.Phone), nullable(company.Website),
		settings, company.Modules, company.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert company %s: %w", company.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies c WHERE c.id = $1`
	var row companyRow
	if err := r.q.QueryRow(ctx, query, id).Scan(row.targets()...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return row.toEntity()
}

// Update aplica solo los campos presentes del patch.
func (r *CompanyRepo) Update(ctx context.Context, id string, patch entity.CompanyPatch) error {
	set := newSetBuilder()
	set.add("name", patch.Name)
	set.add("email", patch.Email)
	set.add("plan", patch.Plan)
	set.add("industry", patch.Industry)
	set.add("size", patch.Size)
	set.add("address", patch.Address)
	set.add("phone", patch.Phone)
	set.add("website", patch.Website)
	if patch.Settings != nil {
		settings, err := encodeSettings(*patch.Settings)
		if err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		set.put("settings", settings)
	}
	if patch.Modules != nil {
		set.put("modules", *patch.Modules)
	}
	if set.empty() {
		return nil
	}
	query, args := set.build("companies", "id = $%d", id)
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompanyNotFound
	}
	return nil
}
