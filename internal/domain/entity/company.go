package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Planes de suscripción de una empresa.
const (
	PlanFree       = "free"
	PlanBusiness   = "business"
	PlanEnterprise = "enterprise"
)

// Company representa una organización/tenant del sistema.
type Company struct {
	ID        string
	Name      string
	Email     string
	Plan      string // free, business, enterprise
	Industry  string
	Size      string
	Address   string
	Phone     string
	Website   string
	Settings  CompanySettings
	Modules   []string // módulos habilitados; "core" siempre presente
	CreatedAt time.Time
}

// Clone devuelve una copia profunda.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Modules = append([]string(nil), c.Modules...)
	return &cp
}

// HasModule informa si el módulo está habilitado en la empresa.
func (c *Company) HasModule(module string) bool {
	for _, m := range c.Modules {
		if m == module {
			return true
		}
	}
	return false
}

// CompanySettings preferencias de la empresa.
type CompanySettings struct {
	Timezone      string
	Currency      string
	Language      string
	WorkingHours  WorkingHours
	Notifications NotificationSettings
}

// WorkingHours horario laboral en formato HH:MM.
type WorkingHours struct {
	Start string
	End   string
}

// NotificationSettings canales de notificación habilitados.
type NotificationSettings struct {
	Email   bool
	Push    bool
	Desktop bool
}

// DefaultSettings valores usados cuando un registro no trae settings.
func DefaultSettings() CompanySettings {
	return CompanySettings{
		Timezone:      "UTC",
		Currency:      "USD",
		Language:      "es",
		WorkingHours:  WorkingHours{Start: "09:00", End: "18:00"},
		Notifications: NotificationSettings{Email: true, Push: true, Desktop: false},
	}
}

// CompanyPatch actualización parcial de una empresa; nil = campo sin cambios.
type CompanyPatch struct {
	Name     *string
	Email    *string
	Plan     *string
	Industry *string
	Size     *string
	Address  *string
	Phone    *string
	Website  *string
	Settings *CompanySettings
	Modules  *[]string
}

// IsEmpty informa si el patch no cambia nada.
func (p CompanyPatch) IsEmpty() bool {
	return p == (CompanyPatch{})
}

// Apply fusiona los campos presentes sobre c.
func (p CompanyPatch) Apply(c *Company) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Plan != nil {
		c.Plan = *p.Plan
	}
	if p.Industry != nil {
		c.Industry = *p.Industry
	}
	if p.Size != nil {
		c.Size = *p.Size
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Website != nil {
		c.Website = *p.Website
	}
	if p.Settings != nil {
		c.Settings = *p.Settings
	}
	if p.Modules != nil {
		c.Modules = append([]string(nil), (*p.Modules)...)
	}
}

// Módulos disponibles en el catálogo.
const (
	ModuleCore      = "core"
	ModuleProjects  = "projects"
	ModuleCRM       = "crm"
	ModuleHR        = "hr"
	ModuleMessaging = "messaging"
	ModuleAnalytics = "analytics"
	ModuleFinance   = "finance"
	ModuleInventory = "inventory"
)

// ModuleCatalog módulos que una empresa puede habilitar, en orden de presentación.
var ModuleCatalog = []string{
	ModuleCore, ModuleProjects, ModuleCRM, ModuleHR,
	ModuleMessaging, ModuleAnalytics, ModuleFinance, ModuleInventory,
}

// Plan describe qué módulos se pueden activar y su precio mensual.
type Plan struct {
	Name         string
	MonthlyPrice decimal.Decimal
	Modules      []string
}

// Allows informa si el plan permite el módulo.
func (p Plan) Allows(module string) bool {
	for _, m := range p.Modules {
		if m == module {
			return true
		}
	}
	return false
}

var plans = []Plan{
	{
		Name:         PlanFree,
		MonthlyPrice: decimal.Zero,
		Modules:      []string{ModuleCore, ModuleProjects, ModuleMessaging},
	},
	{
		Name:         PlanBusiness,
		MonthlyPrice: decimal.RequireFromString("29.00"),
		Modules:      []string{ModuleCore, ModuleProjects, ModuleMessaging, ModuleCRM, ModuleHR, ModuleAnalytics},
	},
	{
		Name:         PlanEnterprise,
		MonthlyPrice: decimal.RequireFromString("99.00"),
		Modules:      ModuleCatalog,
	},
}

// Plans devuelve el catálogo de planes.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// PlanByName busca un plan por nombre.
func PlanByName(name string) (Plan, bool) {
	for _, p := range plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// IsCatalogModule informa si el módulo existe en el catálogo.
func IsCatalogModule(module string) bool {
	for _, m := range ModuleCatalog {
		if m == module {
			return true
		}
	}
	return false
}

// NormalizeModules valida la lista contra el catálogo y el plan; agrega "core" si falta
// y elimina duplicados. Devuelve el primer módulo rechazado cuando ok=false.
func NormalizeModules(planName string, modules []string) (out []string, rejected string, ok bool) {
	plan, found := PlanByName(planName)
	if !found {
		return nil, planName, false
	}
	seen := map[string]bool{ModuleCore: true}
	out = []string{ModuleCore}
	for _, m := range modules {
		if seen[m] {
			continue
		}
		if !IsCatalogModule(m) || !plan.Allows(m) {
			return nil, m, false
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, "", true
}
