package auth

import (
	"strings"
	"time"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Cuenta demo reservada. El acceso demo no depende de ningún backend.
const (
	DemoUserID    = "11111111-1111-4111-8111-111111111111"
	DemoCompanyID = "22222222-2222-4222-8222-222222222222"
	DemoPassword  = "demo"
)

// DemoEmails direcciones reservadas que activan el atajo demo.
var DemoEmails = []string{"demo@insightos.com", "admin@insightos.com"}

// IsDemoLogin informa si las credenciales corresponden al atajo demo.
func IsDemoLogin(email, password string) bool {
	if password != DemoPassword {
		return false
	}
	for _, e := range DemoEmails {
		if entity.SameEmail(e, email) {
			return true
		}
	}
	return false
}

// DemoAccount par usuario/empresa de la demo, sin hash (el atajo no verifica contraseña).
func DemoAccount(now time.Time) *entity.Account {
	join := time.Date(2023, time.January, 9, 0, 0, 0, 0, time.UTC)
	company := &entity.Company{
		ID:        DemoCompanyID,
		Name:      "InsightOS Demo",
		Email:     "contacto@insightos.com",
		Plan:      entity.PlanEnterprise,
		Industry:  "Tecnología",
		Size:      "11-50",
		Address:   "Calle 93 #11-26, Bogotá",
		Phone:     "+57 601 555 0100",
		Website:   "https://insightos.com",
		Settings:  entity.DefaultSettings(),
		Modules:   append([]string(nil), entity.ModuleCatalog...),
		CreatedAt: join,
	}
	user := &entity.User{
		ID:          DemoUserID,
		CompanyID:   DemoCompanyID,
		Name:        "Usuario Demo",
		Email:       DemoEmails[0],
		Role:        entity.RoleAdmin,
		Status:      entity.StatusOffline,
		IsActive:    true,
		Permissions: entity.FullPermissions(company.Modules),
		Department:  "Dirección",
		Position:    "Gerente General",
		Phone:       "+57 300 555 0101",
		Location:    "Bogotá",
		JoinDate:    join,
		Level:       1,
		Skills:      []string{"Liderazgo", "Estrategia"},
		Bio:         "Cuenta de demostración con acceso a todos los módulos.",
		CreatedAt:   join,
	}
	if !now.IsZero() {
		user.MarkOnline(now)
	}
	return &entity.Account{User: user, Company: company}
}

func normalizeInput(s string) string {
	return strings.TrimSpace(s)
}
