package localstore

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Ids fijos de los datos semilla.
const (
	FixtureManagerID   = "33333333-3333-4333-8333-333333333331"
	FixtureMemberID    = "33333333-3333-4333-8333-333333333332"
	FixtureInactiveID  = "33333333-3333-4333-8333-333333333333"
	FixtureRetailID    = "44444444-4444-4444-8444-444444444441"
	FixtureRetailAdmin = "44444444-4444-4444-8444-444444444442"
)

// FixturePassword contraseña de todos los usuarios semilla.
const FixturePassword = "demo"

// Fixtures devuelve el generador de datos semilla para Store.Initialize. Las contraseñas se
// guardan como hash bcrypt de FixturePassword calculado en el momento de sembrar.
func Fixtures(cost int) func() ([]*entity.User, []*entity.Company, error) {
	return func() ([]*entity.User, []*entity.Company, error) {
		hash, err := hashPassword(FixturePassword, cost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash fixtures: %w", err)
		}

		demo := auth.DemoAccount(time.Time{})
		demo.User.PasswordHash = hash
		joined := demo.Company.CreatedAt

		manager := &entity.User{
			ID:           FixtureManagerID,
			CompanyID:    auth.DemoCompanyID,
			Name:         "Laura Gómez",
			Email:        "laura.gomez@insightos.com",
			PasswordHash: hash,
			Role:         entity.RoleManager,
			Status:       entity.StatusOffline,
			IsActive:     true,
			Permissions:  entity.DefaultPermissions(entity.RoleManager, demo.Company.Modules),
			Department:   "Operaciones",
			Position:     "Jefe de Operaciones",
			Location:     "Medellín",
			JoinDate:     joined.AddDate(0, 2, 0),
			Level:        2,
			ReportsTo:    auth.DemoUserID,
			Skills:       []string{"Procesos", "Logística"},
			CreatedAt:    joined.AddDate(0, 2, 0),
		}
		member := &entity.User{
			ID:           FixtureMemberID,
			CompanyID:    auth.DemoCompanyID,
			Name:         "Andrés Rojas",
			Email:        "andres.rojas@insightos.com",
			PasswordHash: hash,
			Role:         entity.RoleMember,
			Status:       entity.StatusOffline,
			IsActive:     true,
			Permissions:  entity.DefaultPermissions(entity.RoleMember, demo.Company.Modules),
			Department:   "Operaciones",
			Position:     "Analista",
			Location:     "Medellín",
			JoinDate:     joined.AddDate(0, 5, 0),
			Level:        3,
			ReportsTo:    FixtureManagerID,
			CreatedAt:    joined.AddDate(0, 5, 0),
		}
		inactive := &entity.User{
			ID:           FixtureInactiveID,
			CompanyID:    auth.DemoCompanyID,
			Name:         "Camila Pérez",
			Email:        "camila.perez@insightos.com",
			PasswordHash: hash,
			Role:         entity.RoleMember,
			Status:       entity.StatusOffline,
			IsActive:     false,
			Permissions:  entity.DefaultPermissions(entity.RoleMember, demo.Company.Modules),
			Department:   "Ventas",
			Position:     "Ejecutiva comercial",
			JoinDate:     joined.AddDate(0, 1, 0),
			Level:        2,
			ReportsTo:    auth.DemoUserID,
			CreatedAt:    joined.AddDate(0, 1, 0),
		}

		retailModules := []string{
			entity.ModuleCore, entity.ModuleProjects, entity.ModuleMessaging,
			entity.ModuleCRM, entity.ModuleHR,
		}
		retail := &entity.Company{
			ID:        FixtureRetailID,
			Name:      "Nova Retail",
			Email:     "hola@novaretail.co",
			Plan:      entity.PlanBusiness,
			Industry:  "Comercio",
			Size:      "51-200",
			Address:   "Carrera 43A #1-50, Medellín",
			Settings:  entity.DefaultSettings(),
			Modules:   retailModules,
			CreatedAt: joined.AddDate(0, 3, 0),
		}
		retailAdmin := &entity.User{
			ID:           FixtureRetailAdmin,
			CompanyID:    FixtureRetailID,
			Name:         "Sofía Martínez",
			Email:        "sofia@novaretail.co",
			PasswordHash: hash,
			Role:         entity.RoleAdmin,
			Status:       entity.StatusOffline,
			IsActive:     true,
			Permissions:  entity.FullPermissions(retailModules),
			Position:     "Directora",
			JoinDate:     retail.CreatedAt,
			Level:        1,
			CreatedAt:    retail.CreatedAt,
		}

		users := []*entity.User{demo.User, manager, member, inactive, retailAdmin}
		companies := []*entity.Company{demo.Company, retail}
		return users, companies, nil
	}
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", nil
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
