package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insightos/internal/application/usecase"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/pkg/config"
	"github.com/jhoicas/insightos/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Profiles           profileSource
	PlanService        *usecase.PlanService
	ModuleService      *usecase.ModuleService
	JWT                config.JWTConfig
	LoginRatePerMinute int
	Log                *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	authHandler := NewAuthHandler(deps.Profiles, deps.JWT, deps.Log)
	accountHandler := NewAccountHandler(deps.Profiles, deps.PlanService, deps.ModuleService)
	limiter := NewRateLimiter(deps.LoginRatePerMinute)
	requireAuth := AuthMiddleware(deps.JWT.Secret)
	optionalAuth := OptionalAuth(deps.JWT.Secret)
	admins := RequireRole(string(entity.RoleAdmin), string(entity.RoleSuperAdmin))

	api := app.Group("/api", ProfileMiddleware())

	// Público (sin token la sesión se informa sin datos personales)
	api.Get("/session", optionalAuth, authHandler.Session)
	api.Get("/plans", accountHandler.Plans)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", limiter.Handler(), authHandler.Login)
	authGroup.Post("/register", limiter.Handler(), authHandler.Register)
	authGroup.Post("/logout", requireAuth, authHandler.Logout)

	// Protegido (Bearer Token)
	api.Patch("/me", requireAuth, accountHandler.UpdateMe)

	company := api.Group("/company", requireAuth)
	company.Patch("/", admins, accountHandler.UpdateCompany)
	company.Get("/modules", accountHandler.Modules)
	company.Get("/members", accountHandler.Members)
	company.Post("/members", admins, RequireModule(entity.ModuleHR, deps.ModuleService), accountHandler.AddMember)
}
