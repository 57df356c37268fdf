package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/application/usecase"
	"github.com/jhoicas/insightos/internal/domain/repository"
	"github.com/jhoicas/insightos/internal/infrastructure/localstore"
	"github.com/jhoicas/insightos/internal/infrastructure/postgres"
	"github.com/jhoicas/insightos/internal/infrastructure/remote"
	"github.com/jhoicas/insightos/internal/infrastructure/supabase"
	httpRouter "github.com/jhoicas/insightos/internal/interfaces/http"
	"github.com/jhoicas/insightos/pkg/config"
	"github.com/jhoicas/insightos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("local_backend", cfg.Local.Backend).
		Bool("remote_configured", cfg.Remote.IsConfigured()).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()

	// Pool solo con remoto configurado: sin él los registros viven en el almacén local.
	var pool *pgxpool.Pool
	if cfg.Remote.IsConfigured() && cfg.DB.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
		pool, err = postgres.NewPool(pingCtx, cfg.DB)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("PostgreSQL no disponible, se continúa solo con el almacén local")
			pool = nil
		} else {
			defer pool.Close()
		}
	}

	kvs, err := localstore.NewKVFactory(ctx, cfg.Local, cfg.App.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("almacén local")
	}
	defer kvs.Close()

	identity := supabase.NewClient(cfg.Remote)
	profiles := auth.NewProfiles(profileFactory(cfg, kvs, identity, pool, log))
	defer profiles.Close()

	var planRepo repository.PlanRepository
	if pool != nil {
		planRepo = postgres.NewPlanRepository(pool)
	}
	planSvc := usecase.NewPlanService(planRepo, cfg.Remote.Timeout, log)
	moduleSvc := usecase.NewModuleService(profiles)

	// El perfil por defecto se resuelve al arrancar; los demás al primer uso.
	if _, err := profiles.Get(ctx, auth.DefaultProfile); err != nil {
		log.Fatal().Err(err).Msg("perfil por defecto")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.DocsPath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.DocsPath,
			Path:     "docs",
			Title:    "InsightOS API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "remote": cfg.Remote.IsConfigured()})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Profiles:           profiles,
		PlanService:        planSvc,
		ModuleService:      moduleSvc,
		JWT:                cfg.JWT,
		LoginRatePerMinute: cfg.HTTP.LoginRatePerMinute,
		Log:                log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// profileFactory construye el contexto de autenticación de cada perfil: almacén local sobre el
// KV del perfil y, con remoto configurado, la sesión de identidad persistida en ese mismo KV.
func profileFactory(
	cfg *config.Config,
	kvs *localstore.KVFactory,
	identity *supabase.Client,
	pool *pgxpool.Pool,
	log *logger.Logger,
) auth.Factory {
	return func(ctx context.Context, profile string) (*auth.AuthUseCase, error) {
		plog := log.WithProfile(profile)

		kv, err := kvs.Open(profile)
		if err != nil {
			return nil, err
		}
		store := localstore.NewStore(kv, localstore.Fixtures(cfg.Auth.BcryptCost))
		if err := store.Initialize(ctx); err != nil {
			return nil, err
		}
		local := localstore.NewSessionStore(store, localstore.Config{
			BcryptCost:      cfg.Auth.BcryptCost,
			LegacyPasswords: cfg.Auth.LegacyPasswords,
		}, plog)

		var remoteStore auth.SessionStore
		if identity.IsConfigured() {
			deps := remote.Deps{
				Identity: supabase.NewAuth(identity, kv, plog),
				Timeout:  cfg.Remote.Timeout,
			}
			if pool != nil {
				deps.Users = postgres.NewUserRepository(pool)
				deps.Companies = postgres.NewCompanyRepository(pool)
				deps.Tx = postgres.NewTxRunner(pool)
			}
			remoteStore = remote.NewSessionStore(deps, plog)
		}

		plog.Info().Bool("remote", remoteStore != nil).Str("backend", kvs.Backend()).Msg("perfil inicializado")
		return auth.NewAuthUseCase(remoteStore, local, plog), nil
	}
}
