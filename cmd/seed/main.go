// seed inicializa el almacén local de un perfil con los datos semilla y, opcionalmente,
// aplica el esquema remoto y publica empresas y usuarios locales en la base remota.
//
// Uso:
//
//	go run ./cmd/seed [-profile default] [-migrate] [-remote] [-identity]
//
// -migrate aplica internal/infrastructure/postgres/migrations.
// -remote inserta empresas y usuarios que aún no existen (los duplicados se omiten).
// -identity además registra cada usuario activo en el proveedor de identidad con la contraseña semilla.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/infrastructure/localstore"
	"github.com/jhoicas/insightos/internal/infrastructure/postgres"
	"github.com/jhoicas/insightos/internal/infrastructure/supabase"
	"github.com/jhoicas/insightos/pkg/config"
	"github.com/jhoicas/insightos/pkg/logger"
)

func main() {
	profile := flag.String("profile", auth.DefaultProfile, "perfil local a inicializar")
	migrate := flag.Bool("migrate", false, "aplicar el esquema en la base remota")
	push := flag.Bool("remote", false, "publicar empresas y usuarios locales en la base remota")
	identity := flag.Bool("identity", false, "registrar los usuarios en el proveedor de identidad (requiere -remote)")
	flag.Parse()

	if err := run(*profile, *migrate, *push, *identity); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(profile string, migrate, push, identity bool) error {
	if !auth.ValidProfile(profile) {
		return fmt.Errorf("perfil inválido %q", profile)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).WithProfile(profile)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	kvs, err := localstore.NewKVFactory(ctx, cfg.Local, cfg.App.Name)
	if err != nil {
		return err
	}
	defer kvs.Close()
	kv, err := kvs.Open(profile)
	if err != nil {
		return err
	}
	store := localstore.NewStore(kv, localstore.Fixtures(cfg.Auth.BcryptCost))
	if err := store.Initialize(ctx); err != nil {
		return fmt.Errorf("inicializar almacén local: %w", err)
	}
	log.Info().Str("backend", kvs.Backend()).Msg("almacén local inicializado")

	if !migrate && !push {
		return nil
	}
	if !cfg.DB.Enabled() {
		return errors.New("DATABASE_URL o DB_HOST son necesarios para -migrate/-remote")
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		applied, err := postgres.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		log.Info().Strs("migrations", applied).Msg("esquema aplicado")
	}
	if !push {
		return nil
	}

	pushed, err := pushRecords(ctx, pool, store, log)
	if err != nil {
		return err
	}
	if identity {
		client := supabase.NewClient(cfg.Remote)
		if !client.IsConfigured() {
			return errors.New("SUPABASE_URL y SUPABASE_ANON_KEY son necesarios para -identity")
		}
		registerIdentities(ctx, client, pushed, log)
	}
	return nil
}

// pushRecords inserta las empresas y usuarios locales que faltan en la base remota.
// Devuelve los usuarios activos insertados.
func pushRecords(ctx context.Context, pool *pgxpool.Pool, store *localstore.Store, log *logger.Logger) ([]*entity.User, error) {
	companies, err := store.Companies(ctx)
	if err != nil {
		return nil, err
	}
	users, err := store.Users(ctx)
	if err != nil {
		return nil, err
	}

	companyRepo := postgres.NewCompanyRepository(pool)
	for _, c := range companies {
		existing, err := companyRepo.GetByID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Debug().Str("company_id", c.ID).Msg("empresa ya existe, se omite")
			continue
		}
		if err := companyRepo.Create(ctx, c); err != nil {
			return nil, err
		}
		log.Info().Str("company_id", c.ID).Str("name", c.Name).Msg("empresa publicada")
	}

	userRepo := postgres.NewUserRepository(pool)
	var inserted []*entity.User
	for _, u := range parentsFirst(users) {
		if err := userRepo.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyExists) {
				log.Debug().Str("email", u.Email).Msg("usuario ya existe, se omite")
				continue
			}
			return inserted, err
		}
		log.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("usuario publicado")
		if u.IsActive {
			inserted = append(inserted, u)
		}
	}
	return inserted, nil
}

// parentsFirst ordena los usuarios de modo que cada jefe se inserte antes que sus reportes
// (reports_to es clave foránea). Los reportes a usuarios ausentes quedan al final.
func parentsFirst(users []*entity.User) []*entity.User {
	known := make(map[string]bool, len(users))
	for _, u := range users {
		known[u.ID] = true
	}
	done := make(map[string]bool, len(users))
	out := make([]*entity.User, 0, len(users))
	for len(out) < len(users) {
		progress := false
		for _, u := range users {
			if done[u.ID] {
				continue
			}
			if u.ReportsTo == "" || !known[u.ReportsTo] || done[u.ReportsTo] {
				out = append(out, u)
				done[u.ID] = true
				progress = true
			}
		}
		if !progress {
			for _, u := range users {
				if !done[u.ID] {
					out = append(out, u)
					done[u.ID] = true
				}
			}
		}
	}
	return out
}

// registerIdentities crea la identidad de cada usuario con la contraseña semilla. Un rechazo
// (usuario ya registrado) se registra y no detiene el resto.
func registerIdentities(ctx context.Context, client *supabase.Client, users []*entity.User, log *logger.Logger) {
	for _, u := range users {
		meta := map[string]any{"name": u.Name, "company_id": u.CompanyID, "role": string(u.Role)}
		if _, err := client.SignUp(ctx, u.Email, localstore.FixturePassword, meta); err != nil {
			log.Warn().Err(err).Str("email", u.Email).Msg("identidad no registrada")
			continue
		}
		log.Info().Str("email", u.Email).Msg("identidad registrada")
	}
}
