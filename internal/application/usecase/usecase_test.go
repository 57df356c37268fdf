package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/application/usecase"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/infrastructure/localstore"
)

type fakePlans struct {
	plans []entity.Plan
	err   error
	calls int
}

func (f *fakePlans) List(context.Context) ([]entity.Plan, error) {
	f.calls++
	return f.plans, f.err
}

func priceOf(plans []entity.Plan, name string) decimal.Decimal {
	for _, p := range plans {
		if p.Name == name {
			return p.MonthlyPrice
		}
	}
	return decimal.NewFromInt(-1)
}

func TestPlanService_BuiltInWithoutRepo(t *testing.T) {
	svc := usecase.NewPlanService(nil, 0, nil)
	plans := svc.List(context.Background())
	require.Len(t, plans, 3)
	assert.True(t, priceOf(plans, entity.PlanFree).IsZero())
	assert.Equal(t, "29", priceOf(plans, entity.PlanBusiness).String())
}

func TestPlanService_RemotePricesOverride(t *testing.T) {
	repo := &fakePlans{plans: []entity.Plan{
		{Name: entity.PlanBusiness, MonthlyPrice: decimal.RequireFromString("35.50"), Modules: []string{entity.ModuleCore}},
		{Name: "legacy", MonthlyPrice: decimal.NewFromInt(5)},
	}}
	svc := usecase.NewPlanService(repo, time.Second, nil)

	plans := svc.List(context.Background())
	require.Len(t, plans, 3, "planes desconocidos del remoto se ignoran")
	assert.True(t, decimal.RequireFromString("35.50").Equal(priceOf(plans, entity.PlanBusiness)))
	assert.Equal(t, "99", priceOf(plans, entity.PlanEnterprise).String())

	for _, p := range plans {
		if p.Name == entity.PlanBusiness {
			assert.Contains(t, p.Modules, entity.ModuleCRM, "los módulos siempre vienen del catálogo embebido")
		}
	}
	builtin, _ := entity.PlanByName(entity.PlanBusiness)
	assert.Equal(t, "29", builtin.MonthlyPrice.String(), "el catálogo embebido no se modifica")
}

func TestPlanService_RemoteFailureFallsBack(t *testing.T) {
	repo := &fakePlans{err: errors.New("db caída")}
	svc := usecase.NewPlanService(repo, time.Second, nil)
	plans := svc.List(context.Background())
	assert.Equal(t, entity.Plans(), plans)
	assert.Equal(t, 1, repo.calls)
}

func newProfiles(t *testing.T) *auth.Profiles {
	t.Helper()
	profiles := auth.NewProfiles(func(ctx context.Context, _ string) (*auth.AuthUseCase, error) {
		store := localstore.NewStore(localstore.NewMemoryKV(), localstore.Fixtures(bcrypt.MinCost))
		if err := store.Initialize(ctx); err != nil {
			return nil, err
		}
		local := localstore.NewSessionStore(store, localstore.Config{BcryptCost: bcrypt.MinCost}, nil)
		return auth.NewAuthUseCase(nil, local, nil), nil
	})
	t.Cleanup(profiles.Close)
	return profiles
}

func TestModuleService_HasActiveModule(t *testing.T) {
	ctx := context.Background()
	profiles := newProfiles(t)
	svc := usecase.NewModuleService(profiles)

	_, err := svc.HasActiveModule(ctx, "", auth.DemoCompanyID, entity.ModuleCRM)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated, "sin sesión no se puede verificar")

	uc, err := profiles.Get(ctx, "")
	require.NoError(t, err)
	_, err = uc.Login(ctx, "sofia@novaretail.co", localstore.FixturePassword)
	require.NoError(t, err)

	for _, tc := range []struct {
		module string
		want   bool
	}{
		{entity.ModuleCore, true},
		{entity.ModuleCRM, true},
		{entity.ModuleFinance, false}, // no habilitado
	} {
		ok, err := svc.HasActiveModule(ctx, "", localstore.FixtureRetailID, tc.module)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, tc.module)
	}

	ok, err := svc.HasActiveModule(ctx, "", auth.DemoCompanyID, entity.ModuleCore)
	require.NoError(t, err)
	assert.False(t, ok, "la sesión pertenece a otra empresa")

	_, err = svc.HasActiveModule(ctx, "", "", entity.ModuleCore)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestModuleService_PlanDowngradeDisablesModule(t *testing.T) {
	ctx := context.Background()
	profiles := newProfiles(t)
	svc := usecase.NewModuleService(profiles)

	uc, err := profiles.Get(ctx, "equipo")
	require.NoError(t, err)
	_, err = uc.Login(ctx, "sofia@novaretail.co", localstore.FixturePassword)
	require.NoError(t, err)

	ok, err := svc.HasActiveModule(ctx, "equipo", localstore.FixtureRetailID, entity.ModuleHR)
	require.NoError(t, err)
	assert.True(t, ok)

	modules := []string{entity.ModuleProjects}
	plan := entity.PlanFree
	_, err = uc.UpdateCompany(ctx, entity.CompanyPatch{Plan: &plan, Modules: &modules})
	require.NoError(t, err)

	ok, err = svc.HasActiveModule(ctx, "equipo", localstore.FixtureRetailID, entity.ModuleHR)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasActiveModule(ctx, "", localstore.FixtureRetailID, entity.ModuleHR)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated, "los perfiles no comparten sesión")
	assert.False(t, ok)
}
