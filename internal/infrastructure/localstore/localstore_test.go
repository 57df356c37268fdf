package localstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/infrastructure/localstore"
	"github.com/jhoicas/insightos/pkg/config"
)

var fixedNow = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

func newSessionStore(t *testing.T, kv localstore.KV, legacy bool) (*localstore.SessionStore, *localstore.Store) {
	t.Helper()
	store := localstore.NewStore(kv, localstore.Fixtures(bcrypt.MinCost))
	require.NoError(t, store.Initialize(context.Background()))
	ss := localstore.NewSessionStore(store, localstore.Config{
		BcryptCost:      bcrypt.MinCost,
		LegacyPasswords: legacy,
		Now:             func() time.Time { return fixedNow },
	}, nil)
	return ss, store
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemoryKV()
	store := localstore.NewStore(kv, localstore.Fixtures(bcrypt.MinCost))

	require.NoError(t, store.Initialize(ctx))
	users1, _, _ := kv.Get(ctx, localstore.KeyUsers)
	companies1, _, _ := kv.Get(ctx, localstore.KeyCompanies)
	require.NotEmpty(t, users1)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Initialize(ctx))
	}
	users2, _, _ := kv.Get(ctx, localstore.KeyUsers)
	companies2, _, _ := kv.Get(ctx, localstore.KeyCompanies)
	assert.Equal(t, users1, users2, "users no debe cambiar tras reinicializar")
	assert.Equal(t, companies1, companies2)
}

func TestInitialize_KeepsExistingData(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, localstore.KeyUsers, "[]"))
	require.NoError(t, kv.Set(ctx, localstore.KeyCompanies, "[]"))

	store := localstore.NewStore(kv, localstore.Fixtures(bcrypt.MinCost))
	require.NoError(t, store.Initialize(ctx))

	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFindUserByIDOrEmail(t *testing.T) {
	ctx := context.Background()
	_, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	u, err := store.FindUserByIDOrEmail(ctx, localstore.FixtureManagerID, "")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "laura.gomez@insightos.com", u.Email)

	u, err = store.FindUserByIDOrEmail(ctx, "no-existe", "LAURA.GOMEZ@insightos.com")
	require.NoError(t, err)
	require.NotNil(t, u, "debe caer a la búsqueda por email sin distinguir mayúsculas")
	assert.Equal(t, localstore.FixtureManagerID, u.ID)

	u, err = store.FindUserByIDOrEmail(ctx, localstore.FixtureInactiveID, "camila.perez@insightos.com")
	require.NoError(t, err)
	assert.Nil(t, u, "los usuarios inactivos no se resuelven")
}

func TestSessionPointer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	ptr, err := store.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, ptr)

	require.NoError(t, store.SetSession(ctx, entity.SessionPointer{UserID: "u1", Email: "a@b.co", Timestamp: fixedNow}))
	ptr, err = store.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	assert.Equal(t, "u1", ptr.UserID)
	assert.True(t, ptr.Timestamp.Equal(fixedNow))

	require.NoError(t, store.ClearSession(ctx))
	ptr, err = store.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, ptr)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	ss, _ := newSessionStore(t, localstore.NewMemoryKV(), false)

	t.Run("contraseña correcta", func(t *testing.T) {
		u, err := ss.Authenticate(ctx, "laura.gomez@insightos.com", localstore.FixturePassword)
		require.NoError(t, err)
		assert.Equal(t, localstore.FixtureManagerID, u.ID)
	})
	t.Run("contraseña incorrecta", func(t *testing.T) {
		_, err := ss.Authenticate(ctx, "laura.gomez@insightos.com", "otra")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
	t.Run("usuario inexistente", func(t *testing.T) {
		_, err := ss.Authenticate(ctx, "nadie@insightos.com", "demo")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
	t.Run("usuario inactivo", func(t *testing.T) {
		_, err := ss.Authenticate(ctx, "camila.perez@insightos.com", "demo")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestAuthenticate_LegacyPasswords(t *testing.T) {
	ctx := context.Background()
	acc := auth.DemoAccount(time.Time{})
	acc.User.ID = "legacy-user"
	acc.User.Email = "legacy@insightos.com"
	acc.User.PasswordHash = ""

	strict, _ := newSessionStore(t, localstore.NewMemoryKV(), false)
	require.NoError(t, strict.EnsureAccount(ctx, acc))
	_, err := strict.Authenticate(ctx, "legacy@insightos.com", "123456")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "sin la opción legacy un registro sin hash no inicia sesión")

	legacy, _ := newSessionStore(t, localstore.NewMemoryKV(), true)
	require.NoError(t, legacy.EnsureAccount(ctx, acc))
	_, err = legacy.Authenticate(ctx, "legacy@insightos.com", "123456")
	assert.NoError(t, err)
	_, err = legacy.Authenticate(ctx, "legacy@insightos.com", "otra")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoad_MarksOnline(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	acc, err := ss.Load(ctx, localstore.FixtureMemberID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOnline, acc.User.Status)
	require.NotNil(t, acc.User.LastLogin)
	assert.True(t, acc.User.LastLogin.Equal(fixedNow))
	assert.Equal(t, auth.DemoCompanyID, acc.Company.ID)

	persisted, err := store.FindUserByIDOrEmail(ctx, localstore.FixtureMemberID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusOnline, persisted.Status, "el cambio de estado se persiste")
}

func TestLoad_MissingCompany(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	orphan := &entity.User{ID: "orphan", CompanyID: "missing", Email: "orphan@x.co", Role: entity.RoleMember, IsActive: true}
	require.NoError(t, store.UpsertUser(ctx, orphan))

	_, err := ss.Load(ctx, "orphan", "")
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	_, err = ss.Load(ctx, "ghost", "ghost@x.co")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLoad_MissingCompanyLeavesUserUntouched(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	orphan := &entity.User{ID: "u1", CompanyID: "missing", Email: "u1@x.co", Role: entity.RoleMember, IsActive: true, Status: entity.StatusOffline}
	require.NoError(t, store.UpsertUser(ctx, orphan))

	_, err := ss.Load(ctx, "u1", "")
	require.ErrorIs(t, err, domain.ErrCompanyNotFound)

	persisted, err := store.FindUserByIDOrEmail(ctx, "u1", "")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, entity.StatusOffline, persisted.Status)
	assert.Nil(t, persisted.LastLogin)
}

// failingKV falla las escrituras de una clave concreta.
type failingKV struct {
	*localstore.MemoryKV
	key string
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if key == f.key {
		return errors.New("disco lleno")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func TestCreateTenant_NoOrphans(t *testing.T) {
	ctx := context.Background()

	t.Run("email duplicado no deja empresa", func(t *testing.T) {
		ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)
		company := &entity.Company{ID: "c-dup", Name: "Dup", Plan: entity.PlanFree, Modules: []string{entity.ModuleCore}}
		admin := &entity.User{ID: "u-dup", CompanyID: "c-dup", Email: "LAURA.GOMEZ@insightos.com", IsActive: true}
		assert.ErrorIs(t, ss.CreateTenant(ctx, company, admin, "pw"), domain.ErrEmailAlreadyExists)

		c, err := store.FindCompany(ctx, "c-dup")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("fallo al guardar la empresa deshace el usuario", func(t *testing.T) {
		kv := &failingKV{MemoryKV: localstore.NewMemoryKV()}
		ss, store := newSessionStore(t, kv, false)
		kv.key = localstore.KeyCompanies

		company := &entity.Company{ID: "c-new", Name: "Nueva", Plan: entity.PlanFree, Modules: []string{entity.ModuleCore}}
		admin := &entity.User{ID: "u-new", CompanyID: "c-new", Email: "n@nueva.co", IsActive: true}
		require.Error(t, ss.CreateTenant(ctx, company, admin, "pw"))

		u, err := store.FindUserByIDOrEmail(ctx, "u-new", "")
		require.NoError(t, err)
		assert.Nil(t, u)
		c, err := store.FindCompany(ctx, "c-new")
		require.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	company := &entity.Company{ID: "c-acme", Name: "Acme", Plan: entity.PlanFree, Settings: entity.DefaultSettings(), Modules: []string{entity.ModuleCore}}
	admin := &entity.User{ID: "u-acme", CompanyID: "c-acme", Email: "a@acme.com", Role: entity.RoleAdmin, IsActive: true}
	require.NoError(t, ss.CreateTenant(ctx, company, admin, "pw123"))

	u, err := ss.Authenticate(ctx, "a@acme.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "u-acme", u.ID)
	assert.NotEqual(t, "pw123", u.PasswordHash, "la contraseña se guarda como hash")

	c, err := store.FindCompany(ctx, "c-acme")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []string{entity.ModuleCore}, c.Modules)

	dup := &entity.User{ID: "u-2", CompanyID: "c-acme", Email: "A@ACME.com", IsActive: true}
	err = ss.CreateTenant(ctx, company, dup, "x")
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

	inactiveDup := &entity.User{ID: "u-3", CompanyID: "c-acme", Email: "camila.perez@insightos.com", IsActive: true}
	err = ss.CreateTenant(ctx, company, inactiveDup, "x")
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists, "los emails de usuarios inactivos también cuentan")
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	ss, _ := newSessionStore(t, localstore.NewMemoryKV(), false)

	u := &entity.User{ID: "new", CompanyID: localstore.FixtureRetailID, Email: "nuevo@novaretail.co", Role: entity.RoleMember, IsActive: true}
	require.NoError(t, ss.AddMember(ctx, u, ""))

	members, err := ss.Members(ctx, localstore.FixtureRetailID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = ss.Authenticate(ctx, "nuevo@novaretail.co", "")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "sin contraseña no se puede iniciar sesión")

	other := &entity.User{ID: "x", CompanyID: "missing", Email: "x@x.co", IsActive: true}
	assert.ErrorIs(t, ss.AddMember(ctx, other, "pw"), domain.ErrCompanyNotFound)
}

func TestUpdateAndSignOut(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	name := "Laura G."
	require.NoError(t, ss.UpdateUser(ctx, localstore.FixtureManagerID, entity.UserPatch{Name: &name}))
	u, _ := store.FindUserByIDOrEmail(ctx, localstore.FixtureManagerID, "")
	assert.Equal(t, "Laura G.", u.Name)
	assert.Equal(t, "laura.gomez@insightos.com", u.Email, "los campos ausentes no cambian")

	assert.ErrorIs(t, ss.UpdateUser(ctx, "ghost", entity.UserPatch{Name: &name}), domain.ErrUserNotFound)

	industry := "Logística"
	require.NoError(t, ss.UpdateCompany(ctx, localstore.FixtureRetailID, entity.CompanyPatch{Industry: &industry}))
	c, _ := store.FindCompany(ctx, localstore.FixtureRetailID)
	assert.Equal(t, "Logística", c.Industry)

	_, err := ss.Load(ctx, localstore.FixtureManagerID, "")
	require.NoError(t, err)
	require.NoError(t, ss.Remember(ctx, entity.SessionPointer{UserID: localstore.FixtureManagerID, Timestamp: fixedNow}))

	require.NoError(t, ss.SignOut(ctx, localstore.FixtureManagerID))
	u, _ = store.FindUserByIDOrEmail(ctx, localstore.FixtureManagerID, "")
	assert.Equal(t, entity.StatusOffline, u.Status)
	ptr, err := ss.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, ptr)
}

func TestEnsureAccount_Idempotent(t *testing.T) {
	ctx := context.Background()
	ss, store := newSessionStore(t, localstore.NewMemoryKV(), false)

	before, _ := store.Users(ctx)
	require.NoError(t, ss.EnsureAccount(ctx, auth.DemoAccount(fixedNow)))
	after, _ := store.Users(ctx)
	assert.Len(t, after, len(before), "la cuenta demo sembrada no se duplica")
}

func TestFileKV(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	kv, err := localstore.NewFileKV(base, "perfil-a")
	require.NoError(t, err)

	_, ok, err := kv.Get(ctx, localstore.KeyUsers)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, localstore.KeyUsers, `[{"id":"1"}]`))
	v, ok, err := kv.Get(ctx, localstore.KeyUsers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	_, err = os.Stat(filepath.Join(base, "perfil-a", "users.json"))
	assert.NoError(t, err)

	assert.Error(t, kv.Set(ctx, "../escape", "x"), "las claves con rutas se rechazan")

	require.NoError(t, kv.Delete(ctx, localstore.KeyUsers))
	require.NoError(t, kv.Delete(ctx, localstore.KeyUsers))
	_, ok, _ = kv.Get(ctx, localstore.KeyUsers)
	assert.False(t, ok)
}

func TestFileKV_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	a, err := localstore.NewFileKV(base, "a")
	require.NoError(t, err)
	b, err := localstore.NewFileKV(base, "b")
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, localstore.KeySession, `{"userId":"1"}`))
	_, ok, err := b.Get(ctx, localstore.KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("memory reutiliza la instancia del perfil", func(t *testing.T) {
		f, err := localstore.NewKVFactory(ctx, config.LocalConfig{Backend: "memory"}, "insightos")
		require.NoError(t, err)
		defer f.Close()

		a1, err := f.Open("a")
		require.NoError(t, err)
		require.NoError(t, a1.Set(ctx, localstore.KeySession, "x"))
		a2, _ := f.Open("a")
		v, ok, _ := a2.Get(ctx, localstore.KeySession)
		assert.True(t, ok)
		assert.Equal(t, "x", v)

		b, _ := f.Open("b")
		_, ok, _ = b.Get(ctx, localstore.KeySession)
		assert.False(t, ok)
	})

	t.Run("file crea el directorio del perfil", func(t *testing.T) {
		base := t.TempDir()
		f, err := localstore.NewKVFactory(ctx, config.LocalConfig{Backend: "file", DataDir: base}, "insightos")
		require.NoError(t, err)
		kv, err := f.Open("equipo")
		require.NoError(t, err)
		require.NoError(t, kv.Set(ctx, localstore.KeyCompanies, "[]"))
		_, err = os.Stat(filepath.Join(base, "equipo", "companies.json"))
		assert.NoError(t, err)
	})

	t.Run("backend desconocido", func(t *testing.T) {
		_, err := localstore.NewKVFactory(ctx, config.LocalConfig{Backend: "sqlite"}, "insightos")
		assert.Error(t, err)
	})
}
