package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

func TestRole_Orden(t *testing.T) {
	assert.True(t, entity.RoleSuperAdmin.AtLeast(entity.RoleAdmin))
	assert.True(t, entity.RoleAdmin.AtLeast(entity.RoleManager))
	assert.True(t, entity.RoleManager.AtLeast(entity.RoleMember))
	assert.False(t, entity.RoleMember.AtLeast(entity.RoleManager))
	assert.False(t, entity.Role("owner").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	assert.True(t, entity.SameEmail("  Ana@Acme.COM ", "ana@acme.com"))
	assert.False(t, entity.SameEmail("ana@acme.com", "ana@acme.co"))
}

func TestNormalizeModules(t *testing.T) {
	cases := []struct {
		name     string
		plan     string
		in       []string
		want     []string
		rejected string
		ok       bool
	}{
		{"free agrega core", entity.PlanFree, []string{entity.ModuleProjects}, []string{"core", "projects"}, "", true},
		{"free sin módulos", entity.PlanFree, nil, []string{"core"}, "", true},
		{"free rechaza crm", entity.PlanFree, []string{entity.ModuleCRM}, nil, "crm", false},
		{"business permite hr", entity.PlanBusiness, []string{"core", "hr", "hr"}, []string{"core", "hr"}, "", true},
		{"fuera de catálogo", entity.PlanEnterprise, []string{"payroll"}, nil, "payroll", false},
		{"plan desconocido", "gold", []string{"core"}, nil, "gold", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, rejected, ok := entity.NormalizeModules(tc.plan, tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.rejected, rejected)
			if tc.ok {
				assert.Equal(t, tc.want, out)
			}
		})
	}
}

func TestPlans_Precio(t *testing.T) {
	p, ok := entity.PlanByName(entity.PlanBusiness)
	require.True(t, ok)
	assert.Equal(t, "29", p.MonthlyPrice.String())
	assert.True(t, p.Allows(entity.ModuleCRM))

	free, _ := entity.PlanByName(entity.PlanFree)
	assert.True(t, free.MonthlyPrice.IsZero())
}

func TestHierarchy_RechazaCiclos(t *testing.T) {
	users := []*entity.User{
		{ID: "ceo"},
		{ID: "cto", ReportsTo: "ceo"},
		{ID: "dev", ReportsTo: "cto"},
		{ID: "ghost", ReportsTo: "nobody"},
	}
	h := entity.NewHierarchy(users)

	assert.Equal(t, []string{"cto"}, h.DirectReports("ceo"))
	assert.Equal(t, 2, h.Depth("dev"))
	assert.Equal(t, "", h.Parent("ghost"), "padres fuera del conjunto se ignoran")

	assert.ErrorIs(t, h.SetParent("ceo", "dev"), entity.ErrHierarchyCycle)
	assert.ErrorIs(t, h.SetParent("dev", "dev"), entity.ErrHierarchySelf)
	assert.ErrorIs(t, h.SetParent("dev", "intruso"), entity.ErrHierarchyUnknown)

	require.NoError(t, h.SetParent("dev", "ceo"))
	assert.Equal(t, []string{"cto", "dev"}, h.DirectReports("ceo"))

	require.NoError(t, h.SetParent("dev", ""))
	assert.Equal(t, 0, h.Depth("dev"))
}

func TestUserPatch_Apply(t *testing.T) {
	u := &entity.User{Name: "Ana", Department: "Ventas", Skills: []string{"go"}}
	name := "Ana María"
	skills := []string{"go", "sql"}
	p := entity.UserPatch{Name: &name, Skills: &skills}

	require.True(t, p.Validate())
	p.Apply(u)
	assert.Equal(t, "Ana María", u.Name)
	assert.Equal(t, "Ventas", u.Department, "campos ausentes no cambian")
	assert.Equal(t, []string{"go", "sql"}, u.Skills)

	skills[0] = "rust"
	assert.Equal(t, "go", u.Skills[0], "el patch no comparte el slice")

	bad := entity.Role("owner")
	assert.False(t, entity.UserPatch{Role: &bad}.Validate())
	assert.True(t, entity.UserPatch{}.IsEmpty())
}

func TestDefaultPermissions(t *testing.T) {
	perms := entity.DefaultPermissions(entity.RoleMember, []string{"core", "crm"})
	require.Len(t, perms, 2)
	assert.True(t, perms[0].Allows(entity.ActionWrite))
	assert.False(t, perms[0].Allows(entity.ActionDelete))

	full := entity.DefaultPermissions(entity.RoleAdmin, []string{"core"})
	assert.True(t, full[0].Allows(entity.ActionAdmin))
}
