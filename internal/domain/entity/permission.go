package entity

// Acciones que puede conceder un Permission.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionAdmin  = "admin"
)

// AllActions catálogo completo de acciones.
var AllActions = []string{ActionRead, ActionWrite, ActionDelete, ActionAdmin}

// Permission concede acciones sobre un módulo.
type Permission struct {
	Module  string
	Actions []string
}

// Allows informa si el permiso concede la acción.
func (p Permission) Allows(action string) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// FullPermissions concede todas las acciones sobre cada módulo (administradores).
func FullPermissions(modules []string) []Permission {
	out := make([]Permission, 0, len(modules))
	for _, m := range modules {
		out = append(out, Permission{Module: m, Actions: append([]string(nil), AllActions...)})
	}
	return out
}

// DefaultPermissions permisos iniciales de un miembro invitado según su rol.
func DefaultPermissions(role Role, modules []string) []Permission {
	var actions []string
	switch role {
	case RoleSuperAdmin, RoleAdmin:
		return FullPermissions(modules)
	case RoleManager:
		actions = []string{ActionRead, ActionWrite, ActionDelete}
	default:
		actions = []string{ActionRead, ActionWrite}
	}
	out := make([]Permission, 0, len(modules))
	for _, m := range modules {
		out = append(out, Permission{Module: m, Actions: append([]string(nil), actions...)})
	}
	return out
}

func clonePermissions(in []Permission) []Permission {
	if in == nil {
		return nil
	}
	out := make([]Permission, len(in))
	for i, p := range in {
		out[i] = Permission{Module: p.Module, Actions: append([]string(nil), p.Actions...)}
	}
	return out
}
