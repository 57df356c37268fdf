package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role rol de un usuario dentro de su empresa, ordenado por privilegio.
type Role string

// Roles válidos para User.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleMember     Role = "member"
)

// Rank devuelve el nivel de privilegio (mayor = más privilegios); 0 si el rol no existe.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid informa si el rol pertenece al catálogo.
func (r Role) Valid() bool { return r.Rank() > 0 }

// AtLeast informa si r tiene al menos los privilegios de other.
func (r Role) AtLeast(other Role) bool { return r.Rank() >= other.Rank() }

// Estados de presencia de un usuario.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

// User representa un usuario del sistema (pertenece a exactamente una Company).
type User struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	PasswordHash string // bcrypt; vacío en registros remotos (la identidad vive en el proveedor)
	Role         Role
	Status       string // online, away, offline
	IsActive     bool   // borrado lógico
	Permissions  []Permission

	Department string
	Position   string
	Phone      string
	Location   string
	JoinDate   time.Time
	LastLogin  *time.Time

	// Jerarquía: solo se guarda el padre; los reportes directos se derivan (ver Hierarchy).
	Level     int
	ReportsTo string

	Skills    []string
	Bio       string
	Avatar    string
	CreatedAt time.Time
}

// Clone devuelve una copia profunda; el estado publicado nunca comparte slices con los almacenes.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Permissions = clonePermissions(u.Permissions)
	cp.Skills = append([]string(nil), u.Skills...)
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}

// MarkOnline deja al usuario en línea con último acceso = now.
func (u *User) MarkOnline(now time.Time) {
	u.Status = StatusOnline
	t := now
	u.LastLogin = &t
}

// UserPatch actualización parcial de un usuario; nil = campo sin cambios.
type UserPatch struct {
	Name        *string
	Status      *string
	Role        *Role
	Department  *string
	Position    *string
	Phone       *string
	Location    *string
	Level       *int
	ReportsTo   *string
	Skills      *[]string
	Bio         *string
	Avatar      *string
	Permissions *[]Permission
}

// IsEmpty informa si el patch no cambia nada.
func (p UserPatch) IsEmpty() bool {
	return p == (UserPatch{})
}

// Apply fusiona los campos presentes sobre u (último en escribir gana por campo).
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.Position != nil {
		u.Position = *p.Position
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Level != nil {
		u.Level = *p.Level
	}
	if p.ReportsTo != nil {
		u.ReportsTo = *p.ReportsTo
	}
	if p.Skills != nil {
		u.Skills = append([]string(nil), (*p.Skills)...)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Permissions != nil {
		u.Permissions = clonePermissions(*p.Permissions)
	}
}

// Validate comprueba los valores enumerados del patch.
func (p UserPatch) Validate() bool {
	if p.Role != nil && !p.Role.Valid() {
		return false
	}
	if p.Status != nil {
		switch *p.Status {
		case StatusOnline, StatusAway, StatusOffline:
		default:
			return false
		}
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return false
	}
	return true
}

var emailFolder = cases.Fold()

// NormalizeEmail normaliza un email para comparaciones de unicidad (case folding Unicode).
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

// SameEmail compara dos emails sin distinguir mayúsculas.
func SameEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
