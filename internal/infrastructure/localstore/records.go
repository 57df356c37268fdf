package localstore

import (
	"time"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// Formato serializado de las colecciones (mismo esquema camelCase que usa el dashboard).

type permissionRecord struct {
	Module  string   `json:"module"`
	Actions []string `json:"actions"`
}

type userRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"passwordHash,omitempty"`
	Role         string             `json:"role"`
	Status       string             `json:"status"`
	CompanyID    string             `json:"companyId"`
	IsActive     bool               `json:"isActive"`
	Permissions  []permissionRecord `json:"permissions"`
	Department   string             `json:"department,omitempty"`
	Position     string             `json:"position,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Location     string             `json:"location,omitempty"`
	JoinDate     time.Time          `json:"joinDate"`
	LastLogin    *time.Time         `json:"lastLogin,omitempty"`
	Level        int                `json:"level,omitempty"`
	ReportsTo    string             `json:"reportsTo,omitempty"`
	Skills       []string           `json:"skills,omitempty"`
	Bio          string             `json:"bio,omitempty"`
	Avatar       string             `json:"avatar,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type workingHoursRecord struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type notificationsRecord struct {
	Email   bool `json:"email"`
	Push    bool `json:"push"`
	Desktop bool `json:"desktop"`
}

type settingsRecord struct {
	Timezone      string              `json:"timezone"`
	Currency      string              `json:"currency"`
	Language      string              `json:"language"`
	WorkingHours  workingHoursRecord  `json:"workingHours"`
	Notifications notificationsRecord `json:"notifications"`
}

type companyRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Plan      string          `json:"plan"`
	Industry  string          `json:"industry,omitempty"`
	Size      string          `json:"size,omitempty"`
	Address   string          `json:"address,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Website   string          `json:"website,omitempty"`
	Settings  *settingsRecord `json:"settings,omitempty"`
	Modules   []string        `json:"modules"`
	CreatedAt time.Time       `json:"createdAt"`
}

type sessionRecord struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

func toUserRecord(u *entity.User) userRecord {
	perms := make([]permissionRecord, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		perms = append(perms, permissionRecord{Module: p.Module, Actions: append([]string(nil), p.Actions...)})
	}
	return userRecord{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       u.Status,
		CompanyID:    u.CompanyID,
		IsActive:     u.IsActive,
		Permissions:  perms,
		Department:   u.Department,
		Position:     u.Position,
		Phone:        u.Phone,
		Location:     u.Location,
		JoinDate:     u.JoinDate,
		LastLogin:    u.LastLogin,
		Level:        u.Level,
		ReportsTo:    u.ReportsTo,
		Skills:       u.Skills,
		Bio:          u.Bio,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
	}
}

func (r userRecord) toEntity() *entity.User {
	perms := make([]entity.Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, entity.Permission{Module: p.Module, Actions: append([]string(nil), p.Actions...)})
	}
	status := r.Status
	if status == "" {
		status = entity.StatusOffline
	}
	return &entity.User{
		ID:           r.ID,
		CompanyID:    r.CompanyID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         entity.Role(r.Role),
		Status:       status,
		IsActive:     r.IsActive,
		Permissions:  perms,
		Department:   r.Department,
		Position:     r.Position,
		Phone:        r.Phone,
		Location:     r.Location,
		JoinDate:     r.JoinDate,
		LastLogin:    r.LastLogin,
		Level:        r.Level,
		ReportsTo:    r.ReportsTo,
		Skills:       append([]string(nil), r.Skills...),
		Bio:          r.Bio,
		Avatar:       r.Avatar,
		CreatedAt:    r.CreatedAt,
	}
}

func toCompanyRecord(c *entity.Company) companyRecord {
	s := c.Settings
	return companyRecord{
		ID:       c.ID,
		Name:     c.Name,
		Email:    c.Email,
		Plan:     c.Plan,
		Industry: c.Industry,
		Size:     c.Size,
		Address:  c.Address,
		Phone:    c.Phone,
		Website:  c.Website,
		Settings: &settingsRecord{
			Timezone:      s.Timezone,
			Currency:      s.Currency,
			Language:      s.Language,
			WorkingHours:  workingHoursRecord{Start: s.WorkingHours.Start, End: s.WorkingHours.End},
			Notifications: notificationsRecord{Email: s.Notifications.Email, Push: s.Notifications.Push, Desktop: s.Notifications.Desktop},
		},
		Modules:   append([]string(nil), c.Modules...),
		CreatedAt: c.CreatedAt,
	}
}

func (r companyRecord) toEntity() *entity.Company {
	settings := entity.DefaultSettings()
	if r.Settings != nil {
		settings = entity.CompanySettings{
			Timezone:      r.Settings.Timezone,
			Currency:      r.Settings.Currency,
			Language:      r.Settings.Language,
			WorkingHours:  entity.WorkingHours{Start: r.Settings.WorkingHours.Start, End: r.Settings.WorkingHours.End},
			Notifications: entity.NotificationSettings(r.Settings.Notifications),
		}
	}
	modules := append([]string(nil), r.Modules...)
	if len(modules) == 0 {
		modules = []string{entity.ModuleCore}
	}
	plan := r.Plan
	if plan == "" {
		plan = entity.PlanFree
	}
	return &entity.Company{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Plan:      plan,
		Industry:  r.Industry,
		Size:      r.Size,
		Address:   r.Address,
		Phone:     r.Phone,
		Website:   r.Website,
		Settings:  settings,
		Modules:   modules,
		CreatedAt: r.CreatedAt,
	}
}
