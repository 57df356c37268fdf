package dto

import (
	"time"

	"github.com/jhoicas/insightos/internal/domain/entity"
)

// PermissionDTO acciones concedidas sobre un módulo.
type PermissionDTO struct {
	Module  string   `json:"module"`
	Actions []string `json:"actions"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Status      string          `json:"status"`
	IsActive    bool            `json:"is_active"`
	Permissions []PermissionDTO `json:"permissions"`
	Department  string          `json:"department,omitempty"`
	Position    string          `json:"position,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Location    string          `json:"location,omitempty"`
	JoinDate    time.Time       `json:"join_date"`
	LastLogin   *time.Time      `json:"last_login,omitempty"`
	Level       int             `json:"level"`
	ReportsTo   string          `json:"reports_to,omitempty"`
	Skills      []string        `json:"skills"`
	Bio         string          `json:"bio,omitempty"`
	Avatar      string          `json:"avatar,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MemberResponse usuario de la empresa con sus reportes directos.
type MemberResponse struct {
	UserResponse
	DirectReports []string `json:"direct_reports"`
}

// CreateMemberRequest entrada para agregar un usuario a la empresa de la sesión.
type CreateMemberRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password"`
	Role       string `json:"role" validate:"omitempty,oneof=super_admin admin manager member"`
	Department string `json:"department"`
	Position   string `json:"position"`
	Phone      string `json:"phone"`
	Location   string `json:"location"`
	ReportsTo  string `json:"reports_to"`
}

// UpdateUserRequest actualización parcial del perfil propio (campos opcionales).
type UpdateUserRequest struct {
	Name       *string   `json:"name"`
	Status     *string   `json:"status" validate:"omitempty,oneof=online away offline"`
	Department *string   `json:"department"`
	Position   *string   `json:"position"`
	Phone      *string   `json:"phone"`
	Location   *string   `json:"location"`
	ReportsTo  *string   `json:"reports_to"`
	Skills     *[]string `json:"skills"`
	Bio        *string   `json:"bio"`
	Avatar     *string   `json:"avatar"`
}

// Patch traduce la petición al patch de dominio.
func (r UpdateUserRequest) Patch() entity.UserPatch {
	return entity.UserPatch{
		Name:       r.Name,
		Status:     r.Status,
		Department: r.Department,
		Position:   r.Position,
		Phone:      r.Phone,
		Location:   r.Location,
		ReportsTo:  r.ReportsTo,
		Skills:     r.Skills,
		Bio:        r.Bio,
		Avatar:     r.Avatar,
	}
}

// NewUserResponse mapea la entidad; nil si u es nil.
func NewUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	perms := make([]PermissionDTO, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		perms = append(perms, PermissionDTO{Module: p.Module, Actions: append([]string{}, p.Actions...)})
	}
	return &UserResponse{
		ID:          u.ID,
		CompanyID:   u.CompanyID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        string(u.Role),
		Status:      u.Status,
		IsActive:    u.IsActive,
		Permissions: perms,
		Department:  u.Department,
		Position:    u.Position,
		Phone:       u.Phone,
		Location:    u.Location,
		JoinDate:    u.JoinDate,
		LastLogin:   u.LastLogin,
		Level:       u.Level,
		ReportsTo:   u.ReportsTo,
		Skills:      append([]string{}, u.Skills...),
		Bio:         u.Bio,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
	}
}
