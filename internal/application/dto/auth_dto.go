package dto

import (
	"github.com/jhoicas/insightos/internal/application/auth"
)

// LoginRequest credenciales de inicio de sesión.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterCompanyRequest datos de la empresa en el registro.
type RegisterCompanyRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Industry string `json:"industry"`
	Size     string `json:"size"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

// RegisterUserRequest datos del administrador en el registro.
type RegisterUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// RegisterRequest alta de empresa + administrador.
type RegisterRequest struct {
	Company RegisterCompanyRequest `json:"company"`
	User    RegisterUserRequest    `json:"user"`
}

// Input traduce la petición a la entrada del caso de uso.
func (r RegisterRequest) Input() auth.RegisterInput {
	return auth.RegisterInput{
		Company: auth.CompanyInput(r.Company),
		User:    auth.AdminInput(r.User),
	}
}

// SessionResponse proyección del AuthState para el cliente.
type SessionResponse struct {
	IsAuthenticated bool             `json:"is_authenticated"`
	Loading         bool             `json:"loading"`
	Error           string           `json:"error,omitempty"`
	Source          string           `json:"source,omitempty"`
	User            *UserResponse    `json:"user"`
	Company         *CompanyResponse `json:"company"`
}

// NewSessionResponse mapea el estado de autenticación.
func NewSessionResponse(st auth.State) SessionResponse {
	return SessionResponse{
		IsAuthenticated: st.IsAuthenticated,
		Loading:         st.Loading,
		Error:           st.Error,
		Source:          string(st.Source),
		User:            NewUserResponse(st.User),
		Company:         NewCompanyResponse(st.Company),
	}
}

// NewPublicSessionResponse mapea el estado sin datos de usuario ni empresa, para quien no
// presenta el token de la sesión.
func NewPublicSessionResponse(st auth.State) SessionResponse {
	return SessionResponse{
		IsAuthenticated: st.IsAuthenticated,
		Loading:         st.Loading,
		Error:           st.Error,
		Source:          string(st.Source),
	}
}

// LoginResponse token de acceso + sesión resuelta.
type LoginResponse struct {
	Token   string          `json:"token"`
	Profile string          `json:"profile"`
	Session SessionResponse `json:"session"`
}
