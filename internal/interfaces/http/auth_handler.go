package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/application/dto"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/pkg/config"
	"github.com/jhoicas/insightos/pkg/jwt"
	"github.com/jhoicas/insightos/pkg/logger"
)

// profileSource entrega el contexto de autenticación de un perfil (lo implementa *auth.Profiles).
type profileSource interface {
	Get(ctx context.Context, profile string) (*auth.AuthUseCase, error)
}

// AuthHandler maneja login, registro, logout y sesión.
type AuthHandler struct {
	profiles profileSource
	jwt      config.JWTConfig
	log      *logger.Logger
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(profiles profileSource, jwtCfg config.JWTConfig, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{profiles: profiles, jwt: jwtCfg, log: log.Component("http")}
}

func (h *AuthHandler) useCase(c *fiber.Ctx) (*auth.AuthUseCase, error) {
	return h.profiles.Get(c.UserContext(), GetProfile(c))
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Profile-ID  header  string  false  "perfil local"
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Email == "" || in.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "email y password son requeridos"})
	}
	uc, err := h.useCase(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := uc.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_CREDENTIALS", Message: domain.UserMessage(err)})
		}
		return writeError(c, err)
	}
	return h.issue(c, fiber.StatusOK, st)
}

// Register godoc
// @Summary      Registrar empresa y administrador
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "empresa + administrador"
// @Success      201   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	uc, err := h.useCase(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := uc.Register(c.UserContext(), in.Input())
	if err != nil {
		return writeError(c, err)
	}
	return h.issue(c, fiber.StatusCreated, st)
}

// issue firma el token de la sesión resuelta.
func (h *AuthHandler) issue(c *fiber.Ctx, status int, st auth.State) error {
	if !st.IsAuthenticated {
		return writeError(c, domain.ErrNotAuthenticated)
	}
	profile := GetProfile(c)
	token, err := jwt.Generate(h.jwt.Secret, h.jwt.Issuer, h.jwt.Expiration, jwt.Subject{
		UserID:    st.User.ID,
		CompanyID: st.Company.ID,
		Role:      string(st.User.Role),
		Profile:   profile,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", st.User.ID).Msg("no se pudo firmar el token")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "no se pudo emitir el token"})
	}
	return c.Status(status).JSON(dto.LoginResponse{
		Token:   token,
		Profile: profile,
		Session: dto.NewSessionResponse(st),
	})
}

// ownsSession indica si el token de la petición pertenece al usuario de la sesión del perfil.
func ownsSession(c *fiber.Ctx, st auth.State) bool {
	uid := GetUserID(c)
	return uid != "" && st.IsAuthenticated && st.User != nil && st.User.ID == uid
}

// Logout godoc
// @Summary      Cerrar sesión del perfil
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	uc, err := h.useCase(c)
	if err != nil {
		return writeError(c, err)
	}
	if !ownsSession(c, uc.State()) {
		return writeError(c, domain.ErrNotAuthenticated)
	}
	st, err := uc.Logout(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSessionResponse(st))
}

// Session godoc
// @Summary      Estado de autenticación del perfil
// @Description  Sin el token de la sesión solo se informa el estado, sin usuario ni empresa.
// @Tags         auth
// @Produce      json
// @Success      200   {object}  dto.SessionResponse
// @Router       /api/session [get]
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	uc, err := h.useCase(c)
	if err != nil {
		return writeError(c, err)
	}
	st := uc.State()
	if !ownsSession(c, st) {
		return c.JSON(dto.NewPublicSessionResponse(st))
	}
	return c.JSON(dto.NewSessionResponse(st))
}
