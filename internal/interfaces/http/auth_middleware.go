package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insightos/internal/application/dto"
	"github.com/jhoicas/insightos/pkg/jwt"
)

// Locals keys para los datos del token en Fiber.
const (
	LocalUserID    = "user_id"
	LocalCompanyID = "company_id"
	LocalRole      = "role"
	LocalProfile   = "profile"
)

// bearerSubject extrae y valida el Bearer Token. Devuelve el código de error si no es válido.
func bearerSubject(c *fiber.Ctx, jwtSecret string) (jwt.Subject, *dto.ErrorResponse) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return jwt.Subject{}, &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "Authorization header requerido"}
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return jwt.Subject{}, &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"}
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return jwt.Subject{}, &dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"}
	}
	sub, err := jwt.Parse(jwtSecret, tokenString)
	if err != nil {
		return jwt.Subject{}, &dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"}
	}
	return sub, nil
}

func setSubject(c *fiber.Ctx, sub jwt.Subject) {
	c.Locals(LocalUserID, sub.UserID)
	c.Locals(LocalCompanyID, sub.CompanyID)
	c.Locals(LocalRole, sub.Role)
	if sub.Profile != "" {
		c.Locals(LocalProfile, sub.Profile)
	}
}

// AuthMiddleware valida el Bearer Token JWT y extrae usuario, empresa, rol y perfil a c.Locals.
// El perfil del token prevalece sobre el header X-Profile-ID.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, fail := bearerSubject(c, jwtSecret)
		if fail != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fail)
		}
		setSubject(c, sub)
		return c.Next()
	}
}

// OptionalAuth como AuthMiddleware, pero sin token (o con uno inválido) la petición sigue
// como anónima.
func OptionalAuth(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sub, fail := bearerSubject(c, jwtSecret); fail == nil {
			setSubject(c, sub)
		}
		return c.Next()
	}
}

// RequireRole autoriza solo a los roles indicados. Debe usarse DESPUÉS de AuthMiddleware.
//   - 401 MISSING_ROLE → token sin claim de rol.
//   - 403 FORBIDDEN    → rol no permitido.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_ROLE", Message: "el token no incluye rol"})
		}
		if !allowed[role] {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "rol sin permisos para esta operación"})
		}
		return c.Next()
	}
}

func localString(c *fiber.Ctx, key string) string {
	v := c.Locals(key)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetUserID devuelve el UserID del contexto (después del middleware de auth).
func GetUserID(c *fiber.Ctx) string { return localString(c, LocalUserID) }

// GetCompanyID devuelve el CompanyID del contexto (después del middleware de auth).
func GetCompanyID(c *fiber.Ctx) string { return localString(c, LocalCompanyID) }

// GetRole devuelve el rol del token.
func GetRole(c *fiber.Ctx) string { return localString(c, LocalRole) }

// GetProfile devuelve el perfil de la petición (token o header X-Profile-ID).
func GetProfile(c *fiber.Ctx) string { return localString(c, LocalProfile) }
