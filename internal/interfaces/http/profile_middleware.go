package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/application/dto"
)

// HeaderProfileID header con el perfil de almacenamiento local del cliente.
const HeaderProfileID = "X-Profile-ID"

// ProfileMiddleware carga el perfil del header en c.Locals; sin header usa el perfil por defecto.
func ProfileMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile := strings.TrimSpace(c.Get(HeaderProfileID))
		if profile == "" {
			profile = auth.DefaultProfile
		}
		if !auth.ValidProfile(profile) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PROFILE", Message: "X-Profile-ID inválido"})
		}
		c.Locals(LocalProfile, profile)
		return c.Next()
	}
}
