package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/insightos/internal/application/auth"
	"github.com/jhoicas/insightos/internal/application/dto"
	"github.com/jhoicas/insightos/internal/application/usecase"
	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// AccountHandler perfil propio, empresa, miembros y catálogo de planes.
type AccountHandler struct {
	profiles profileSource
	plans    *usecase.PlanService
	modules  *usecase.ModuleService
}

// NewAccountHandler construye el handler.
func NewAccountHandler(profiles profileSource, plans *usecase.PlanService, modules *usecase.ModuleService) *AccountHandler {
	return &AccountHandler{profiles: profiles, plans: plans, modules: modules}
}

// session devuelve el caso de uso del perfil si su sesión sigue siendo la del token.
func (h *AccountHandler) session(c *fiber.Ctx) (*auth.AuthUseCase, error) {
	uc, err := h.profiles.Get(c.UserContext(), GetProfile(c))
	if err != nil {
		return nil, err
	}
	if !ownsSession(c, uc.State()) {
		return nil, domain.ErrNotAuthenticated
	}
	return uc, nil
}

// UpdateMe godoc
// @Summary      Actualizar el perfil propio
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.UpdateUserRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/me [patch]
func (h *AccountHandler) UpdateMe(c *fiber.Ctx) error {
	var in dto.UpdateUserRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	uc, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := uc.UpdateUser(c.UserContext(), in.Patch())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSessionResponse(st))
}

// UpdateCompany godoc
// @Summary      Actualizar la empresa (plan, módulos, datos)
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.UpdateCompanyRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/company [patch]
func (h *AccountHandler) UpdateCompany(c *fiber.Ctx) error {
	var in dto.UpdateCompanyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	uc, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := uc.UpdateCompany(c.UserContext(), in.Patch())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSessionResponse(st))
}

// Members godoc
// @Summary      Miembros activos de la empresa
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200   {array}   dto.MemberResponse
// @Router       /api/company/members [get]
func (h *AccountHandler) Members(c *fiber.Ctx) error {
	uc, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	members, err := uc.Members(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, dto.MemberResponse{
			UserResponse:  *dto.NewUserResponse(m.User),
			DirectReports: append([]string{}, m.DirectReports...),
		})
	}
	return c.JSON(out)
}

// AddMember godoc
// @Summary      Agregar un usuario a la empresa
// @Tags         account
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateMemberRequest  true  "datos del usuario"
// @Success      201   {object}  dto.UserResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/company/members [post]
func (h *AccountHandler) AddMember(c *fiber.Ctx) error {
	var in dto.CreateMemberRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	uc, err := h.session(c)
	if err != nil {
		return writeError(c, err)
	}
	u, err := uc.AddUserToCompany(c.UserContext(), auth.MemberInput{
		Name:       in.Name,
		Email:      in.Email,
		Password:   in.Password,
		Role:       entity.Role(in.Role),
		Department: in.Department,
		Position:   in.Position,
		Phone:      in.Phone,
		Location:   in.Location,
		ReportsTo:  in.ReportsTo,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(u))
}

// Modules godoc
// @Summary      Estado de los módulos del catálogo para la empresa
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  map[string]bool
// @Router       /api/company/modules [get]
func (h *AccountHandler) Modules(c *fiber.Ctx) error {
	out := make(map[string]bool, len(entity.ModuleCatalog))
	for _, m := range entity.ModuleCatalog {
		active, err := h.modules.HasActiveModule(c.UserContext(), GetProfile(c), GetCompanyID(c), m)
		if err != nil {
			return writeError(c, err)
		}
		out[m] = active
	}
	return c.JSON(out)
}

// Plans godoc
// @Summary      Catálogo de planes
// @Tags         account
// @Produce      json
// @Success      200   {array}   dto.PlanResponse
// @Router       /api/plans [get]
func (h *AccountHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(dto.NewPlanResponses(h.plans.List(c.UserContext())))
}
