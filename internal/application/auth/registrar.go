package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
)

// CompanyInput datos de la empresa en el registro.
type CompanyInput struct {
	Name     string
	Email    string
	Industry string
	Size     string
	Address  string
	Phone    string
	Website  string
}

// AdminInput datos del administrador en el registro.
type AdminInput struct {
	Name       string
	Email      string
	Password   string
	Phone      string
	Department string
	Position   string
}

// RegisterInput payload de alta de tenant.
type RegisterInput struct {
	Company CompanyInput
	User    AdminInput
}

// MemberInput datos de un usuario invitado a la empresa actual.
type MemberInput struct {
	Name       string
	Email      string
	Password   string // opcional; sin password el usuario no puede iniciar sesión hasta que se le asigne
	Role       entity.Role
	Department string
	Position   string
	Phone      string
	Location   string
	ReportsTo  string
}

// Member usuario de la empresa con sus reportes directos derivados.
type Member struct {
	User          *entity.User
	DirectReports []string
}

// Register crea empresa + administrador. Los ids se asignan antes de intentar ningún backend
// para que ambos usen los mismos. El camino remoto aborta completo ante cualquier fallo y cae
// al local, que rechaza emails ya registrados (activos o no).
func (uc *AuthUseCase) Register(ctx context.Context, in RegisterInput) (State, error) {
	done, err := uc.begin()
	if err != nil {
		return uc.busy()
	}
	defer done()

	if err := validateRegister(in); err != nil {
		return uc.fail("register", err), err
	}
	uc.startLoading()

	now := uc.now()
	company := &entity.Company{
		ID:        uc.newID(),
		Name:      normalizeInput(in.Company.Name),
		Email:     normalizeInput(in.Company.Email),
		Plan:      entity.PlanFree,
		Industry:  in.Company.Industry,
		Size:      in.Company.Size,
		Address:   in.Company.Address,
		Phone:     in.Company.Phone,
		Website:   in.Company.Website,
		Settings:  entity.DefaultSettings(),
		Modules:   []string{entity.ModuleCore},
		CreatedAt: now,
	}
	if company.Email == "" {
		company.Email = normalizeInput(in.User.Email)
	}
	admin := &entity.User{
		ID:          uc.newID(),
		CompanyID:   company.ID,
		Name:        normalizeInput(in.User.Name),
		Email:       normalizeInput(in.User.Email),
		Role:        entity.RoleAdmin,
		Status:      entity.StatusOffline,
		IsActive:    true,
		Permissions: entity.FullPermissions(entity.ModuleCatalog),
		Department:  in.User.Department,
		Position:    in.User.Position,
		Phone:       in.User.Phone,
		JoinDate:    now,
		Level:       1,
		CreatedAt:   now,
	}
	if admin.Name == "" {
		admin.Name = admin.Email
	}

	src, err := uc.chain.CreateTenant(ctx, company, admin, in.User.Password)
	if err != nil {
		return uc.fail("register", err), err
	}
	uc.log.Info().Str("company_id", company.ID).Str("user_id", admin.ID).Str("store", string(src)).Msg("empresa registrada")

	if src == SourceLocal {
		ptr := entity.SessionPointer{UserID: admin.ID, Email: admin.Email, Timestamp: now}
		if err := uc.local.Remember(ctx, ptr); err != nil {
			uc.log.Warn().Err(err).Msg("no se pudo persistir el puntero de sesión")
		}
	}

	st, err := uc.resolve(ctx, admin.ID, admin.Email)
	uc.state.publish(st)
	return st, err
}

func validateRegister(in RegisterInput) error {
	switch {
	case normalizeInput(in.Company.Name) == "":
		return fmt.Errorf("register: nombre de empresa requerido: %w", domain.ErrInvalidInput)
	case normalizeInput(in.User.Email) == "":
		return fmt.Errorf("register: email requerido: %w", domain.ErrInvalidInput)
	case in.User.Password == "":
		return fmt.Errorf("register: password requerido: %w", domain.ErrInvalidInput)
	}
	return nil
}

// AddUserToCompany crea un usuario en la empresa de la sesión actual. No modifica el AuthState:
// el llamador refresca su lista de miembros.
func (uc *AuthUseCase) AddUserToCompany(ctx context.Context, in MemberInput) (*entity.User, error) {
	done, err := uc.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	cur := uc.state.Get()
	if !cur.IsAuthenticated {
		return nil, domain.ErrNotAuthenticated
	}
	email := normalizeInput(in.Email)
	if email == "" {
		return nil, fmt.Errorf("add member: email requerido: %w", domain.ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = entity.RoleMember
	}
	if !role.Valid() {
		return nil, fmt.Errorf("add member: rol %q: %w", role, domain.ErrInvalidInput)
	}
	if !cur.User.Role.AtLeast(role) {
		return nil, fmt.Errorf("add member: no puede asignar el rol %s: %w", role, domain.ErrForbidden)
	}

	now := uc.now()
	user := &entity.User{
		ID:          uc.newID(),
		CompanyID:   cur.Company.ID,
		Name:        normalizeInput(in.Name),
		Email:       email,
		Role:        role,
		Status:      entity.StatusOffline,
		IsActive:    true,
		Permissions: entity.DefaultPermissions(role, cur.Company.Modules),
		Department:  in.Department,
		Position:    in.Position,
		Phone:       in.Phone,
		Location:    in.Location,
		JoinDate:    now,
		ReportsTo:   in.ReportsTo,
		CreatedAt:   now,
	}
	if user.Name == "" {
		user.Name = email
	}

	if user.ReportsTo != "" {
		members, _, err := uc.chain.Members(ctx, cur.Company.ID)
		if err != nil {
			return nil, err
		}
		h := entity.NewHierarchy(append(members, user))
		if err := h.SetParent(user.ID, user.ReportsTo); err != nil {
			return nil, fmt.Errorf("add member: %v: %w", err, domain.ErrInvalidHierarchy)
		}
		user.Level = h.Depth(user.ID) + 1
	}

	src, err := uc.chain.AddMember(ctx, user, in.Password)
	if err != nil {
		uc.log.Info().Err(err).Str("email", email).Msg("no se pudo agregar el miembro")
		return nil, err
	}
	uc.log.Info().Str("company_id", user.CompanyID).Str("user_id", user.ID).Str("store", string(src)).Msg("miembro agregado")
	out := user.Clone()
	out.PasswordHash = ""
	return out, nil
}

// UpdateUser actualiza campos del usuario de la sesión y fusiona el cambio en el AuthState.
func (uc *AuthUseCase) UpdateUser(ctx context.Context, patch entity.UserPatch) (State, error) {
	done, err := uc.begin()
	if err != nil {
		return uc.busy()
	}
	defer done()

	cur := uc.state.Get()
	if !cur.IsAuthenticated {
		return cur, domain.ErrNotAuthenticated
	}
	if patch.IsEmpty() {
		return cur, nil
	}
	if !patch.Validate() {
		err := fmt.Errorf("update user: %w", domain.ErrInvalidInput)
		return uc.failKeep("update_user", err), err
	}
	if patch.Role != nil && *patch.Role != cur.User.Role {
		err := fmt.Errorf("update user: el rol propio no se cambia desde el perfil: %w", domain.ErrForbidden)
		return uc.failKeep("update_user", err), err
	}
	if patch.ReportsTo != nil && *patch.ReportsTo != cur.User.ReportsTo {
		level, err := uc.checkReportsTo(ctx, cur, *patch.ReportsTo)
		if err != nil {
			return uc.failKeep("update_user", err), err
		}
		patch.Level = &level
	}

	if _, err := uc.chain.UpdateUser(ctx, cur.User.ID, patch); err != nil {
		return uc.failKeep("update_user", err), err
	}
	next := cur
	next.User = cur.User.Clone()
	patch.Apply(next.User)
	next.Loading = false
	next.Error = ""
	uc.state.publish(next)
	return next, nil
}

func (uc *AuthUseCase) checkReportsTo(ctx context.Context, cur State, parent string) (int, error) {
	members, _, err := uc.chain.Members(ctx, cur.Company.ID)
	if err != nil {
		return 0, err
	}
	h := entity.NewHierarchy(members)
	if err := h.SetParent(cur.User.ID, parent); err != nil {
		if errors.Is(err, entity.ErrHierarchyUnknown) && !containsUser(members, cur.User.ID) {
			return 0, fmt.Errorf("update user: %w", domain.ErrUserNotFound)
		}
		return 0, fmt.Errorf("update user: %v: %w", err, domain.ErrInvalidHierarchy)
	}
	return h.Depth(cur.User.ID) + 1, nil
}

func containsUser(users []*entity.User, id string) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// UpdateCompany actualiza la empresa de la sesión. Cambios de plan o módulos se validan contra
// el catálogo: un módulo no permitido por el plan resultante rechaza la operación completa.
func (uc *AuthUseCase) UpdateCompany(ctx context.Context, patch entity.CompanyPatch) (State, error) {
	done, err := uc.begin()
	if err != nil {
		return uc.busy()
	}
	defer done()

	cur := uc.state.Get()
	if !cur.IsAuthenticated {
		return cur, domain.ErrNotAuthenticated
	}
	if !cur.User.Role.AtLeast(entity.RoleAdmin) {
		err := fmt.Errorf("update company: %w", domain.ErrForbidden)
		return uc.failKeep("update_company", err), err
	}
	if patch.IsEmpty() {
		return cur, nil
	}
	if patch.Name != nil && normalizeInput(*patch.Name) == "" {
		err := fmt.Errorf("update company: nombre vacío: %w", domain.ErrInvalidInput)
		return uc.failKeep("update_company", err), err
	}

	if patch.Plan != nil || patch.Modules != nil {
		plan := cur.Company.Plan
		if patch.Plan != nil {
			plan = *patch.Plan
		}
		modules := cur.Company.Modules
		if patch.Modules != nil {
			modules = *patch.Modules
		}
		normalized, rejected, ok := entity.NormalizeModules(plan, modules)
		if !ok {
			err := fmt.Errorf("update company: %q no permitido en plan %q: %w", rejected, plan, domain.ErrModuleNotAllowed)
			return uc.failKeep("update_company", err), err
		}
		patch.Modules = &normalized
	}

	if _, err := uc.chain.UpdateCompany(ctx, cur.Company.ID, patch); err != nil {
		return uc.failKeep("update_company", err), err
	}
	next := cur
	next.Company = cur.Company.Clone()
	patch.Apply(next.Company)
	next.Loading = false
	next.Error = ""
	uc.state.publish(next)
	return next, nil
}

// Members lista los miembros activos de la empresa de la sesión con sus reportes directos.
func (uc *AuthUseCase) Members(ctx context.Context) ([]Member, error) {
	cur := uc.state.Get()
	if !cur.IsAuthenticated {
		return nil, domain.ErrNotAuthenticated
	}
	users, _, err := uc.chain.Members(ctx, cur.Company.ID)
	if err != nil {
		return nil, err
	}
	h := entity.NewHierarchy(users)
	out := make([]Member, 0, len(users))
	for _, u := range users {
		cp := u.Clone()
		cp.PasswordHash = ""
		out = append(out, Member{User: cp, DirectReports: h.DirectReports(u.ID)})
	}
	return out, nil
}
