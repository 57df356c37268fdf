package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/insightos/internal/domain"
	"github.com/jhoicas/insightos/internal/domain/entity"
	"github.com/jhoicas/insightos/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL (usable con pool o tx).
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios. Pasar pool o tx.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

const userColumns = `
	u.id, u.company_id, u.name, u.email, u.role, u.status, u.is_active, u.permissions,
	COALESCE(u.department, ''), COALESCE(u.position, ''), COALESCE(u.phone, ''), COALESCE(u.location, ''),
	u.join_date, u.last_login, u.level, COALESCE(u.reports_to::text, ''), u.skills,
	COALESCE(u.bio, ''), COALESCE(u.avatar, ''), u.created_at`

const accountQuery = `
	SELECT ` + userColumns + `, ` + companyColumns + `
	FROM users u
	JOIN companies c ON c.id = u.company_id
	WHERE u.is_active = TRUE`

type scanner interface {
	Scan(dest ...any) error
}

// userRow registro crudo de la tabla users; los nombres se mapean a entity.User en toEntity.
type userRow struct {
	ID, CompanyID, Name, Email, Role, Status string
	IsActive                                 bool
	Permissions                              []byte
	Department, Position, Phone, Location    string
	JoinDate                                 time.Time
	LastLogin                                *time.Time
	Level                                    int
	ReportsTo                                string
	Skills                                   []string
	Bio, Avatar                              string
	CreatedAt                                time.Time
}

func (r *userRow) targets() []any {
	return []any{
		&r.ID, &r.CompanyID, &r.Name, &r.Email, &r.Role, &r.Status, &r.IsActive, &r.Permissions,
		&r.Department, &r.Position, &r.Phone, &r.Location,
		&r.JoinDate, &r.LastLogin, &r.Level, &r.ReportsTo, &r.Skills,
		&r.Bio, &r.Avatar, &r.CreatedAt,
	}
}

type permissionJSON struct {
	Module  string   `json:"module"`
	Actions []string `json:"actions"`
}

func (r *userRow) toEntity() (*entity.User, error) {
	var perms []permissionJSON
	if len(r.Permissions) > 0 {
		if err := json.Unmarshal(r.Permissions, &perms); err != nil {
			return nil, fmt.Errorf("decodificar permisos de %s: %w", r.ID, err)
		}
	}
	out := make([]entity.Permission, 0, len(perms))
	for _, p := range perms {
		out = append(out, entity.Permission{Module: p.Module, Actions: p.Actions})
	}
	status := r.Status
	if status == "" {
		status = entity.StatusOffline
	}
	return &entity.User{
		ID:          r.ID,
		CompanyID:   r.CompanyID,
		Name:        r.Name,
		Email:       r.Email,
		Role:        entity.Role(r.Role),
		Status:      status,
		IsActive:    r.IsActive,
		Permissions: out,
		Department:  r.Department,
		Position:    r.Position,
		Phone:       r.Phone,
		Location:    r.Location,
		JoinDate:    r.JoinDate,
		LastLogin:   r.LastLogin,
		Level:       r.Level,
		ReportsTo:   r.ReportsTo,
		Skills:      r.Skills,
		Bio:         r.Bio,
		Avatar:      r.Avatar,
		CreatedAt:   r.CreatedAt,
	}, nil
}

func encodePermissions(perms []entity.Permission) ([]byte, error) {
	out := make([]permissionJSON, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionJSON{Module: p.Module, Actions: p.Actions})
	}
	return json.Marshal(out)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	perms, err := encodePermissions(user.Permissions)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	skills := user.Skills
	if skills == nil {
		skills = []string{}
	}
	query := `
		INSERT INTO users (id, company_id, name, email, role, status, is_active, permissions,
			department, position, phone, location, join_date, level, reports_to, skills, bio, avatar,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)`
	_, err = r.q.Exec(ctx, query,
		user.ID, user.CompanyID, user.Name, user.Email, string(user.Role), user.Status, user.IsActive, perms,
		nullable(user.Department), nullable(user.Position), nullable(user.Phone), nullable(user.Location),
		user.JoinDate, user.Level, nullable(user.ReportsTo), skills, nullable(user.Bio), nullable(user.Avatar),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetActiveAccount obtiene el usuario activo por id con su empresa.
func (r *UserRepo) GetActiveAccount(ctx context.Context, id string) (*entity.Account, error) {
	acc, err := scanAccount(r.q.QueryRow(ctx, accountQuery+` AND u.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

// GetActiveAccountByEmail obtiene el usuario activo por email con su empresa.
func (r *UserRepo) GetActiveAccountByEmail(ctx context.Context, email string) (*entity.Account, error) {
	acc, err := scanAccount(r.q.QueryRow(ctx, accountQuery+` AND lower(u.email) = lower($1) LIMIT 1`, email))
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return acc, nil
}

func scanAccount(row scanner) (*entity.Account, error) {
	var u userRow
	var c companyRow
	if err := row.Scan(append(u.targets(), c.targets()...)...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	user, err := u.toEntity()
	if err != nil {
		return nil, err
	}
	company, err := c.toEntity()
	if err != nil {
		return nil, err
	}
	return &entity.Account{User: user, Company: company}, nil
}

// FindActiveByEmail obtiene el usuario activo con ese email (sin distinguir mayúsculas).
func (r *UserRepo) FindActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.is_active = TRUE AND lower(u.email) = lower($1) LIMIT 1`
	var row userRow
	if err := r.q.QueryRow(ctx, query, email).Scan(row.targets()...); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return row.toEntity()
}

// MarkOnline deja al usuario en línea y registra el último acceso.
func (r *UserRepo) MarkOnline(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx,
		`UPDATE users SET status = $2, last_login = $3, updated_at = $3 WHERE id = $1`,
		id, entity.StatusOnline, at)
	if err != nil {
		return fmt.Errorf("mark online: %w", err)
	}
	return nil
}

// MarkOffline deja al usuario fuera de línea.
func (r *UserRepo) MarkOffline(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = now() WHERE id = $1`,
		id, entity.StatusOffline)
	if err != nil {
		return fmt.Errorf("mark offline: %w", err)
	}
	return nil
}

// Update aplica solo los campos presentes del patch.
func (r *UserRepo) Update(ctx context.Context, id string, patch entity.UserPatch) error {
	set := newSetBuilder()
	set.add("name", patch.Name)
	set.add("status", patch.Status)
	if patch.Role != nil {
		set.put("role", string(*patch.Role))
	}
	set.add("department", patch.Department)
	set.add("position", patch.Position)
	set.add("phone", patch.Phone)
	set.add("location", patch.Location)
	if patch.Level != nil {
		set.put("level", *patch.Level)
	}
	if patch.ReportsTo != nil {
		set.put("reports_to", nullable(*patch.ReportsTo))
	}
	if patch.Skills != nil {
		set.put("skills", *patch.Skills)
	}
	set.add("bio", patch.Bio)
	set.add("avatar", patch.Avatar)
	if patch.Permissions != nil {
		perms, err := encodePermissions(*patch.Permissions)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		set.put("permissions", perms)
	}
	if set.empty() {
		return nil
	}
	query, args := set.build("users", "id = $%d AND is_active = TRUE", id)
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListActiveByCompany lista los usuarios activos de la empresa por fecha de alta.
func (r *UserRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u
		WHERE u.company_id = $1 AND u.is_active = TRUE ORDER BY u.created_at, u.id`
	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var list []*entity.User
	for rows.Next() {
		var row userRow
		if err := rows.Scan(row.targets()...); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// setBuilder arma UPDATE ... SET dinámicos con placeholders numerados.
type setBuilder struct {
	cols []string
	args []any
}

func newSetBuilder() *setBuilder { return &setBuilder{} }

func (b *setBuilder) put(col string, v any) {
	b.args = append(b.args, v)
	b.cols = append(b.cols, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

func (b *setBuilder) add(col string, v *string) {
	if v != nil {
		b.put(col, *v)
	}
}

func (b *setBuilder) empty() bool { return len(b.cols) == 0 }

// build devuelve la sentencia con updated_at = now() y el filtro where (un %d para el id).
func (b *setBuilder) build(table, where string, id string) (string, []any) {
	args := append(b.args, id)
	cond := fmt.Sprintf(where, len(args))
	query := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE %s",
		table, strings.Join(b.cols, ", "), cond)
	return query, args
}
