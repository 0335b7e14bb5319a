package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cozyapp/cozyapp-api/internal/domain"
	"github.com/cozyapp/cozyapp-api/internal/domain/entity"
	"github.com/cozyapp/cozyapp-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, name, password_hash, is_active, roles, last_login, preferences,
	reset_token, reset_token_expiry, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var (
		id    uuid.UUID
		roles []string
		prefs []byte
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &roles, &u.LastLogin, &prefs,
		&u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = id.String()
	u.Roles = entity.Roles(roles)
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	return u, nil
}

// parseID maps malformed ids to not found, as no row could ever carry them.
func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, domain.NotFound("user not found")
	}
	return uid, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	id := uuid.New()
	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	roles := u.Roles.Normalize()
	lastLogin := u.LastLogin
	if lastLogin.IsZero() {
		lastLogin = time.Now().UTC()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, is_active, roles, last_login, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, id, u.Email, u.Name, u.PasswordHash, u.IsActive, []string(roles), lastLogin, prefs)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Duplicate("email")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id.String()
	u.Roles = roles
	u.LastLogin = lastLogin
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	u, err := r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_token_expiry > $2`, token, now)
}

// queryOne returns (nil, nil) when no row matches.
func (r *UserRepository) queryOne(ctx context.Context, sql string, args ...any) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, f entity.UserFilter) ([]*entity.User, error) {
	where, args := buildWhere(f)
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context, f entity.UserFilter) (int64, error) {
	where, args := buildWhere(f)
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, passwordHash string) (*entity.User, error) {
	return r.updateReturning(ctx, id, `name = $2, password_hash = COALESCE(NULLIF($3, ''), password_hash)`, name, passwordHash)
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*entity.User, error) {
	return r.updateReturning(ctx, id, `is_active = $2`, active)
}

func (r *UserRepository) SetRoles(ctx context.Context, id string, roles entity.Roles) (*entity.User, error) {
	return r.updateReturning(ctx, id, `roles = $2`, []string(roles.Normalize()))
}

func (r *UserRepository) SetPreferences(ctx context.Context, id string, prefs entity.Preferences) (*entity.User, error) {
	b, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	return r.updateReturning(ctx, id, `preferences = $2`, b)
}

func (r *UserRepository) ReplacePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.updateReturning(ctx, id, `password_hash = $2, reset_token = NULL, reset_token_expiry = NULL`, passwordHash)
	return err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.updateReturning(ctx, id, `last_login = $2`, at)
	return err
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	_, err := r.updateReturning(ctx, id, `reset_token = $2, reset_token_expiry = $3`, token, expiry)
	return err
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) (*entity.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	u, err := r.queryOne(ctx, `
		UPDATE users
		SET password_hash = $3, reset_token = NULL, reset_token_expiry = NULL, updated_at = now()
		WHERE reset_token = $1 AND reset_token_expiry > $2
		RETURNING `+userColumns, token, now, passwordHash)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// updateReturning runs a single-statement UPDATE keyed by id ($1); set refers to args from $2.
func (r *UserRepository) updateReturning(ctx context.Context, id, set string, args ...any) (*entity.User, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	u, err := r.queryOne(ctx, `UPDATE users SET `+set+`, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		append([]any{uid}, args...)...)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func buildWhere(f entity.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.Active != nil {
		conds = append(conds, "is_active = "+arg(*f.Active))
	}
	switch f.Role {
	case entity.RoleAdmin:
		conds = append(conds, arg(entity.RoleAdmin)+" = ANY(roles)")
	case entity.RoleUser:
		conds = append(conds, "NOT ("+arg(entity.RoleAdmin)+" = ANY(roles))")
	}
	if f.CreatedSince != nil {
		conds = append(conds, "created_at >= "+arg(*f.CreatedSince))
	}
	if f.LastLoginSince != nil {
		conds = append(conds, "last_login >= "+arg(*f.LastLoginSince))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
