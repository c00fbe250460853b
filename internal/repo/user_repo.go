package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// UserRepo — справочник пользователей.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo создаёт новый UserRepo.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create добавляет пользователя.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, role, is_admin, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.Role,
		u.IsAdmin,
		u.IsActive,
		u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, name, email, role, is_admin, is_active, created_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// List возвращает пользователей; пустая роль — все роли.
func (r *UserRepo) List(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := `
		SELECT id, name, email, role, is_admin, is_active, created_at
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
		ORDER BY created_at, id
	`
	return r.query(ctx, query, nullString(string(role)))
}

// ListActiveByRole возвращает активных пользователей роли по (created_at, id).
func (r *UserRepo) ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := `
		SELECT id, name, email, role, is_admin, is_active, created_at
		FROM users
		WHERE role = $1 AND is_active
		ORDER BY created_at, id
	`
	return r.query(ctx, query, role)
}

func (r *UserRepo) query(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// scanUser сканирует одну строку в User.
func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.IsAdmin,
		&u.IsActive,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
