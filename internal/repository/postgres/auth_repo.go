// internal/repository/postgres/auth_repo.go
package postgres

import (
	"context"
	"fmt"

	"routedesk-service/internal/domain/auth"
)

const userColumns = `id, username, full_name, password_hash, role, is_active, created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new staff user
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (username, full_name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(ctx, query, u.Username, u.FullName, u.PasswordHash, u.Role, u.IsActive).Scan(&u.ID, &u.CreatedAt); err != nil {
		return translate(err, fmt.Sprintf("create user %q", u.Username))
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find user %d", id))
	}
	return u, nil
}

// FindByUsername retrieves a user by username, case-insensitively
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
	if err != nil {
		return nil, translate(err, fmt.Sprintf("find user %q", username))
	}
	return u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]auth.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE ($1 = '' OR role = $1) ORDER BY username`, role)
	if err != nil {
		return nil, translate(err, "list users")
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate(err, "scan user")
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, translate(err, "count users")
	}
	return n, nil
}
