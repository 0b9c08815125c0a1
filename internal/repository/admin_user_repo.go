package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gradeshop_api/internal/models"
)

const adminColumns = `id, email, password_hash, name, is_active, last_login_at, created_at, updated_at`

// AdminUserRepository stores panel operators. Emails are compared
// case-insensitively.
type AdminUserRepository struct {
	db *sqlx.DB
}

func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user,
		`SELECT `+adminColumns+` FROM admin_users WHERE lower(email) = lower($1)`, email)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Create inserts user and fills its generated fields. A taken email
// returns ErrDuplicateKey.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO admin_users (email, password_hash, name, is_active)
		VALUES (lower($1), $2, $3, $4)
		RETURNING id, email, created_at, updated_at`,
		user.Email, user.PasswordHash, user.Name, user.IsActive,
	).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	return classify(err)
}

func (r *AdminUserRepository) TouchLastLogin(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admin_users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
