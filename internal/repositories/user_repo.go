package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/finiti/glossary-api/internal/database"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, username, email, password_hash, role, is_admin, is_active, is_deleted,
		reset_token, reset_token_expires, must_change_password, must_update_profile, created_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash *string
	var resetToken *string
	var resetTokenExpires *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &passwordHash,
		&user.Role, &user.IsAdmin, &user.IsActive, &user.IsDeleted,
		&resetToken, &resetTokenExpires,
		&user.MustChangePassword, &user.MustUpdateProfile,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	user.ResetToken = resetToken
	user.ResetTokenExpires = resetTokenExpires

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`

	return scanUserRow(r.db.Pool.QueryRow(ctx, query, token))
}

// ExistsAdmin reports whether any Admin account exists. Used by startup
// seeding only.
func (r *UserRepository) ExistsAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = 'Admin')`,
	).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now

	if user.Role == "" {
		user.Role = "User"
	}
	user.IsActive = true

	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_admin, is_active, is_deleted,
			reset_token, reset_token_expires, must_change_password, must_update_profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + userColumns + `
	`

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, passwordHash,
		user.Role, user.IsAdmin, user.IsActive, user.IsDeleted,
		user.ResetToken, user.ResetTokenExpires,
		user.MustChangePassword, user.MustUpdateProfile,
		user.CreatedAt,
	))
}

// Update overwrites the mutable fields of a user row
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, role = $4, is_admin = $5,
			is_active = $6, reset_token = $7, reset_token_expires = $8,
			must_change_password = $9, must_update_profile = $10
		WHERE id = $11
		RETURNING ` + userColumns + `
	`

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.Username, user.Email, passwordHash, user.Role, user.IsAdmin,
		user.IsActive, user.ResetToken, user.ResetTokenExpires,
		user.MustChangePassword, user.MustUpdateProfile, id,
	))
}

// Usernames returns a lookup of user id to username for display-name
// resolution in the admin views.
func (r *UserRepository) Usernames(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, username FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usernames: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names[id] = username
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return names, nil
}
