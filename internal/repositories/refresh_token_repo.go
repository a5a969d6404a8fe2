package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/finiti/glossary-api/internal/database"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RefreshTokenRepository struct {
	db *database.DB
}

func NewRefreshTokenRepository(db *database.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func scanRefreshToken(scanner rowScanner) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := scanner.Scan(&t.ID, &t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &t.IsRevoked)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO refresh_tokens (id, token, user_id, created_at, expires_at, is_revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, token, user_id, created_at, expires_at, is_revoked
	`

	return scanRefreshToken(r.db.Pool.QueryRow(ctx, query,
		token.ID, token.Token, token.UserID, token.CreatedAt, token.ExpiresAt, token.IsRevoked,
	))
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, token, user_id, created_at, expires_at, is_revoked
		FROM refresh_tokens WHERE token = $1
	`

	return scanRefreshToken(r.db.Pool.QueryRow(ctx, query, token))
}

// Rotate revokes the presented token and inserts its replacement in one
// transaction. The revoke is guarded on is_revoked = false, so of two
// concurrent refresh calls presenting the same token at most one commits;
// the loser gets ErrUnauthorized.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, presentedID string, next *models.RefreshToken) (*models.RefreshToken, error) {
	next.ID = uuid.New().String()
	next.CreatedAt = time.Now()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET is_revoked = TRUE WHERE id = $1 AND is_revoked = FALSE`,
			presentedID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrUnauthorized
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO refresh_tokens (id, token, user_id, created_at, expires_at, is_revoked)
			 VALUES ($1, $2, $3, $4, $5, FALSE)`,
			next.ID, next.Token, next.UserID, next.CreatedAt, next.ExpiresAt,
		)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return next, nil
}

// Revoke marks a single token revoked (logout)
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = $1 AND is_revoked = FALSE`,
		token,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed. Revoked rows are kept
// until they expire so replay attempts stay observable in the audit trail.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
