package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studydesk/studydesk-server/internal/model"
)

var _ model.TokenStore = (*TokenRepository)(nil)

type TokenRepository struct {
	db *Connection
}

func NewTokenRepository(db *Connection) *TokenRepository {
	return &TokenRepository{db: db}
}

// Replace deletes prior tokens for the identifier and inserts the new one
// in a single transaction, keeping at most one live token per identifier
// even under concurrent requests.
func (r *TokenRepository) Replace(ctx context.Context, token model.VerificationToken) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1`, token.Identifier); err != nil {
		return fmt.Errorf("failed to delete prior tokens: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO verification_tokens (identifier, token, expires_at) VALUES ($1, $2, $3)`,
		token.Identifier, token.Token, token.ExpiresAt); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ConsumeByToken removes the row for the token and returns it. The delete
// happens regardless of expiry, so an expired token presented once is gone
// for good.
func (r *TokenRepository) ConsumeByToken(ctx context.Context, token string) (model.VerificationToken, error) {
	const query = `DELETE FROM verification_tokens WHERE token = $1
				   RETURNING identifier, token, expires_at`

	var vt model.VerificationToken
	err := r.db.QueryRow(ctx, query, token).Scan(&vt.Identifier, &vt.Token, &vt.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.VerificationToken{}, model.ErrNotFound
		}
		return model.VerificationToken{}, fmt.Errorf("failed to consume token: %w", err)
	}

	return vt, nil
}
