package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/apportal/apportal/internal/model"
)

// Common errors for credential repository operations.
var (
	ErrCredentialNotFound = errors.New("credential not found")
)

// CreateCredential inserts an issued credential. Each write is an
// independent insert; records are never updated afterwards except for
// last_access. Token uniqueness is left to the store's constraints.
func (r *Repository) CreateCredential(ctx context.Context, cred *model.Credential) error {
	snapshot, err := json.Marshal(cred.User)
	if err != nil {
		return fmt.Errorf("failed to encode user snapshot: %w", err)
	}

	query := `
		INSERT INTO credentials (id, user_id, user_snapshot, token, token_type, expire_at, last_access, client_ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		cred.ID,
		cred.User.UserID,
		snapshot,
		cred.Token,
		string(cred.TokenType),
		cred.ExpireAt,
		cred.LastAccess,
		nullable(cred.ClientIPAddress),
		nullable(cred.UserAgent),
		cred.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

// GetCredentialByToken retrieves the most recently issued credential of
// the given type matching the token. Bearer validation always goes through
// here: the signed token carries no expiry claim, so the stored expire_at
// is authoritative.
func (r *Repository) GetCredentialByToken(ctx context.Context, token string, tokenType model.TokenType) (*model.Credential, error) {
	query := `
		SELECT id, user_snapshot, token, token_type, expire_at, last_access, client_ip_address, user_agent, created_at
		FROM credentials
		WHERE token = $1 AND token_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanCredential(r.pool.QueryRow(ctx, query, token, string(tokenType)))
}

// GetLatestUserCredential retrieves the newest credential of the given
// type issued to a user. Used by OTP verification, where the most recent
// code is the one that counts.
func (r *Repository) GetLatestUserCredential(ctx context.Context, userID string, tokenType model.TokenType) (*model.Credential, error) {
	query := `
		SELECT id, user_snapshot, token, token_type, expire_at, last_access, client_ip_address, user_agent, created_at
		FROM credentials
		WHERE user_id = $1 AND token_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanCredential(r.pool.QueryRow(ctx, query, userID, string(tokenType)))
}

// TouchCredential records the latest use of a credential. Best effort:
// callers log failures but do not fail the request over it.
func (r *Repository) TouchCredential(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE credentials
		SET last_access = $2
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch credential: %w", err)
	}

	return nil
}

func (r *Repository) scanCredential(row pgx.Row) (*model.Credential, error) {
	var (
		cred      model.Credential
		snapshot  []byte
		tokenType string
		clientIP  *string
		userAgent *string
	)

	err := row.Scan(
		&cred.ID,
		&snapshot,
		&cred.Token,
		&tokenType,
		&cred.ExpireAt,
		&cred.LastAccess,
		&clientIP,
		&userAgent,
		&cred.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	cred.TokenType = model.TokenType(tokenType)
	if err := json.Unmarshal(snapshot, &cred.User); err != nil {
		return nil, fmt.Errorf("failed to decode user snapshot: %w", err)
	}
	if clientIP != nil {
		cred.ClientIPAddress = *clientIP
	}
	if userAgent != nil {
		cred.UserAgent = *userAgent
	}

	return &cred, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
