package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/apportal/apportal/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a new user into the database. The application list is
// stored inline as a JSONB document so the whole aggregate lives and dies
// with the row.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	apps, err := marshalApplications(user.Applications)
	if err != nil {
		return fmt.Errorf("failed to encode applications: %w", err)
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, is_activated, role, applications, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IsActivated,
		user.Role,
		apps,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, is_activated, role, applications, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, is_activated, role, applications, created_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// ActivateUser flips the activation flag after a successful email
// verification.
func (r *Repository) ActivateUser(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET is_activated = TRUE
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repository) scanUser(row pgx.Row) (*model.User, error) {
	var (
		user model.User
		apps []byte
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsActivated,
		&user.Role,
		&apps,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(apps) > 0 {
		if err := json.Unmarshal(apps, &user.Applications); err != nil {
			return nil, fmt.Errorf("failed to decode applications: %w", err)
		}
	}

	return &user, nil
}

// marshalApplications encodes the embedded list, writing an empty JSON
// array rather than SQL NULL for users with no applications.
func marshalApplications(apps []model.Application) ([]byte, error) {
	if apps == nil {
		apps = []model.Application{}
	}
	return json.Marshal(apps)
}
