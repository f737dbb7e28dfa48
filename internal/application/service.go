// Package application provides lookup of a user's embedded applications.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apportal/apportal/internal/model"
)

// Service errors.
var (
	ErrApplicationNotFound = errors.New("application not found")
)

// UserGetter fetches users by identifier.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Service answers application lookups against the user's embedded list.
type Service struct {
	repo UserGetter
}

// NewService creates a Service.
func NewService(repo UserGetter) *Service {
	return &Service{repo: repo}
}

// GetApplications returns the user's full application list in stored
// order. A missing user surfaces as the repository's not-found error and
// nothing past that point is touched.
func (s *Service) GetApplications(ctx context.Context, userID string) ([]model.Application, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get applications: %w", err)
	}

	return user.Applications, nil
}

// GetApplicationByID scans the user's list for the application with the
// given identifier. Both sides are compared in string form, so an id that
// was stored numerically still matches. First match in stored order wins;
// duplicates should not exist but do not break the scan.
func (s *Service) GetApplicationByID(ctx context.Context, userID, applicationID string) (*model.Application, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	want := strings.TrimSpace(applicationID)
	for idx := range user.Applications {
		if user.Applications[idx].ID == want {
			return &user.Applications[idx], nil
		}
	}

	return nil, ErrApplicationNotFound
}
