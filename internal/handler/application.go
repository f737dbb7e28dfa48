package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apportal/apportal/internal/application"
	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

// ApplicationService answers application lookups.
type ApplicationService interface {
	GetApplications(ctx context.Context, userID string) ([]model.Application, error)
	GetApplicationByID(ctx context.Context, userID, applicationID string) (*model.Application, error)
}

// ApplicationHandler handles the application retrieval endpoints.
type ApplicationHandler struct {
	logger  *slog.Logger
	service ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(logger *slog.Logger, service ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		logger:  logger,
		service: service,
	}
}

// List returns the authenticated user's applications in stored order.
// GET /api/v1/applications
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	apps, err := h.service.GetApplications(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to list applications",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	writeData(w, http.StatusOK, "Application found!", apps)
}

// Get returns a single application by identifier. The id is read from the
// path; a legacy applicationId query parameter takes precedence when
// present.
// GET /api/v1/applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	applicationID := r.URL.Query().Get("applicationId")
	if applicationID == "" {
		applicationID = chi.URLParam(r, "id")
	}
	if applicationID == "" {
		writeMessage(w, http.StatusBadRequest, "Application ID is required")
		return
	}

	app, err := h.service.GetApplicationByID(ctx, userID, applicationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "User not found")
		case errors.Is(err, application.ErrApplicationNotFound):
			writeMessage(w, http.StatusNotFound, "Application not found")
		default:
			h.logger.Error("failed to get application",
				slog.String("user_id", userID),
				slog.String("application_id", applicationID),
				slog.String("error", err.Error()),
			)
			internalError(w)
		}
		return
	}

	writeData(w, http.StatusOK, "Application found!", app)
}
