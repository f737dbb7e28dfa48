package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/credential"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

// UserSource loads and updates users for the auth flows.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ActivateUser(ctx context.Context, id string) error
}

// CredentialIssuer issues and verifies credentials.
type CredentialIssuer interface {
	IssueBearerToken(ctx context.Context, user *model.User) (*model.IssuedToken, error)
	IssueEmailOTP(ctx context.Context, meta credential.RequestMeta, user *model.User) (*model.Credential, error)
	VerifyEmailOTP(ctx context.Context, userID, code string) error
}

// AuthHandler handles login and email verification endpoints.
type AuthHandler struct {
	logger   *slog.Logger
	users    UserSource
	issuer   CredentialIssuer
	validate *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(logger *slog.Logger, users UserSource, issuer CredentialIssuer) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		users:    users,
		issuer:   issuer,
		validate: validator.New(),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies email/password credentials and issues a bearer token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Uniform response; no account enumeration.
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.Error("failed to load user for login",
			slog.String("error", err.Error()),
			slog.String("request_id", requestID(r)),
		)
		internalError(w)
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	issued, err := h.issuer.IssueBearerToken(ctx, user)
	if err != nil {
		h.logger.Error("failed to issue bearer token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	h.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("request_id", requestID(r)),
	)

	writeData(w, http.StatusOK, "Login successful", issued)
}

// RequestVerificationCode issues an email OTP for the authenticated user.
// POST /api/v1/auth/verification-code
func (h *AuthHandler) RequestVerificationCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to load user for verification code",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	if _, err := h.issuer.IssueEmailOTP(ctx, credential.MetaFromRequest(r), user); err != nil {
		h.logger.Error("failed to issue verification code",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	writeMessage(w, http.StatusOK, "Verification code sent")
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

// VerifyEmail checks a submitted verification code and activates the user.
// POST /api/v1/auth/verify
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	if err := h.issuer.VerifyEmailOTP(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, credential.ErrCodeInvalid):
			writeMessage(w, http.StatusBadRequest, "Invalid verification code")
		case errors.Is(err, credential.ErrCodeExpired):
			writeMessage(w, http.StatusBadRequest, "Verification code has expired")
		default:
			h.logger.Error("failed to verify code",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			internalError(w)
		}
		return
	}

	if err := h.users.ActivateUser(ctx, userID); err != nil {
		h.logger.Error("failed to activate user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	h.logger.Info("user email verified", slog.String("user_id", userID))
	writeMessage(w, http.StatusOK, "Email verified")
}
