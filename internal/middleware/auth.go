package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/metrics"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

// CredentialSource loads and touches stored bearer credentials.
type CredentialSource interface {
	GetCredentialByToken(ctx context.Context, token string, tokenType model.TokenType) (*model.Credential, error)
	TouchCredential(ctx context.Context, id string, at time.Time) error
}

// BearerCache caches validated auth contexts between requests.
type BearerCache interface {
	GetBearer(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetBearer(ctx context.Context, cacheKey string, authCtx *model.AuthContext, expireAt time.Time) error
}

// AuthConfig holds configuration for the bearer auth middleware.
type AuthConfig struct {
	Logger      *slog.Logger
	Credentials CredentialSource
	Cache       BearerCache
	Metrics     metrics.Recorder
	Secret      []byte
}

// Auth returns a middleware that authenticates bearer tokens. The token
// signature is checked first, but a valid signature alone is never enough:
// the token carries no expiry claim, so the stored credential's expireAt
// is always consulted (through a short-lived cache).
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w)
				return
			}

			if _, err := auth.ParseBearerToken(token, cfg.Secret); err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_signature")
				writeAuthError(w)
				return
			}

			cacheKey := auth.TokenCacheKey(token)
			if cfg.Cache != nil {
				if authCtx, _ := cfg.Cache.GetBearer(r.Context(), cacheKey); authCtx != nil {
					recorder.IncAuthCacheHit()
					next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
					return
				}
			}
			recorder.IncAuthCacheMiss()

			cred, err := cfg.Credentials.GetCredentialByToken(r.Context(), token, model.TokenTypeBearer)
			if err != nil {
				if errors.Is(err, repository.ErrCredentialNotFound) {
					logAuthFailure(cfg.Logger, r, "unknown_token")
				} else {
					cfg.Logger.Error("credential lookup failed during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				writeAuthError(w)
				return
			}

			now := time.Now()
			if cred.IsExpired(now) {
				logAuthFailure(cfg.Logger, r, "expired_token")
				writeAuthError(w)
				return
			}

			// Best effort; a failed touch never fails the request.
			if err := cfg.Credentials.TouchCredential(r.Context(), cred.ID, now); err != nil {
				cfg.Logger.Warn("failed to update credential last access",
					slog.String("credential_id", cred.ID),
					slog.String("error", err.Error()),
				)
			}

			authCtx := &model.AuthContext{
				CredentialID: cred.ID,
				UserID:       cred.User.UserID,
				Email:        cred.User.Email,
				Name:         cred.User.Name,
				Role:         cred.User.Role,
				IsActivated:  cred.User.IsActivated,
			}

			if cfg.Cache != nil {
				if err := cfg.Cache.SetBearer(r.Context(), cacheKey, authCtx, cred.ExpireAt); err != nil {
					cfg.Logger.Warn("failed to cache auth context",
						slog.String("error", err.Error()),
					)
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// extractBearerToken pulls the token out of the Authorization header.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes the 401 envelope. The message is deliberately
// uniform across failure reasons.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message": "Authentication required",
	})
}
