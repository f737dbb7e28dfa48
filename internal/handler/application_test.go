package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apportal/apportal/internal/application"
	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

// fakeApplicationService returns canned lookup results.
type fakeApplicationService struct {
	apps    []model.Application
	app     *model.Application
	listErr error
	getErr  error

	gotUserID        string
	gotApplicationID string
}

func (f *fakeApplicationService) GetApplications(ctx context.Context, userID string) ([]model.Application, error) {
	f.gotUserID = userID
	return f.apps, f.listErr
}

func (f *fakeApplicationService) GetApplicationByID(ctx context.Context, userID, applicationID string) (*model.Application, error) {
	f.gotUserID = userID
	f.gotApplicationID = applicationID
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.app, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// authedRequest builds a request carrying an authenticated context.
func authedRequest(t *testing.T, method, target, userID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	ctx := auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: userID})
	return r.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, body []byte) (string, json.RawMessage) {
	t.Helper()
	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("response is not an envelope: %v", err)
	}
	return env.Message, env.Data
}

func TestApplicationList(t *testing.T) {
	t.Parallel()

	svc := &fakeApplicationService{
		apps: []model.Application{
			{ID: "a1", Fields: map[string]any{}},
			{ID: "a2", Fields: map[string]any{}},
		},
	}
	h := NewApplicationHandler(discardLogger(), svc)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(t, http.MethodGet, "/api/v1/applications", "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if svc.gotUserID != "u1" {
		t.Errorf("service called with user %q, want u1", svc.gotUserID)
	}

	message, data := decodeEnvelope(t, w.Body.Bytes())
	if message != "Application found!" {
		t.Errorf("message = %q", message)
	}

	var apps []model.Application
	if err := json.Unmarshal(data, &apps); err != nil {
		t.Fatalf("data is not an application list: %v", err)
	}
	if len(apps) != 2 || apps[0].ID != "a1" || apps[1].ID != "a2" {
		t.Errorf("data = %v, want [a1 a2] in order", apps)
	}
}

func TestApplicationList_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		svc        *fakeApplicationService
		userID     string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "user not found",
			svc:        &fakeApplicationService{listErr: repository.ErrUserNotFound},
			userID:     "missing",
			wantStatus: http.StatusNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "store failure",
			svc:        &fakeApplicationService{listErr: context.DeadlineExceeded},
			userID:     "u1",
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Something went wrong",
		},
		{
			name:       "no auth context",
			svc:        &fakeApplicationService{},
			userID:     "",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Authentication required",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewApplicationHandler(discardLogger(), tc.svc)

			w := httptest.NewRecorder()
			var r *http.Request
			if tc.userID == "" {
				r = httptest.NewRequest(http.MethodGet, "/api/v1/applications", nil)
			} else {
				r = authedRequest(t, http.MethodGet, "/api/v1/applications", tc.userID)
			}
			h.List(w, r)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			message, _ := decodeEnvelope(t, w.Body.Bytes())
			if message != tc.wantMsg {
				t.Errorf("message = %q, want %q", message, tc.wantMsg)
			}
		})
	}
}

func TestApplicationGet(t *testing.T) {
	t.Parallel()

	svc := &fakeApplicationService{
		app: &model.Application{ID: "a2", Fields: map[string]any{"title": "Second"}},
	}
	h := NewApplicationHandler(discardLogger(), svc)

	w := httptest.NewRecorder()
	h.Get(w, authedRequest(t, http.MethodGet, "/api/v1/applications/x?applicationId=a2", "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	// The legacy query parameter wins over the path segment.
	if svc.gotApplicationID != "a2" {
		t.Errorf("service called with application %q, want a2", svc.gotApplicationID)
	}

	message, data := decodeEnvelope(t, w.Body.Bytes())
	if message != "Application found!" {
		t.Errorf("message = %q", message)
	}

	var app model.Application
	if err := json.Unmarshal(data, &app); err != nil {
		t.Fatalf("data is not an application: %v", err)
	}
	if app.ID != "a2" {
		t.Errorf("data ID = %q, want a2", app.ID)
	}
}

func TestApplicationGet_NotFound(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"absent application", application.ErrApplicationNotFound, "Application not found"},
		{"missing user", repository.ErrUserNotFound, "User not found"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeApplicationService{getErr: tc.err}
			h := NewApplicationHandler(discardLogger(), svc)

			w := httptest.NewRecorder()
			h.Get(w, authedRequest(t, http.MethodGet, "/api/v1/applications/zz?applicationId=zz", "u1"))

			if w.Code != http.StatusNotFound {
				t.Errorf("status = %d, want 404", w.Code)
			}
			message, _ := decodeEnvelope(t, w.Body.Bytes())
			if message != tc.wantMsg {
				t.Errorf("message = %q, want %q", message, tc.wantMsg)
			}
		})
	}
}

func TestApplicationGet_MissingID(t *testing.T) {
	t.Parallel()

	h := NewApplicationHandler(discardLogger(), &fakeApplicationService{})

	w := httptest.NewRecorder()
	h.Get(w, authedRequest(t, http.MethodGet, "/api/v1/applications/", "u1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
