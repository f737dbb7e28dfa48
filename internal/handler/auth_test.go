package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/credential"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

type fakeUserSource struct {
	usersByEmail map[string]*model.User
	usersByID    map[string]*model.User
	byEmailErr   error
	byIDErr      error
	activateErr  error

	activated []string
}

func (f *fakeUserSource) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	u, ok := f.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserSource) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	u, ok := f.usersByID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserSource) ActivateUser(ctx context.Context, id string) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	f.activated = append(f.activated, id)
	return nil
}

type fakeIssuer struct {
	issued    *model.IssuedToken
	bearerErr error
	otpErr    error
	verifyErr error

	otpIssuedFor  []string
	verifiedCodes []string
}

func (f *fakeIssuer) IssueBearerToken(ctx context.Context, user *model.User) (*model.IssuedToken, error) {
	if f.bearerErr != nil {
		return nil, f.bearerErr
	}
	return f.issued, nil
}

func (f *fakeIssuer) IssueEmailOTP(ctx context.Context, meta credential.RequestMeta, user *model.User) (*model.Credential, error) {
	if f.otpErr != nil {
		return nil, f.otpErr
	}
	f.otpIssuedFor = append(f.otpIssuedFor, user.ID)
	return &model.Credential{ID: "cred-1", Token: "123456"}, nil
}

func (f *fakeIssuer) VerifyEmailOTP(ctx context.Context, userID, code string) error {
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verifiedCodes = append(f.verifiedCodes, code)
	return nil
}

func testUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &model.User{
		ID:           "u1",
		Email:        "u1@example.com",
		Name:         "First User",
		PasswordHash: hash,
	}
}

func postJSON(target, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestLogin(t *testing.T) {
	t.Parallel()

	user := testUser(t, "correct horse")
	users := &fakeUserSource{usersByEmail: map[string]*model.User{user.Email: user}}
	expireDate := time.Now().Add(24 * time.Hour)
	issuer := &fakeIssuer{issued: &model.IssuedToken{Token: "signed.jwt.token", ExpireDate: expireDate}}
	h := NewAuthHandler(discardLogger(), users, issuer)

	w := httptest.NewRecorder()
	h.Login(w, postJSON("/api/v1/auth/login", `{"email":"u1@example.com","password":"correct horse"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}
	message, data := decodeEnvelope(t, w.Body.Bytes())
	if message != "Login successful" {
		t.Errorf("message = %q", message)
	}

	var issued model.IssuedToken
	if err := json.Unmarshal(data, &issued); err != nil {
		t.Fatalf("data is not an issued token: %v", err)
	}
	if issued.Token != "signed.jwt.token" {
		t.Errorf("token = %q", issued.Token)
	}
	if !issued.ExpireDate.Equal(expireDate) {
		t.Errorf("expireDate = %v, want %v", issued.ExpireDate, expireDate)
	}
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	user := testUser(t, "correct horse")

	testCases := []struct {
		name       string
		users      *fakeUserSource
		issuer     *fakeIssuer
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "unknown email",
			users:      &fakeUserSource{usersByEmail: map[string]*model.User{}},
			issuer:     &fakeIssuer{},
			body:       `{"email":"nobody@example.com","password":"whatever"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "wrong password",
			users:      &fakeUserSource{usersByEmail: map[string]*model.User{user.Email: user}},
			issuer:     &fakeIssuer{},
			body:       `{"email":"u1@example.com","password":"incorrect"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "missing password",
			users:      &fakeUserSource{},
			issuer:     &fakeIssuer{},
			body:       `{"email":"u1@example.com"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Email and password are required",
		},
		{
			name:       "malformed email",
			users:      &fakeUserSource{},
			issuer:     &fakeIssuer{},
			body:       `{"email":"not-an-email","password":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Email and password are required",
		},
		{
			name:       "invalid body",
			users:      &fakeUserSource{},
			issuer:     &fakeIssuer{},
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid request body",
		},
		{
			name:       "store failure",
			users:      &fakeUserSource{byEmailErr: errors.New("connection reset")},
			issuer:     &fakeIssuer{},
			body:       `{"email":"u1@example.com","password":"correct horse"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Something went wrong",
		},
		{
			name:       "signing failure",
			users:      &fakeUserSource{usersByEmail: map[string]*model.User{user.Email: user}},
			issuer:     &fakeIssuer{bearerErr: errors.New("no secret")},
			body:       `{"email":"u1@example.com","password":"correct horse"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Something went wrong",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuthHandler(discardLogger(), tc.users, tc.issuer)

			w := httptest.NewRecorder()
			h.Login(w, postJSON("/api/v1/auth/login", tc.body))

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

func TestRequestVerificationCode(t *testing.T) {
	t.Parallel()

	user := testUser(t, "pw")
	users := &fakeUserSource{usersByID: map[string]*model.User{user.ID: user}}
	issuer := &fakeIssuer{}
	h := NewAuthHandler(discardLogger(), users, issuer)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verification-code", nil)
	r = r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: user.ID}))

	w := httptest.NewRecorder()
	h.RequestVerificationCode(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}
	message, _ := decodeEnvelope(t, w.Body.Bytes())
	if message != "Verification code sent" {
		t.Errorf("message = %q", message)
	}
	if len(issuer.otpIssuedFor) != 1 || issuer.otpIssuedFor[0] != user.ID {
		t.Errorf("otp issued for %v, want [u1]", issuer.otpIssuedFor)
	}
}

func TestRequestVerificationCode_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		userID     string
		users      *fakeUserSource
		issuer     *fakeIssuer
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "no auth context",
			userID:     "",
			users:      &fakeUserSource{},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Authentication required",
		},
		{
			name:       "user disappeared",
			userID:     "ghost",
			users:      &fakeUserSource{usersByID: map[string]*model.User{}},
			issuer:     &fakeIssuer{},
			wantStatus: http.StatusNotFound,
			wantMsg:    "User not found",
		},
		{
			name:       "send failure",
			userID:     "u1",
			users:      &fakeUserSource{usersByID: map[string]*model.User{"u1": {ID: "u1"}}},
			issuer:     &fakeIssuer{otpErr: errors.New("smtp down")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Something went wrong",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuthHandler(discardLogger(), tc.users, tc.issuer)

			r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verification-code", nil)
			if tc.userID != "" {
				r = r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: tc.userID}))
			}

			w := httptest.NewRecorder()
			h.RequestVerificationCode(w, r)

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

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	users := &fakeUserSource{usersByID: map[string]*model.User{"u1": {ID: "u1"}}}
	issuer := &fakeIssuer{}
	h := NewAuthHandler(discardLogger(), users, issuer)

	r := postJSON("/api/v1/auth/verify", `{"code":"123456"}`)
	r = r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: "u1"}))

	w := httptest.NewRecorder()
	h.VerifyEmail(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body)
	}
	message, _ := decodeEnvelope(t, w.Body.Bytes())
	if message != "Email verified" {
		t.Errorf("message = %q", message)
	}
	if len(issuer.verifiedCodes) != 1 || issuer.verifiedCodes[0] != "123456" {
		t.Errorf("verified codes = %v", issuer.verifiedCodes)
	}
	if len(users.activated) != 1 || users.activated[0] != "u1" {
		t.Errorf("activated users = %v, want [u1]", users.activated)
	}
}

func TestVerifyEmail_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		body       string
		issuer     *fakeIssuer
		users      *fakeUserSource
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "invalid code",
			body:       `{"code":"000000"}`,
			issuer:     &fakeIssuer{verifyErr: credential.ErrCodeInvalid},
			users:      &fakeUserSource{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid verification code",
		},
		{
			name:       "expired code",
			body:       `{"code":"123456"}`,
			issuer:     &fakeIssuer{verifyErr: credential.ErrCodeExpired},
			users:      &fakeUserSource{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Verification code has expired",
		},
		{
			name:       "missing code",
			body:       `{}`,
			issuer:     &fakeIssuer{},
			users:      &fakeUserSource{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Verification code is required",
		},
		{
			name:       "non numeric code",
			body:       `{"code":"abc123"}`,
			issuer:     &fakeIssuer{},
			users:      &fakeUserSource{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Verification code is required",
		},
		{
			name:       "activation failure",
			body:       `{"code":"123456"}`,
			issuer:     &fakeIssuer{},
			users:      &fakeUserSource{activateErr: errors.New("write failed")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Something went wrong",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewAuthHandler(discardLogger(), tc.users, tc.issuer)

			r := postJSON("/api/v1/auth/verify", tc.body)
			r = r.WithContext(auth.ContextWithAuth(r.Context(), &model.AuthContext{UserID: "u1"}))

			w := httptest.NewRecorder()
			h.VerifyEmail(w, r)

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
