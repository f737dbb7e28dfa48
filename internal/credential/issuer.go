// Package credential implements the credential lifecycle: issuing email
// verification codes and bearer tokens, and verifying codes against the
// store. Both variants share one store; expiry is enforced by comparison,
// never by deleting records.
package credential

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/metrics"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

// Verification errors.
var (
	ErrCodeInvalid = errors.New("verification code is invalid")
	ErrCodeExpired = errors.New("verification code has expired")
)

// Store is the credential persistence the issuer writes to.
type Store interface {
	CreateCredential(ctx context.Context, cred *model.Credential) error
	GetLatestUserCredential(ctx context.Context, userID string, tokenType model.TokenType) (*model.Credential, error)
}

// Mailer delivers outbound mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RequestMeta is the provenance recorded on issued verification codes.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
}

// MetaFromRequest extracts provenance from an inbound HTTP request.
func MetaFromRequest(r *http.Request) RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return RequestMeta{
		ClientIP:  ip,
		UserAgent: r.UserAgent(),
	}
}

// Config carries the issuance policy knobs.
type Config struct {
	// Secret signs bearer tokens. Must be non-empty; config validation
	// rejects an unset secret at startup.
	Secret []byte

	// OTPLength is the number of digits in a verification code.
	OTPLength int

	// OTPExpiryOffset is subtracted from the issuance time to compute a
	// code's expiry. The legacy default of one minute means codes are
	// already expired when issued; see the config package.
	OTPExpiryOffset time.Duration

	// BearerTTL is added to the issuance time to compute a bearer
	// credential's expiry.
	BearerTTL time.Duration
}

// Issuer generates credentials and writes them to the store.
type Issuer struct {
	store   Store
	mailer  Mailer
	metrics metrics.Recorder
	cfg     Config

	now func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(store Store, mailer Mailer, cfg Config, recorder metrics.Recorder) *Issuer {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Issuer{
		store:   store,
		mailer:  mailer,
		metrics: recorder,
		cfg:     cfg,
		now:     time.Now,
	}
}

// IssueEmailOTP generates a verification code for the user, emails it, and
// persists the credential with provenance from the request. The send
// happens first and a send failure aborts the issuance; once the transport
// accepted the message the credential is persisted unconditionally.
func (i *Issuer) IssueEmailOTP(ctx context.Context, meta RequestMeta, user *model.User) (*model.Credential, error) {
	now := i.now()
	code := GenerateOTP(i.cfg.OTPLength)

	body := fmt.Sprintf("Your verification code is %s", code)
	if err := i.mailer.Send(ctx, user.Email, "Verification Code", body); err != nil {
		i.metrics.IncEmailSent(metrics.StatusFailed)
		return nil, fmt.Errorf("send verification email: %w", err)
	}
	i.metrics.IncEmailSent(metrics.StatusSuccess)

	cred := &model.Credential{
		ID:              ulid.Make().String(),
		User:            model.SnapshotUser(user),
		Token:           code,
		TokenType:       model.TokenTypeEmailVerification,
		ExpireAt:        now.Add(-i.cfg.OTPExpiryOffset),
		LastAccess:      now,
		ClientIPAddress: meta.ClientIP,
		UserAgent:       meta.UserAgent,
		CreatedAt:       now,
	}

	if err := i.store.CreateCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("persist verification code: %w", err)
	}

	i.metrics.IncCredentialIssued(string(model.TokenTypeEmailVerification))
	return cred, nil
}

// IssueBearerToken signs a bearer token for the user and records the
// matching credential. The token payload has no expiry claim; the stored
// expire_at is the only expiry there is, so validation must always consult
// the store.
func (i *Issuer) IssueBearerToken(ctx context.Context, user *model.User) (*model.IssuedToken, error) {
	now := i.now()

	token, err := auth.SignBearerToken(user, i.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %w", err)
	}

	expireDate := now.Add(i.cfg.BearerTTL)

	cred := &model.Credential{
		ID:         ulid.Make().String(),
		User:       model.SnapshotUser(user),
		Token:      token,
		TokenType:  model.TokenTypeBearer,
		ExpireAt:   expireDate,
		LastAccess: now,
		CreatedAt:  now,
	}

	if err := i.store.CreateCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("persist bearer credential: %w", err)
	}

	i.metrics.IncCredentialIssued(string(model.TokenTypeBearer))
	return &model.IssuedToken{Token: token, ExpireDate: expireDate}, nil
}

// VerifyEmailOTP checks a submitted code against the user's most recently
// issued verification credential. The newest code is the one that counts;
// older codes are implicitly superseded.
func (i *Issuer) VerifyEmailOTP(ctx context.Context, userID, code string) error {
	cred, err := i.store.GetLatestUserCredential(ctx, userID, model.TokenTypeEmailVerification)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrCodeInvalid
		}
		return fmt.Errorf("load verification code: %w", err)
	}

	if cred.Token != code {
		return ErrCodeInvalid
	}
	if cred.IsExpired(i.now()) {
		return ErrCodeExpired
	}

	return nil
}
