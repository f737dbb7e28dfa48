package model

import "time"

// TokenType discriminates the two credential variants sharing one store.
type TokenType string

// Credential token types.
const (
	TokenTypeEmailVerification TokenType = "EMAIL_VERIFICATION_CODE"
	TokenTypeBearer            TokenType = "BEARER"
)

// UserSnapshot is the denormalized copy of user fields taken when a
// credential is issued. It references the user by identifier only; a later
// update to the user does not change snapshots on credentials that were
// already issued.
type UserSnapshot struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	IsActivated bool   `json:"is_activated"`
}

// SnapshotUser captures the issuance-time snapshot of a user.
func SnapshotUser(u *User) UserSnapshot {
	return UserSnapshot{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		IsActivated: u.IsActivated,
	}
}

// Credential is an issued OTP or bearer-token record. Records are written
// once at issuance and never mutated afterwards except for LastAccess,
// which the auth layer touches on use. Expired records stay in the store;
// expiry is enforced by comparison, cleanup is somebody else's job.
type Credential struct {
	ID    string       `json:"id"`
	User  UserSnapshot `json:"user"`
	Token string       `json:"token"`

	TokenType TokenType `json:"token_type"`

	ExpireAt   time.Time `json:"expire_at"`
	LastAccess time.Time `json:"last_access"`

	// Provenance metadata, populated for verification codes only.
	ClientIPAddress string `json:"client_ip_address,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the credential is past its expiry at the given
// instant. A credential expiring exactly at now is still valid.
func (c *Credential) IsExpired(now time.Time) bool {
	return now.After(c.ExpireAt)
}

// IssuedToken is what a successful bearer-token issuance hands back to the
// client: the raw signed token plus the expiry tracked in the store. The
// token itself carries no expiry claim, so the stored ExpireDate is the
// only source of truth.
type IssuedToken struct {
	Token      string    `json:"token"`
	ExpireDate time.Time `json:"expireDate"`
}

// AuthContext is the authenticated identity attached to a request after
// the bearer middleware has validated a token against the store. Fields
// come from the credential's user snapshot.
type AuthContext struct {
	CredentialID string
	UserID       string
	Email        string
	Name         string
	Role         string
	IsActivated  bool
}
