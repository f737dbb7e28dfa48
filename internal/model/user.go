// Package model defines domain entities for the application.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// User represents an account holder together with their submitted
// applications. Applications are owned by the user: they are stored inline
// on the user record and disappear with it.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	IsActivated  bool          `json:"is_activated"`
	Role         string        `json:"role"`
	Applications []Application `json:"applications"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Known user roles. Role is carried for downstream consumers; this service
// does not branch on it.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Application is a single submission embedded in a User. Besides the
// identifier the payload is free-form: whatever the submission flow stored
// is passed through untouched.
//
// Identifiers are unique within the owning user's list only. They are
// normalized to strings on decode so that lookups tolerate sources that
// stored them as numbers.
type Application struct {
	ID     string
	Fields map[string]any
}

// MarshalJSON flattens the application back into a single object with the
// identifier under "id" alongside the payload fields.
func (a Application) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Fields)+1)
	for k, v := range a.Fields {
		out[k] = v
	}
	out["id"] = a.ID
	return json.Marshal(out)
}

// UnmarshalJSON pulls the identifier out of the object and keeps the rest
// as the payload. A numeric or otherwise non-string id is rendered to its
// string form.
func (a *Application) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if id, ok := raw["id"]; ok {
		a.ID = normalizeID(id)
		delete(raw, "id")
	}
	a.Fields = raw
	return nil
}

// normalizeID renders an application identifier to its canonical string
// form. JSON numbers decode as float64, so integral values are printed
// without a fractional part.
func normalizeID(id any) string {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(id)
}
