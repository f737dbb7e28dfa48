// Command seed-user creates a user with a hashed password and optional
// sample applications. Intended for local development and smoke tests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/model"
	"github.com/apportal/apportal/internal/repository"
)

type output struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "dev@apportal.local", "User email")
		name        = flag.String("name", "Dev User", "User display name")
		password    = flag.String("password", "", "Plaintext password (required)")
		role        = flag.String("role", model.RoleUser, "User role")
		activated   = flag.Bool("activated", true, "Mark the user as activated")
		withApps    = flag.Bool("with-apps", false, "Seed two sample applications")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *password == "" {
		fmt.Fprintln(os.Stderr, "-password is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        *email,
		Name:         *name,
		PasswordHash: hash,
		IsActivated:  *activated,
		Role:         *role,
		CreatedAt:    time.Now(),
	}

	if *withApps {
		user.Applications = []model.Application{
			{ID: ulid.Make().String(), Fields: map[string]any{"title": "First application", "status": "submitted"}},
			{ID: ulid.Make().String(), Fields: map[string]any{"title": "Second application", "status": "draft"}},
		}
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		fmt.Fprintln(os.Stderr, "create user:", err)
		os.Exit(1)
	}

	out := output{UserID: user.ID, Email: user.Email, Role: user.Role}
	if *format == "json" {
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}

	fmt.Printf("created user %s (%s) role=%s\n", out.UserID, out.Email, out.Role)
}
