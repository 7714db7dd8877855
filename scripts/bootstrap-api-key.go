package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/model"
	"github.com/picvault/picvault/internal/repository"
	"github.com/picvault/picvault/internal/service"
)

type output struct {
	APIKey   string `json:"api_key"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Generates a capability key for API_KEY and, when -email is given, seeds an
// initial account in the database.
func main() {
	var (
		env         = flag.String("env", auth.EnvLive, "Key environment: live or test")
		format      = flag.String("format", "plain", "Output format: plain, json or env")
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (account seeding only)")
		email       = flag.String("email", "", "Email of an account to seed")
		username    = flag.String("username", "admin", "Username of the seeded account")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password of the seeded account")
	)
	flag.Parse()

	if *env != auth.EnvLive && *env != auth.EnvTest {
		fmt.Fprintln(os.Stderr, "invalid env; use live or test")
		os.Exit(1)
	}

	key, err := auth.GenerateCapabilityKey(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate api key:", err)
		os.Exit(1)
	}
	if !auth.ValidateKeyFormat(key) {
		fmt.Fprintln(os.Stderr, "generated api key has an unexpected format")
		os.Exit(1)
	}
	out := output{APIKey: key}

	if *email != "" {
		user, err := seedAccount(*databaseURL, *email, *username, *password)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		out.UserID, out.Email, out.Username = user.ID, user.Email, user.Username
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.APIKey)
	case "env":
		fmt.Printf("API_KEY=%s\n", out.APIKey)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain, json or env")
		os.Exit(1)
	}
}

// seedAccount creates the account unless one with the same email exists.
func seedAccount(databaseURL, email, username, password string) (*model.User, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required to seed an account")
	}
	email = model.NormalizeEmail(email)
	if err := service.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := service.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < service.MinPasswordLength {
		return nil, service.ErrPasswordTooShort
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           model.NewID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return user, nil
}
