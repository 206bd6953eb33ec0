package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"
)

var (
	// ErrUnauthenticated indicates no credentials were presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidSession indicates the presented token was rejected.
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Principal identifies the authenticated end user of a session token.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// SessionValidator checks an opaque access token and resolves the principal
// behind it.
type SessionValidator interface {
	Validate(ctx context.Context, accessToken string) (Principal, error)
}

// Config selects and configures a session validator.
type Config struct {
	// Provider is "gotrue" (remote check against the auth server) or
	// "jwt" (local HS256 verification).
	Provider   string
	ProjectURL string
	AnonKey    string
	JWTSecret  string
}

// NewSessionValidator builds the validator named by cfg.Provider.
func NewSessionValidator(cfg Config) (SessionValidator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gotrue":
		return NewGoTrueValidator(cfg.ProjectURL, cfg.AnonKey)
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("auth provider jwt requires a secret")
		}
		return NewJWTValidator([]byte(cfg.JWTSecret)), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %s", cfg.Provider)
	}
}

// GoTrueValidator validates sessions against a GoTrue auth server (the
// auth component behind Supabase projects).
type GoTrueValidator struct {
	client gotrue.Client
}

// NewGoTrueValidator creates a validator for the given project URL.
func NewGoTrueValidator(projectURL, anonKey string) (*GoTrueValidator, error) {
	if strings.TrimSpace(projectURL) == "" {
		return nil, errors.New("auth project URL is required")
	}
	client := gotrue.New("project", anonKey).
		WithCustomGoTrueURL(strings.TrimRight(projectURL, "/") + "/auth/v1")
	return &GoTrueValidator{client: client}, nil
}

// Validate resolves the user behind the access token via the auth server.
func (v *GoTrueValidator) Validate(ctx context.Context, accessToken string) (Principal, error) {
	if strings.TrimSpace(accessToken) == "" {
		return Principal{}, ErrUnauthenticated
	}
	user, err := v.client.WithToken(accessToken).GetUser()
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return Principal{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  user.Role,
	}, nil
}
