package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kindergarten/internal/models"
	"kindergarten/internal/validation"
)

// ErrMissingCredentials is returned by Login when e-mail or password is empty
var ErrMissingCredentials = errors.New("email and password are required")

// Mailer sends the welcome e-mail after registration
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail string) error
}

// AuthService handles registration and login against the API
type AuthService struct {
	api    KindergartenAPI
	mailer Mailer
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(api KindergartenAPI, mailer Mailer) *AuthService {
	return &AuthService{api: api, mailer: mailer}
}

// Register validates the form and creates the account. The welcome e-mail is
// best-effort: a failure is logged and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, reg models.Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validation.ValidateRegistration(reg); err != nil {
		return err
	}

	if err := s.api.Register(ctx, reg); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcomeEmail(ctx, reg.Email); err != nil {
			slog.Warn("failed to send welcome email", "email", reg.Email, "error", err)
		}
	}
	return nil
}

// Login exchanges credentials for a bearer token
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}

	token, err := s.api.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	return token, nil
}
