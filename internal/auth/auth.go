// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth implements email/password sign-up and sign-in. Sign-up
// provisions the identity and its member profile together, so every
// identity has a profile before its first role check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"estrategas/internal/models"
	"estrategas/internal/store"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

var (
	ErrAlreadyRegistered  = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
)

// InputError lists invalid sign-up or sign-in fields with user-facing
// messages.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "auth: invalid " + strings.Join(keys, ", ")
}

// IdentityStore is the persistence the service needs.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	CreateWithProfile(ctx context.Context, email, password, displayName string) (*models.Identity, *models.Profile, error)
	CheckPassword(u *models.Identity, password string) bool
}

// SignUpInput is the sign-up form.
type SignUpInput struct {
	Email       string `validate:"required,email,max=254"`
	Password    string `validate:"required,min=6,max=72"`
	DisplayName string `validate:"max=100"`
}

// Service authenticates identities.
type Service struct {
	identities IdentityStore
	validate   *validator.Validate
}

// NewService creates a Service over the given identity store.
func NewService(identities IdentityStore) *Service {
	return &Service{identities: identities, validate: validator.New()}
}

// SignUp creates a new identity with a member profile. An email that is
// already registered yields ErrAlreadyRegistered.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.Identity, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if err := s.validate.Struct(in); err != nil {
		return nil, inputError(err)
	}

	u, _, err := s.identities.CreateWithProfile(ctx, in.Email, in.Password, in.DisplayName)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrAlreadyRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return u, nil
}

// SignInWithPassword checks the credentials and returns the identity.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.identities.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if u == nil || !s.identities.CheckPassword(u, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// SignUpOrSignIn signs up, and if the email is already registered signs
// in with the same credentials instead. created reports which path ran.
func (s *Service) SignUpOrSignIn(ctx context.Context, in SignUpInput) (u *models.Identity, created bool, err error) {
	u, err = s.SignUp(ctx, in)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, ErrAlreadyRegistered) {
		return nil, false, err
	}
	u, err = s.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, false, err
	}
	return u, false, nil
}

func inputError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate sign up: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Email":
			fields["email"] = "Introduce un email válido"
		case "Password":
			if fe.Tag() == "max" {
				fields["password"] = "La contraseña es demasiado larga"
			} else {
				fields["password"] = fmt.Sprintf("La contraseña debe tener al menos %d caracteres", MinPasswordLen)
			}
		case "DisplayName":
			fields["display_name"] = "El nombre es demasiado largo"
		}
	}
	return &InputError{Fields: fields}
}
