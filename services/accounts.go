package services

import (
	"context"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"strings"
)

// Profile is the authenticated user's identity plus their roles across projects.
type Profile struct {
	ID           uint          `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	ProjectRoles []models.Role `json:"project_roles"`
}

// Accounts handles signup, login and bearer-token resolution.
type Accounts struct {
	store  Store
	hasher PasswordHasher
	tokens TokenService
}

func NewAccounts(store Store, hasher PasswordHasher, tokens TokenService) *Accounts {
	return &Accounts{store: store, hasher: hasher, tokens: tokens}
}

func (a *Accounts) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	_, err := a.store.UserByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("Email already registered")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns a bearer token. Unknown emails and
// wrong passwords fail identically.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.store.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Unauthorized("Invalid credentials")
	}

	token, err := a.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*models.User, error) {
	email, err := a.tokens.Verify(token)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}
	user, err := a.store.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}

func (a *Accounts) Me(ctx context.Context, user *models.User) (*Profile, error) {
	memberships, err := a.store.MembershipsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	roles := make([]models.Role, 0, len(memberships))
	for _, m := range memberships {
		roles = append(roles, m.Role)
	}
	return &Profile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		ProjectRoles: roles,
	}, nil
}
