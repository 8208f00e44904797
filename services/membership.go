package services

import (
	"context"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
)

// Authority answers whether a user may act within a project. Every
// project-scoped operation passes through it before touching project data.
type Authority struct {
	store Store
}

func NewAuthority(store Store) *Authority {
	return &Authority{store: store}
}

// RoleOf returns the user's role in the project, or ok=false without a membership.
func (a *Authority) RoleOf(ctx context.Context, projectID, userID uint) (role models.Role, ok bool, err error) {
	m, err := a.store.Membership(ctx, projectID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving role: %w", err)
	}
	return m.Role, true, nil
}

func (a *Authority) RequireMember(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	m, err := a.store.Membership(ctx, projectID, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Forbidden("Not a member of this project")
	}
	if err != nil {
		return nil, fmt.Errorf("loading membership: %w", err)
	}
	return m, nil
}

// RequireMaintainer fails with a Forbidden error carrying denied when the
// user is a member without the maintainer role.
func (a *Authority) RequireMaintainer(ctx context.Context, projectID, userID uint, denied string) (*models.ProjectMember, error) {
	m, err := a.RequireMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !m.IsMaintainer() {
		return nil, apperr.Forbidden("%s", denied)
	}
	return m, nil
}
