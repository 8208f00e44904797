// Package services holds the issue tracker's core: the membership authority
// and the account, project, issue and comment managers. Each operation takes
// the caller's resolved user id explicitly.
package services

import (
	"context"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"strings"
	"time"
)

// Options tunes manager behaviour.
type Options struct {
	// StartDateWindow bounds how far past today a project's start date may lie.
	StartDateWindow time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Services bundles the managers sharing one store.
type Services struct {
	Authority *Authority
	Accounts  *Accounts
	Projects  *Projects
	Issues    *Issues
	Comments  *Comments

	store  Store
	hasher PasswordHasher
	tokens TokenService
	opts   Options
}

func New(store Store, hasher PasswordHasher, tokens TokenService, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartDateWindow <= 0 {
		opts.StartDateWindow = 30 * 24 * time.Hour
	}
	return &Services{
		Authority: NewAuthority(store),
		Accounts:  NewAccounts(store, hasher, tokens),
		Projects:  NewProjects(store, opts),
		Issues:    NewIssues(store, opts),
		Comments:  NewComments(store),
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		opts:      opts,
	}
}

// Transaction runs fn with managers bound to one store transaction. Any error
// from fn rolls back everything fn wrote.
func (s *Services) Transaction(ctx context.Context, fn func(tx *Services) error) error {
	return s.store.Transaction(ctx, func(tx Store) error {
		return fn(New(tx, s.hasher, s.tokens, s.opts))
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// loadIssue fetches an issue, mapping absence to a NotFound the caller can surface.
func loadIssue(ctx context.Context, store Store, id uint) (*models.Issue, error) {
	issue, err := store.IssueByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Issue not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading issue %d: %w", id, err)
	}
	return issue, nil
}

// nameOf returns the user's display name, or nil when the user is unknown.
func nameOf(users map[uint]*models.User, id *uint) *string {
	if id == nil {
		return nil
	}
	u, ok := users[*id]
	if !ok {
		return nil
	}
	name := u.DisplayName()
	return &name
}
