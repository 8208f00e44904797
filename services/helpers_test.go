package services_test

import (
	"context"
	"errors"
	"issuehub/auth"
	"issuehub/memstore"
	"issuehub/models"
	"issuehub/services"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	store *memstore.Store
	svc   *services.Services
}

// newEnv wires the managers to a fresh in-memory store and a fixed clock.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	svc := services.New(store, auth.NewHasher(bcrypt.MinCost), auth.NewTokenIssuer("test-secret", time.Hour), services.Options{
		Now: func() time.Time { return fixedNow },
	})
	return &env{ctx: context.Background(), store: store, svc: svc}
}

func (e *env) signup(t *testing.T, name, email string) *models.User {
	t.Helper()
	u, err := e.svc.Accounts.Signup(e.ctx, name, email, "password123")
	if err != nil {
		t.Fatalf("Signup(%s) error = %v", email, err)
	}
	return u
}

func (e *env) project(t *testing.T, creator *models.User, key string) *models.Project {
	t.Helper()
	p, err := e.svc.Projects.Create(e.ctx, creator.ID, services.CreateProjectInput{Name: "Project " + key, Key: key})
	if err != nil {
		t.Fatalf("Create(%s) error = %v", key, err)
	}
	return p
}

func (e *env) addMember(t *testing.T, p *models.Project, by, who *models.User, role models.Role) {
	t.Helper()
	if _, err := e.svc.Projects.AddMember(e.ctx, p.ID, by.ID, who.Email, role); err != nil {
		t.Fatalf("AddMember(%s) error = %v", who.Email, err)
	}
}

func (e *env) issue(t *testing.T, p *models.Project, by *models.User, title string) *models.Issue {
	t.Helper()
	i, err := e.svc.Issues.Create(e.ctx, p.ID, by.ID, services.CreateIssueInput{Title: title})
	if err != nil {
		t.Fatalf("Create issue %q error = %v", title, err)
	}
	return i
}

func wantKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want %v", err, kind)
	}
}
