package memstore

import (
	"context"
	"errors"
	"issuehub/apperr"
	"issuehub/models"
	"issuehub/services"
	"testing"
	"time"
)

func TestTransactionRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx services.Store) error {
		if err := tx.CreateUser(ctx, &models.User{Name: "a", Email: "a@test.com"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}
	if users, _, _, _, _ := s.Counts(); users != 0 {
		t.Errorf("users = %d after rollback, want 0", users)
	}
}

func TestTransactionCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx services.Store) error {
		return tx.Transaction(ctx, func(inner services.Store) error {
			return inner.CreateUser(ctx, &models.User{Name: "a", Email: "a@test.com"})
		})
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if _, err := s.UserByEmail(ctx, "a@test.com"); err != nil {
		t.Errorf("UserByEmail() error = %v", err)
	}
}

func TestUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateUser(ctx, &models.User{Email: "a@test.com"}); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := s.CreateUser(ctx, &models.User{Email: "a@test.com"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate email error = %v, want conflict", err)
	}

	if err := s.CreateProject(ctx, &models.Project{Key: "K"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := s.CreateProject(ctx, &models.Project{Key: "K"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate key error = %v, want conflict", err)
	}

	m := &models.ProjectMember{ProjectID: 1, UserID: 1, Role: models.RoleMember}
	if err := s.CreateMembership(ctx, m); err != nil {
		t.Fatalf("CreateMembership() error = %v", err)
	}
	if err := s.CreateMembership(ctx, &models.ProjectMember{ProjectID: 1, UserID: 1}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate membership error = %v, want conflict", err)
	}
}

func TestReturnedRowsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	issue := &models.Issue{ProjectID: 1, Title: "x"}
	if err := s.CreateIssue(ctx, issue); err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	got, err := s.IssueByID(ctx, issue.ID)
	if err != nil {
		t.Fatalf("IssueByID() error = %v", err)
	}
	got.Title = "changed"

	again, _ := s.IssueByID(ctx, issue.ID)
	if again.Title != "x" {
		t.Errorf("title = %q, store should not share rows with callers", again.Title)
	}
}

func TestListIssuesCreatedAtTieBreak(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, title := range []string{"a", "b", "c"} {
		if err := s.CreateIssue(ctx, &models.Issue{ProjectID: 1, Title: title, CreatedAt: at}); err != nil {
			t.Fatalf("CreateIssue() error = %v", err)
		}
	}

	got, total, err := s.ListIssues(ctx, 1, models.IssueFilter{Sort: models.SortCreatedAt, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if total != 3 || len(got) != 2 {
		t.Fatalf("total=%d len=%d, want 3 and 2", total, len(got))
	}
	if got[0].Title != "c" || got[1].Title != "b" {
		t.Errorf("order = %q,%q, want c,b", got[0].Title, got[1].Title)
	}
}

func TestFailOn(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	s.FailOn("CreateComment", boom)

	if err := s.CreateComment(ctx, &models.Comment{IssueID: 1, Body: "x"}); !errors.Is(err, boom) {
		t.Errorf("CreateComment() error = %v, want boom", err)
	}
}
