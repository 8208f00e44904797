package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{Unauthorized("no"), ErrUnauthorized},
		{Forbidden("Not a member of this project"), ErrForbidden},
		{NotFound("Issue not found"), ErrNotFound},
		{Conflict("Project key already exists"), ErrConflict},
		{Validation(FieldError{Field: "title", Message: "required"}), ErrInvalidInput},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.kind) {
			t.Errorf("%v should be %v", c.err, c.kind)
		}
	}
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	if !errors.Is(ErrInvalidToken, ErrUnauthorized) {
		t.Error("ErrInvalidToken should wrap ErrUnauthorized")
	}
}

func TestMessage(t *testing.T) {
	wrapped := fmt.Errorf("creating project: %w", Conflict("Project key already exists"))
	if got := Message(wrapped, "fallback"); got != "Project key already exists" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("boom"), "fallback"); got != "fallback" {
		t.Errorf("Message() = %q, want fallback", got)
	}
}
