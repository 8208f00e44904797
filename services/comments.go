package services

import (
	"context"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"strings"
)

// Comments adds and lists comments on issues, gated by project membership.
type Comments struct {
	store Store
}

func NewComments(store Store) *Comments {
	return &Comments{store: store}
}

func (c *Comments) Add(ctx context.Context, issueID, callerID uint, body string) (*models.Comment, error) {
	issue, err := loadIssue(ctx, c.store, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := NewAuthority(c.store).RequireMember(ctx, issue.ProjectID, callerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "body", Message: "body is required"})
	}

	comment := &models.Comment{IssueID: issue.ID, AuthorID: callerID, Body: body}
	if err := c.store.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

// List returns the issue's comments in creation order.
func (c *Comments) List(ctx context.Context, issueID, callerID uint) ([]models.Comment, error) {
	issue, err := loadIssue(ctx, c.store, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := NewAuthority(c.store).RequireMember(ctx, issue.ProjectID, callerID); err != nil {
		return nil, err
	}
	comments, err := c.store.ListComments(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return comments, nil
}
