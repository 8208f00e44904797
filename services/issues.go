package services

import (
	"context"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLength  = 200
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateIssueInput struct {
	Title       string
	Description string
	// Priority defaults to medium when empty.
	Priority   models.IssuePriority
	AssigneeID *uint
}

// IssuePage is one page of a filtered issue listing.
type IssuePage struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Data     []models.IssueView `json:"data"`
}

// Issues runs the issue lifecycle and its field-level permission rules.
type Issues struct {
	store Store
	now   func() time.Time
}

func NewIssues(store Store, opts Options) *Issues {
	return &Issues{store: store, now: opts.Now}
}

// Create files a new open issue reported by the caller.
func (m *Issues) Create(ctx context.Context, projectID, callerID uint, in CreateIssueInput) (*models.Issue, error) {
	if _, err := NewAuthority(m.store).RequireMember(ctx, projectID, callerID); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	var details []apperr.FieldError
	details = appendTitleErrors(details, in.Title)
	if !in.Priority.Valid() {
		details = append(details, apperr.FieldError{Field: "priority", Message: "priority must be one of low, medium, high, critical"})
	}
	if len(details) > 0 {
		return nil, apperr.Validation(details...)
	}
	if in.AssigneeID != nil {
		if err := requireUser(ctx, m.store, *in.AssigneeID); err != nil {
			return nil, err
		}
	}

	now := m.now()
	issue := &models.Issue{
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusOpen,
		Priority:    in.Priority,
		ReporterID:  callerID,
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.CreateIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("creating issue: %w", err)
	}
	return issue, nil
}

// List returns a filtered, sorted page of the project's issues.
func (m *Issues) List(ctx context.Context, projectID, callerID uint, filter models.IssueFilter) (*IssuePage, error) {
	if _, err := NewAuthority(m.store).RequireMember(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	issues, total, err := m.store.ListIssues(ctx, projectID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	views, err := m.enrich(ctx, issues)
	if err != nil {
		return nil, err
	}
	return &IssuePage{Total: total, Page: filter.Page, PageSize: filter.PageSize, Data: views}, nil
}

func validateFilter(f models.IssueFilter) error {
	var details []apperr.FieldError
	if f.Page < 1 {
		details = append(details, apperr.FieldError{Field: "page", Message: "page must be at least 1"})
	}
	if f.PageSize < 1 || f.PageSize > MaxPageSize {
		details = append(details, apperr.FieldError{Field: "page_size", Message: fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize)})
	}
	if f.Status != nil && !f.Status.Valid() {
		details = append(details, apperr.FieldError{Field: "status", Message: "unknown status"})
	}
	if f.Priority != nil && !f.Priority.Valid() {
		details = append(details, apperr.FieldError{Field: "priority", Message: "unknown priority"})
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

// Detail returns one issue with its names resolved. A missing issue is
// reported before membership is checked.
func (m *Issues) Detail(ctx context.Context, issueID, callerID uint) (*models.IssueView, error) {
	issue, err := loadIssue(ctx, m.store, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := NewAuthority(m.store).RequireMember(ctx, issue.ProjectID, callerID); err != nil {
		return nil, err
	}
	views, err := m.enrich(ctx, []models.Issue{*issue})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Update applies patch. Maintainers and the reporter may edit title,
// description and priority; only maintainers may change status or assignee.
// An empty patch is permission-checked but leaves updated_at alone.
func (m *Issues) Update(ctx context.Context, issueID, callerID uint, patch models.IssuePatch) (*models.Issue, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var updated *models.Issue
	err := m.store.Transaction(ctx, func(tx Store) error {
		issue, err := loadIssue(ctx, tx, issueID)
		if err != nil {
			return err
		}
		member, err := NewAuthority(tx).RequireMember(ctx, issue.ProjectID, callerID)
		if err != nil {
			return err
		}

		maintainer := member.IsMaintainer()
		if !maintainer && !issue.IsReportedBy(callerID) {
			return apperr.Forbidden("Not allowed to update this issue")
		}
		if patch.Status.HasValue() && !maintainer {
			return apperr.Forbidden("Only maintainer can change status")
		}
		if patch.AssigneeID.Set && !maintainer {
			return apperr.Forbidden("Only maintainer can assign issues")
		}

		updated = issue
		if patch.Empty() {
			return nil
		}

		if patch.Title.HasValue() {
			issue.Title = strings.TrimSpace(patch.Title.Value)
		}
		if patch.Description.HasValue() {
			issue.Description = patch.Description.Value
		}
		if patch.Priority.HasValue() {
			issue.Priority = patch.Priority.Value
		}
		if patch.Status.HasValue() {
			issue.Status = patch.Status.Value
		}
		if patch.AssigneeID.Set {
			if patch.AssigneeID.HasValue() {
				if err := requireUser(ctx, tx, patch.AssigneeID.Value); err != nil {
					return err
				}
			}
			issue.AssigneeID = patch.AssigneeID.Ptr()
		}
		issue.UpdatedAt = m.now()

		if err := tx.SaveIssue(ctx, issue); err != nil {
			return fmt.Errorf("saving issue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validatePatch(p models.IssuePatch) error {
	var details []apperr.FieldError
	if p.Title.HasValue() {
		details = appendTitleErrors(details, strings.TrimSpace(p.Title.Value))
	}
	if p.Status.HasValue() && !p.Status.Value.Valid() {
		details = append(details, apperr.FieldError{Field: "status", Message: "status must be one of open, in_progress, resolved, closed"})
	}
	if p.Priority.HasValue() && !p.Priority.Value.Valid() {
		details = append(details, apperr.FieldError{Field: "priority", Message: "priority must be one of low, medium, high, critical"})
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

func appendTitleErrors(details []apperr.FieldError, title string) []apperr.FieldError {
	switch {
	case title == "":
		return append(details, apperr.FieldError{Field: "title", Message: "title is required"})
	case utf8.RuneCountInString(title) > maxTitleLength:
		return append(details, apperr.FieldError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength)})
	}
	return details
}

// Delete removes the issue and its comments. Only maintainers and the reporter may delete.
func (m *Issues) Delete(ctx context.Context, issueID, callerID uint) error {
	return m.store.Transaction(ctx, func(tx Store) error {
		issue, err := loadIssue(ctx, tx, issueID)
		if err != nil {
			return err
		}
		member, err := NewAuthority(tx).RequireMember(ctx, issue.ProjectID, callerID)
		if err != nil {
			return err
		}
		if !member.IsMaintainer() && !issue.IsReportedBy(callerID) {
			return apperr.Forbidden("Not allowed to delete this issue")
		}

		if err := tx.DeleteCommentsByIssues(ctx, []uint{issue.ID}); err != nil {
			return fmt.Errorf("deleting comments: %w", err)
		}
		if err := tx.DeleteIssue(ctx, issue.ID); err != nil {
			return fmt.Errorf("deleting issue: %w", err)
		}
		return nil
	})
}

func (m *Issues) enrich(ctx context.Context, issues []models.Issue) ([]models.IssueView, error) {
	seen := make(map[uint]bool)
	var ids []uint
	for _, i := range issues {
		for _, id := range []*uint{&i.ReporterID, i.AssigneeID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	users, err := m.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving names: %w", err)
	}

	views := make([]models.IssueView, 0, len(issues))
	for _, i := range issues {
		reporter := i.ReporterID
		views = append(views, models.IssueView{
			Issue:        i,
			ReporterName: nameOf(users, &reporter),
			AssigneeName: nameOf(users, i.AssigneeID),
		})
	}
	return views, nil
}

func requireUser(ctx context.Context, store Store, id uint) error {
	_, err := store.UserByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Validation(apperr.FieldError{Field: "assignee_id", Message: fmt.Sprintf("user %d does not exist", id)})
	}
	if err != nil {
		return fmt.Errorf("loading assignee: %w", err)
	}
	return nil
}
