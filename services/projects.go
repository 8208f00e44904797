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

type CreateProjectInput struct {
	Name        string
	Key         string
	Description string
	StartDate   *time.Time
}

// Projects creates, lists and deletes projects and manages their members.
type Projects struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

func NewProjects(store Store, opts Options) *Projects {
	return &Projects{store: store, window: opts.StartDateWindow, now: opts.Now}
}

// Create stores the project and makes the creator its only maintainer in one transaction.
func (p *Projects) Create(ctx context.Context, creatorID uint, in CreateProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Key = strings.TrimSpace(in.Key)
	if err := p.validate(in); err != nil {
		return nil, err
	}

	if _, err := p.store.ProjectByKey(ctx, in.Key); err == nil {
		return nil, apperr.Conflict("Project key already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("checking project key: %w", err)
	}

	project := &models.Project{
		Name:        in.Name,
		Key:         in.Key,
		Description: in.Description,
		StartDate:   in.StartDate,
	}
	err := p.store.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateProject(ctx, project); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      models.RoleMaintainer,
		})
	})
	if errors.Is(err, apperr.ErrConflict) {
		return nil, apperr.Conflict("Project key already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return project, nil
}

func (p *Projects) validate(in CreateProjectInput) error {
	var details []apperr.FieldError
	if in.Name == "" {
		details = append(details, apperr.FieldError{Field: "name", Message: "name is required"})
	}
	if in.Key == "" {
		details = append(details, apperr.FieldError{Field: "key", Message: "key is required"})
	}
	if in.StartDate != nil {
		today := truncateDay(p.now())
		limit := today.Add(p.window)
		if truncateDay(*in.StartDate).After(limit) {
			days := int(p.window.Hours() / 24)
			details = append(details, apperr.FieldError{
				Field:   "start_date",
				Message: fmt.Sprintf("Not allowed to select beyond %d days from start date", days),
			})
		}
	}
	if len(details) > 0 {
		return apperr.Validation(details...)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ListForUser returns every project the user belongs to, in membership order,
// annotated with the user's role.
func (p *Projects) ListForUser(ctx context.Context, userID uint) ([]models.ProjectSummary, error) {
	memberships, err := p.store.MembershipsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ProjectID)
	}
	projects, err := p.store.ProjectsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}

	out := make([]models.ProjectSummary, 0, len(memberships))
	for _, m := range memberships {
		project, ok := projects[m.ProjectID]
		if !ok {
			continue
		}
		out = append(out, models.ProjectSummary{Project: *project, MyRole: m.Role})
	}
	return out, nil
}

func (p *Projects) ListMembers(ctx context.Context, projectID, callerID uint) ([]models.MemberView, error) {
	if _, err := NewAuthority(p.store).RequireMember(ctx, projectID, callerID); err != nil {
		return nil, err
	}
	members, err := p.store.MembershipsForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := p.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading members: %w", err)
	}

	out := make([]models.MemberView, 0, len(members))
	for _, m := range members {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		out = append(out, models.MemberView{UserID: u.ID, Name: u.Name, Email: u.Email, Role: m.Role})
	}
	return out, nil
}

// AddMember lets a maintainer grant the user registered under email the given role.
func (p *Projects) AddMember(ctx context.Context, projectID, callerID uint, email string, role models.Role) (*models.MemberView, error) {
	if !role.Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "role", Message: "role must be one of maintainer, member"})
	}

	var view *models.MemberView
	err := p.store.Transaction(ctx, func(tx Store) error {
		if _, err := NewAuthority(tx).RequireMaintainer(ctx, projectID, callerID, "Only maintainer can invite members"); err != nil {
			return err
		}

		user, err := tx.UserByEmail(ctx, normalizeEmail(email))
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("User with this email not found")
		}
		if err != nil {
			return fmt.Errorf("loading user: %w", err)
		}

		if _, err := tx.Membership(ctx, projectID, user.ID); err == nil {
			return apperr.Conflict("User already a member")
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("checking membership: %w", err)
		}

		member := &models.ProjectMember{ProjectID: projectID, UserID: user.ID, Role: role}
		if err := tx.CreateMembership(ctx, member); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return apperr.Conflict("User already a member")
			}
			return fmt.Errorf("creating membership: %w", err)
		}
		view = &models.MemberView{UserID: user.ID, Name: user.Name, Email: user.Email, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Delete removes the project together with its issues' comments, its issues
// and its memberships, all in one transaction.
func (p *Projects) Delete(ctx context.Context, projectID, callerID uint) error {
	return p.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.ProjectByID(ctx, projectID); errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("Project not found")
		} else if err != nil {
			return fmt.Errorf("loading project: %w", err)
		}

		if _, err := NewAuthority(tx).RequireMaintainer(ctx, projectID, callerID, "Only maintainer can delete project"); err != nil {
			return err
		}

		issueIDs, err := tx.IssueIDsForProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("listing issues: %w", err)
		}
		if err := tx.DeleteCommentsByIssues(ctx, issueIDs); err != nil {
			return fmt.Errorf("deleting comments: %w", err)
		}
		if err := tx.DeleteIssuesByProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting issues: %w", err)
		}
		if err := tx.DeleteMembershipsByProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting memberships: %w", err)
		}
		if err := tx.DeleteProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		return nil
	})
}
