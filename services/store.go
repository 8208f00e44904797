package services

import (
	"context"
	"issuehub/models"
)

// Store is the persistence contract the managers run against.
//
// Lookups of a single row fail with an error wrapping apperr.ErrNotFound when
// the row is absent; inserts that violate a uniqueness rule (user email,
// project key, one membership per project and user) fail with an error
// wrapping apperr.ErrConflict. Bulk deletes never cascade on their own: the
// managers remove dependent rows explicitly.
type Store interface {
	// Transaction runs fn against a Store bound to a single transaction.
	// Every write made through tx commits if fn returns nil and is discarded
	// otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error)

	CreateProject(ctx context.Context, project *models.Project) error
	ProjectByID(ctx context.Context, id uint) (*models.Project, error)
	ProjectByKey(ctx context.Context, key string) (*models.Project, error)
	ProjectsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Project, error)
	DeleteProject(ctx context.Context, id uint) error

	CreateMembership(ctx context.Context, member *models.ProjectMember) error
	Membership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error)
	// MembershipsForUser returns the user's memberships in insertion order.
	MembershipsForUser(ctx context.Context, userID uint) ([]models.ProjectMember, error)
	MembershipsForProject(ctx context.Context, projectID uint) ([]models.ProjectMember, error)
	DeleteMembershipsByProject(ctx context.Context, projectID uint) error

	CreateIssue(ctx context.Context, issue *models.Issue) error
	IssueByID(ctx context.Context, id uint) (*models.Issue, error)
	SaveIssue(ctx context.Context, issue *models.Issue) error
	// ListIssues returns one page of the project's issues matching filter and
	// the number of matching issues before pagination.
	ListIssues(ctx context.Context, projectID uint, filter models.IssueFilter) ([]models.Issue, int64, error)
	IssueIDsForProject(ctx context.Context, projectID uint) ([]uint, error)
	DeleteIssue(ctx context.Context, id uint) error
	DeleteIssuesByProject(ctx context.Context, projectID uint) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns the issue's comments in creation order.
	ListComments(ctx context.Context, issueID uint) ([]models.Comment, error)
	DeleteCommentsByIssues(ctx context.Context, issueIDs []uint) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// TokenService issues bearer tokens for a subject email and resolves them back.
type TokenService interface {
	Issue(subject string) (string, error)
	Verify(token string) (string, error)
}
