package database

import (
	"context"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"issuehub/services"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements services.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

var _ services.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translate maps driver errors onto the apperr kinds the services expect.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, apperr.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error, "creating user")
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %d", id))
	}
	return &user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", email))
	}
	return &user, nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err, "loading users")
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	return translate(s.db.WithContext(ctx).Create(project).Error, "creating project")
}

func (s *Store) ProjectByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("project %d", id))
	}
	return &project, nil
}

func (s *Store) ProjectByKey(ctx context.Context, key string) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).Where(&models.Project{Key: key}).First(&project).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("project key %q", key))
	}
	return &project, nil
}

func (s *Store) ProjectsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Project, error) {
	out := make(map[uint]*models.Project, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, translate(err, "loading projects")
	}
	for i := range projects {
		out[projects[i].ID] = &projects[i]
	}
	return out, nil
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Project{}, id).Error, "deleting project")
}

func (s *Store) CreateMembership(ctx context.Context, member *models.ProjectMember) error {
	return translate(s.db.WithContext(ctx).Create(member).Error, "creating membership")
}

func (s *Store) Membership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("membership %d/%d", projectID, userID))
	}
	return &member, nil
}

func (s *Store) MembershipsForUser(ctx context.Context, userID uint) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("project_id ASC").
		Find(&members).Error
	return members, translate(err, "listing memberships")
}

func (s *Store) MembershipsForProject(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").Order("user_id ASC").
		Find(&members).Error
	return members, translate(err, "listing members")
}

func (s *Store) DeleteMembershipsByProject(ctx context.Context, projectID uint) error {
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error
	return translate(err, "deleting memberships")
}

func (s *Store) CreateIssue(ctx context.Context, issue *models.Issue) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(issue).Error, "creating issue")
}

func (s *Store) IssueByID(ctx context.Context, id uint) (*models.Issue, error) {
	var issue models.Issue
	if err := s.db.WithContext(ctx).First(&issue, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("issue %d", id))
	}
	return &issue, nil
}

// SaveIssue writes every mutable column as given, so a nil AssigneeID clears
// the assignee and UpdatedAt is stored without gorm's auto timestamp.
func (s *Store) SaveIssue(ctx context.Context, issue *models.Issue) error {
	res := s.db.WithContext(ctx).Model(issue).
		Select("title", "description", "status", "priority", "assignee_id", "updated_at").
		UpdateColumns(issue)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("saving issue %d", issue.ID))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("issue %d: %w", issue.ID, apperr.ErrNotFound)
	}
	return nil
}

// likeEscaper keeps user input from acting as LIKE wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func issueFilter(projectID uint, f models.IssueFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("project_id = ?", projectID)
		if f.Status != nil {
			db = db.Where("status = ?", *f.Status)
		}
		if f.Priority != nil {
			db = db.Where("priority = ?", *f.Priority)
		}
		if f.AssigneeID != nil {
			db = db.Where("assignee_id = ?", *f.AssigneeID)
		}
		if f.Query != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Query)) + "%"
			db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
		}
		return db
	}
}

// rankOrder sorts a column by the position of its value in order rather than
// alphabetically, breaking ties by id.
func rankOrder[T ~string](column string, order []T) clause.OrderBy {
	var sql strings.Builder
	vars := make([]interface{}, 0, len(order))
	sql.WriteString("CASE " + column)
	for i, v := range order {
		fmt.Fprintf(&sql, " WHEN ? THEN %d", i)
		vars = append(vars, string(v))
	}
	fmt.Fprintf(&sql, " ELSE %d END ASC, id ASC", len(order))
	return clause.OrderBy{Expression: clause.Expr{SQL: sql.String(), Vars: vars, WithoutParentheses: true}}
}

func (s *Store) ListIssues(ctx context.Context, projectID uint, filter models.IssueFilter) ([]models.Issue, int64, error) {
	scope := issueFilter(projectID, filter)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Issue{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "counting issues")
	}

	q := s.db.WithContext(ctx).Scopes(scope)
	switch filter.Sort {
	case models.SortCreatedAt:
		q = q.Order("created_at DESC").Order("id DESC")
	case models.SortPriority:
		q = q.Order(rankOrder("priority", models.Priorities))
	case models.SortStatus:
		q = q.Order(rankOrder("status", models.Statuses))
	default:
		q = q.Order("id ASC")
	}
	if filter.PageSize > 0 {
		q = q.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var issues []models.Issue
	if err := q.Find(&issues).Error; err != nil {
		return nil, 0, translate(err, "listing issues")
	}
	return issues, total, nil
}

func (s *Store) IssueIDsForProject(ctx context.Context, projectID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Issue{}).Where("project_id = ?", projectID).Pluck("id", &ids).Error
	return ids, translate(err, "listing issue ids")
}

func (s *Store) DeleteIssue(ctx context.Context, id uint) error {
	return translate(s.db.WithContext(ctx).Delete(&models.Issue{}, id).Error, "deleting issue")
}

func (s *Store) DeleteIssuesByProject(ctx context.Context, projectID uint) error {
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.Issue{}).Error
	return translate(err, "deleting issues")
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error, "creating comment")
}

func (s *Store) ListComments(ctx context.Context, issueID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, translate(err, "listing comments")
}

func (s *Store) DeleteCommentsByIssues(ctx context.Context, issueIDs []uint) error {
	if len(issueIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("issue_id IN ?", issueIDs).Delete(&models.Comment{}).Error
	return translate(err, "deleting comments")
}
