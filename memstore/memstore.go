// Package memstore is an in-memory services.Store. Transactions work on a copy
// of the tables that replaces the live tables only when the transaction
// succeeds, so failed multi-row operations leave no partial state behind.
package memstore

import (
	"context"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"issuehub/services"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

type tables struct {
	users    []models.User
	projects []models.Project
	members  []models.ProjectMember
	issues   []models.Issue
	comments []models.Comment
	seq      uint
}

func (t *tables) clone() *tables {
	return &tables{
		users:    slices.Clone(t.users),
		projects: slices.Clone(t.projects),
		members:  slices.Clone(t.members),
		issues:   slices.Clone(t.issues),
		comments: slices.Clone(t.comments),
		seq:      t.seq,
	}
}

func (t *tables) nextID() uint {
	t.seq++
	return t.seq
}

// Store implements services.Store in memory.
type Store struct {
	mu       *sync.Mutex
	data     **tables
	inTx     bool
	failures map[string]error
	now      func() time.Time
}

var _ services.Store = (*Store)(nil)

func New() *Store {
	data := &tables{}
	return &Store{
		mu:       &sync.Mutex{},
		data:     &data,
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// FailOn makes every later call of the named method return err. Tests use it
// to break a transaction halfway through.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *Store) lock(method string) (*tables, func(), error) {
	unlock := func() {}
	if !s.inTx {
		s.mu.Lock()
		unlock = s.mu.Unlock
	}
	if err, ok := s.failures[method]; ok {
		unlock()
		return nil, nil, err
	}
	return *s.data, unlock, nil
}

func (s *Store) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := (*s.data).clone()
	tx := &Store{mu: s.mu, data: &working, inTx: true, failures: s.failures, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	*s.data = working
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	t, unlock, err := s.lock("CreateUser")
	if err != nil {
		return err
	}
	defer unlock()

	for _, u := range t.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %q: %w", user.Email, apperr.ErrConflict)
		}
	}
	user.ID = t.nextID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	t.users = append(t.users, *user)
	return nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	t, unlock, err := s.lock("UserByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, u := range t.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	t, unlock, err := s.lock("UserByEmail")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, u := range t.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", email, apperr.ErrNotFound)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	t, unlock, err := s.lock("UsersByIDs")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make(map[uint]*models.User, len(ids))
	for _, u := range t.users {
		if slices.Contains(ids, u.ID) {
			out[u.ID] = &u
		}
	}
	return out, nil
}

func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	t, unlock, err := s.lock("CreateProject")
	if err != nil {
		return err
	}
	defer unlock()

	for _, p := range t.projects {
		if p.Key == project.Key {
			return fmt.Errorf("project key %q: %w", project.Key, apperr.ErrConflict)
		}
	}
	project.ID = t.nextID()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = s.now()
	}
	t.projects = append(t.projects, *project)
	return nil
}

func (s *Store) ProjectByID(ctx context.Context, id uint) (*models.Project, error) {
	t, unlock, err := s.lock("ProjectByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, p := range t.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("project %d: %w", id, apperr.ErrNotFound)
}

func (s *Store) ProjectByKey(ctx context.Context, key string) (*models.Project, error) {
	t, unlock, err := s.lock("ProjectByKey")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, p := range t.projects {
		if p.Key == key {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("project key %q: %w", key, apperr.ErrNotFound)
}

func (s *Store) ProjectsByIDs(ctx context.Context, ids []uint) (map[uint]*models.Project, error) {
	t, unlock, err := s.lock("ProjectsByIDs")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := make(map[uint]*models.Project, len(ids))
	for _, p := range t.projects {
		if slices.Contains(ids, p.ID) {
			out[p.ID] = &p
		}
	}
	return out, nil
}

func (s *Store) DeleteProject(ctx context.Context, id uint) error {
	t, unlock, err := s.lock("DeleteProject")
	if err != nil {
		return err
	}
	defer unlock()

	t.projects = slices.DeleteFunc(t.projects, func(p models.Project) bool { return p.ID == id })
	return nil
}

func (s *Store) CreateMembership(ctx context.Context, member *models.ProjectMember) error {
	t, unlock, err := s.lock("CreateMembership")
	if err != nil {
		return err
	}
	defer unlock()

	for _, m := range t.members {
		if m.ProjectID == member.ProjectID && m.UserID == member.UserID {
			return fmt.Errorf("membership %d/%d: %w", member.ProjectID, member.UserID, apperr.ErrConflict)
		}
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = s.now()
	}
	t.members = append(t.members, *member)
	return nil
}

func (s *Store) Membership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	t, unlock, err := s.lock("Membership")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, m := range t.members {
		if m.ProjectID == projectID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("membership %d/%d: %w", projectID, userID, apperr.ErrNotFound)
}

func (s *Store) MembershipsForUser(ctx context.Context, userID uint) ([]models.ProjectMember, error) {
	t, unlock, err := s.lock("MembershipsForUser")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []models.ProjectMember
	for _, m := range t.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MembershipsForProject(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	t, unlock, err := s.lock("MembershipsForProject")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []models.ProjectMember
	for _, m := range t.members {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) DeleteMembershipsByProject(ctx context.Context, projectID uint) error {
	t, unlock, err := s.lock("DeleteMembershipsByProject")
	if err != nil {
		return err
	}
	defer unlock()

	t.members = slices.DeleteFunc(t.members, func(m models.ProjectMember) bool { return m.ProjectID == projectID })
	return nil
}

func (s *Store) CreateIssue(ctx context.Context, issue *models.Issue) error {
	t, unlock, err := s.lock("CreateIssue")
	if err != nil {
		return err
	}
	defer unlock()

	issue.ID = t.nextID()
	now := s.now()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = now
	}
	t.issues = append(t.issues, *issue)
	return nil
}

func (s *Store) IssueByID(ctx context.Context, id uint) (*models.Issue, error) {
	t, unlock, err := s.lock("IssueByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, i := range t.issues {
		if i.ID == id {
			return &i, nil
		}
	}
	return nil, fmt.Errorf("issue %d: %w", id, apperr.ErrNotFound)
}

func (s *Store) SaveIssue(ctx context.Context, issue *models.Issue) error {
	t, unlock, err := s.lock("SaveIssue")
	if err != nil {
		return err
	}
	defer unlock()

	for idx := range t.issues {
		if t.issues[idx].ID == issue.ID {
			t.issues[idx] = *issue
			return nil
		}
	}
	return fmt.Errorf("issue %d: %w", issue.ID, apperr.ErrNotFound)
}

func (s *Store) ListIssues(ctx context.Context, projectID uint, filter models.IssueFilter) ([]models.Issue, int64, error) {
	t, unlock, err := s.lock("ListIssues")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	q := strings.ToLower(filter.Query)
	var matched []models.Issue
	for _, i := range t.issues {
		switch {
		case i.ProjectID != projectID:
		case filter.Status != nil && i.Status != *filter.Status:
		case filter.Priority != nil && i.Priority != *filter.Priority:
		case filter.AssigneeID != nil && (i.AssigneeID == nil || *i.AssigneeID != *filter.AssigneeID):
		case q != "" && !strings.Contains(strings.ToLower(i.Title), q):
		default:
			matched = append(matched, i)
		}
	}

	switch filter.Sort {
	case models.SortCreatedAt:
		sort.SliceStable(matched, func(a, b int) bool {
			if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
				return matched[a].CreatedAt.After(matched[b].CreatedAt)
			}
			return matched[a].ID > matched[b].ID
		})
	case models.SortPriority:
		sort.SliceStable(matched, func(a, b int) bool {
			return matched[a].Priority.Rank() < matched[b].Priority.Rank()
		})
	case models.SortStatus:
		sort.SliceStable(matched, func(a, b int) bool {
			return matched[a].Status.Rank() < matched[b].Status.Rank()
		})
	}

	total := int64(len(matched))
	start := min(filter.Offset(), len(matched))
	end := len(matched)
	if filter.PageSize > 0 {
		end = min(start+filter.PageSize, len(matched))
	}
	return slices.Clone(matched[start:end]), total, nil
}

func (s *Store) IssueIDsForProject(ctx context.Context, projectID uint) ([]uint, error) {
	t, unlock, err := s.lock("IssueIDsForProject")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var ids []uint
	for _, i := range t.issues {
		if i.ProjectID == projectID {
			ids = append(ids, i.ID)
		}
	}
	return ids, nil
}

func (s *Store) DeleteIssue(ctx context.Context, id uint) error {
	t, unlock, err := s.lock("DeleteIssue")
	if err != nil {
		return err
	}
	defer unlock()

	t.issues = slices.DeleteFunc(t.issues, func(i models.Issue) bool { return i.ID == id })
	return nil
}

func (s *Store) DeleteIssuesByProject(ctx context.Context, projectID uint) error {
	t, unlock, err := s.lock("DeleteIssuesByProject")
	if err != nil {
		return err
	}
	defer unlock()

	t.issues = slices.DeleteFunc(t.issues, func(i models.Issue) bool { return i.ProjectID == projectID })
	return nil
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	t, unlock, err := s.lock("CreateComment")
	if err != nil {
		return err
	}
	defer unlock()

	comment.ID = t.nextID()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	t.comments = append(t.comments, *comment)
	return nil
}

func (s *Store) ListComments(ctx context.Context, issueID uint) ([]models.Comment, error) {
	t, unlock, err := s.lock("ListComments")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []models.Comment
	for _, c := range t.comments {
		if c.IssueID == issueID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) DeleteCommentsByIssues(ctx context.Context, issueIDs []uint) error {
	t, unlock, err := s.lock("DeleteCommentsByIssues")
	if err != nil {
		return err
	}
	defer unlock()

	t.comments = slices.DeleteFunc(t.comments, func(c models.Comment) bool { return slices.Contains(issueIDs, c.IssueID) })
	return nil
}

// Counts reports the number of rows per table.
func (s *Store) Counts() (users, projects, members, issues, comments int) {
	t, unlock, _ := s.lock("")
	defer unlock()
	return len(t.users), len(t.projects), len(t.members), len(t.issues), len(t.comments)
}
