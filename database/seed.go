package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"issuehub/apperr"
	"issuehub/models"
	"issuehub/services"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var demoFixtures []byte

type Fixtures struct {
	Users    []FixtureUser    `yaml:"users"`
	Projects []FixtureProject `yaml:"projects"`
}

type FixtureUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type FixtureProject struct {
	Name        string         `yaml:"name"`
	Key         string         `yaml:"key"`
	Description string         `yaml:"description"`
	Maintainer  string         `yaml:"maintainer"`
	Members     []string       `yaml:"members"`
	Issues      []FixtureIssue `yaml:"issues"`
}

type FixtureIssue struct {
	Title       string               `yaml:"title"`
	Description string               `yaml:"description"`
	Status      models.IssueStatus   `yaml:"status"`
	Priority    models.IssuePriority `yaml:"priority"`
	Reporter    string               `yaml:"reporter"`
	Assignee    string               `yaml:"assignee"`
	Comments    []FixtureComment     `yaml:"comments"`
}

type FixtureComment struct {
	Author string `yaml:"author"`
	Body   string `yaml:"body"`
}

// DemoFixtures returns the built-in demo data set.
func DemoFixtures() (*Fixtures, error) {
	return ParseFixtures(demoFixtures)
}

func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}
	return &f, nil
}

var errAlreadySeeded = errors.New("demo data already present")

// Seed loads fixtures through the service layer so every row obeys the same
// rules as API traffic. The whole load is one transaction, so a failed run
// leaves nothing behind and the next start tries again. It does nothing once
// the first fixture user exists.
func Seed(ctx context.Context, svc *services.Services, f *Fixtures, log zerolog.Logger) error {
	if len(f.Users) == 0 {
		return nil
	}

	var issues, comments int
	err := svc.Transaction(ctx, func(tx *services.Services) error {
		var err error
		issues, comments, err = seedAll(ctx, tx, f)
		return err
	})
	if errors.Is(err, errAlreadySeeded) {
		log.Info().Msg("demo data already present, skipping seed")
		return nil
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("users", len(f.Users)).
		Int("projects", len(f.Projects)).
		Int("issues", issues).
		Int("comments", comments).
		Msg("demo data seeded")
	return nil
}

func seedAll(ctx context.Context, svc *services.Services, f *Fixtures) (issues, comments int, err error) {
	users := make(map[string]*models.User, len(f.Users))
	for i, fu := range f.Users {
		u, err := svc.Accounts.Signup(ctx, fu.Name, fu.Email, fu.Password)
		if i == 0 && errors.Is(err, apperr.ErrConflict) {
			return 0, 0, errAlreadySeeded
		}
		if err != nil {
			return 0, 0, fmt.Errorf("seeding user %s: %w", fu.Email, err)
		}
		users[u.Email] = u
	}
	lookup := func(email string) (*models.User, error) {
		u, ok := users[email]
		if !ok {
			return nil, fmt.Errorf("fixture references unknown user %q", email)
		}
		return u, nil
	}

	for _, fp := range f.Projects {
		maintainer, err := lookup(fp.Maintainer)
		if err != nil {
			return 0, 0, err
		}
		project, err := svc.Projects.Create(ctx, maintainer.ID, services.CreateProjectInput{
			Name:        fp.Name,
			Key:         fp.Key,
			Description: fp.Description,
		})
		if err != nil {
			return 0, 0, fmt.Errorf("seeding project %s: %w", fp.Key, err)
		}
		for _, email := range fp.Members {
			if _, err := svc.Projects.AddMember(ctx, project.ID, maintainer.ID, email, models.RoleMember); err != nil {
				return 0, 0, fmt.Errorf("seeding member %s of %s: %w", email, fp.Key, err)
			}
		}

		for _, fi := range fp.Issues {
			if err := seedIssue(ctx, svc, project, maintainer, fi, lookup); err != nil {
				return 0, 0, fmt.Errorf("seeding issue %q: %w", fi.Title, err)
			}
			issues++
			comments += len(fi.Comments)
		}
	}
	return issues, comments, nil
}

func seedIssue(ctx context.Context, svc *services.Services, project *models.Project, maintainer *models.User, fi FixtureIssue, lookup func(string) (*models.User, error)) error {
	reporter, err := lookup(fi.Reporter)
	if err != nil {
		return err
	}
	in := services.CreateIssueInput{Title: fi.Title, Description: fi.Description, Priority: fi.Priority}
	if fi.Assignee != "" {
		assignee, err := lookup(fi.Assignee)
		if err != nil {
			return err
		}
		in.AssigneeID = &assignee.ID
	}
	issue, err := svc.Issues.Create(ctx, project.ID, reporter.ID, in)
	if err != nil {
		return err
	}

	if fi.Status != "" && fi.Status != issue.Status {
		patch := models.IssuePatch{Status: models.Some(fi.Status)}
		if _, err := svc.Issues.Update(ctx, issue.ID, maintainer.ID, patch); err != nil {
			return err
		}
	}

	for _, fc := range fi.Comments {
		author, err := lookup(fc.Author)
		if err != nil {
			return err
		}
		if _, err := svc.Comments.Add(ctx, issue.ID, author.ID, fc.Body); err != nil {
			return err
		}
	}
	return nil
}
