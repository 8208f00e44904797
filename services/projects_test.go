package services_test

import (
	"errors"
	"issuehub/apperr"
	"issuehub/models"
	"issuehub/services"
	"testing"
	"time"
)

func TestProjects_CreateMakesCreatorSoleMaintainer(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	p := e.project(t, alice, "P1")

	members, err := e.svc.Projects.ListMembers(e.ctx, p.ID, alice.ID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if members[0].UserID != alice.ID || members[0].Role != models.RoleMaintainer {
		t.Errorf("member = %+v, want alice as maintainer", members[0])
	}
	_, _, rows, _, _ := e.store.Counts()
	if rows != 1 {
		t.Errorf("membership rows = %d, want 1", rows)
	}
}

func TestProjects_DuplicateKey(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	e.project(t, alice, "P1")

	_, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "Again", Key: "P1"})
	wantKind(t, err, apperr.ErrConflict)
}

func TestProjects_StartDateWindow(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")

	edge := fixedNow.AddDate(0, 0, 30)
	if _, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "Edge", Key: "EDGE", StartDate: &edge}); err != nil {
		t.Fatalf("start date at the window edge should be accepted: %v", err)
	}

	past := fixedNow.AddDate(-1, 0, 0)
	if _, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "Past", Key: "PAST", StartDate: &past}); err != nil {
		t.Fatalf("past start date should be accepted: %v", err)
	}

	late := fixedNow.AddDate(0, 0, 31)
	_, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "Late", Key: "LATE", StartDate: &late})
	wantKind(t, err, apperr.ErrInvalidInput)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || len(appErr.Details) != 1 || appErr.Details[0].Field != "start_date" {
		t.Errorf("error details = %+v, want start_date", appErr)
	}
	if _, err := e.store.ProjectByKey(e.ctx, "LATE"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("rejected project should not be persisted")
	}
}

func TestProjects_RequiresNameAndKey(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	_, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: " ", Key: ""})
	wantKind(t, err, apperr.ErrInvalidInput)
}

func TestProjects_ListForUser(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	bob := e.signup(t, "Bob", "bob@test.com")
	p1 := e.project(t, alice, "P1")
	e.project(t, bob, "P2")
	e.addMember(t, p1, alice, bob, models.RoleMember)

	list, err := e.svc.Projects.ListForUser(e.ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("projects = %d, want 2", len(list))
	}
	if list[0].Key != "P2" || list[0].MyRole != models.RoleMaintainer {
		t.Errorf("list[0] = %s/%s, want P2/maintainer", list[0].Key, list[0].MyRole)
	}
	if list[1].Key != "P1" || list[1].MyRole != models.RoleMember {
		t.Errorf("list[1] = %s/%s, want P1/member", list[1].Key, list[1].MyRole)
	}

	carol := e.signup(t, "Carol", "carol@test.com")
	none, err := e.svc.Projects.ListForUser(e.ctx, carol.ID)
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("projects for outsider = %d, want 0", len(none))
	}
}

func TestProjects_AddMember(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	bob := e.signup(t, "Bob", "bob@test.com")
	carol := e.signup(t, "Carol", "carol@test.com")
	p := e.project(t, alice, "P1")

	view, err := e.svc.Projects.AddMember(e.ctx, p.ID, alice.ID, "BOB@test.com", models.RoleMaintainer)
	if err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}
	if view.UserID != bob.ID || view.Role != models.RoleMaintainer {
		t.Errorf("view = %+v, want bob as maintainer", view)
	}

	_, err = e.svc.Projects.AddMember(e.ctx, p.ID, alice.ID, "bob@test.com", models.RoleMember)
	wantKind(t, err, apperr.ErrConflict)

	_, err = e.svc.Projects.AddMember(e.ctx, p.ID, alice.ID, "ghost@test.com", models.RoleMember)
	wantKind(t, err, apperr.ErrNotFound)

	_, err = e.svc.Projects.AddMember(e.ctx, p.ID, alice.ID, "carol@test.com", models.Role("owner"))
	wantKind(t, err, apperr.ErrInvalidInput)

	// carol is not a member yet, then a plain member: neither may invite
	dave := e.signup(t, "Dave", "dave@test.com")
	_, err = e.svc.Projects.AddMember(e.ctx, p.ID, carol.ID, "dave@test.com", models.RoleMember)
	wantKind(t, err, apperr.ErrForbidden)
	e.addMember(t, p, alice, carol, models.RoleMember)
	_, err = e.svc.Projects.AddMember(e.ctx, p.ID, carol.ID, dave.Email, models.RoleMember)
	wantKind(t, err, apperr.ErrForbidden)

	// bob was made maintainer and can invite
	e.addMember(t, p, bob, dave, models.RoleMember)
}

func TestProjects_DeleteCascades(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	bob := e.signup(t, "Bob", "bob@test.com")
	p := e.project(t, alice, "P1")
	other := e.project(t, alice, "P2")
	e.addMember(t, p, alice, bob, models.RoleMember)

	i1 := e.issue(t, p, bob, "first")
	i2 := e.issue(t, p, alice, "second")
	keep := e.issue(t, other, alice, "untouched")
	for _, i := range []*models.Issue{i1, i2, keep} {
		if _, err := e.svc.Comments.Add(e.ctx, i.ID, alice.ID, "note"); err != nil {
			t.Fatalf("Add comment error = %v", err)
		}
	}

	wantKind(t, e.svc.Projects.Delete(e.ctx, p.ID, bob.ID), apperr.ErrForbidden)

	if err := e.svc.Projects.Delete(e.ctx, p.ID, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, id := range []uint{i1.ID, i2.ID} {
		_, err := e.svc.Issues.Detail(e.ctx, id, alice.ID)
		wantKind(t, err, apperr.ErrNotFound)
		_, err = e.svc.Comments.List(e.ctx, id, alice.ID)
		wantKind(t, err, apperr.ErrNotFound)
	}
	wantKind(t, e.svc.Projects.Delete(e.ctx, p.ID, alice.ID), apperr.ErrNotFound)

	_, projects, members, issues, comments := e.store.Counts()
	if projects != 1 || members != 1 || issues != 1 || comments != 1 {
		t.Errorf("remaining rows projects=%d members=%d issues=%d comments=%d, want 1 each", projects, members, issues, comments)
	}
}

func TestProjects_DeleteIsAtomic(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	p := e.project(t, alice, "P1")
	i := e.issue(t, p, alice, "first")
	if _, err := e.svc.Comments.Add(e.ctx, i.ID, alice.ID, "note"); err != nil {
		t.Fatalf("Add comment error = %v", err)
	}

	boom := errors.New("disk full")
	e.store.FailOn("DeleteProject", boom)
	if err := e.svc.Projects.Delete(e.ctx, p.ID, alice.ID); !errors.Is(err, boom) {
		t.Fatalf("Delete() error = %v, want %v", err, boom)
	}

	_, projects, members, issues, comments := e.store.Counts()
	if projects != 1 || members != 1 || issues != 1 || comments != 1 {
		t.Errorf("after failed delete projects=%d members=%d issues=%d comments=%d, want 1 each", projects, members, issues, comments)
	}
}

func TestProjects_CreateIsAtomic(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	e.store.FailOn("CreateMembership", errors.New("constraint"))

	if _, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "P", Key: "P1"}); err == nil {
		t.Fatal("Create() should fail when the membership cannot be written")
	}
	_, projects, _, _, _ := e.store.Counts()
	if projects != 0 {
		t.Errorf("projects = %d, want 0 after rollback", projects)
	}
}

func TestProjects_StartDateIgnoresTimeOfDay(t *testing.T) {
	e := newEnv(t)
	alice := e.signup(t, "Alice", "alice@test.com")
	edge := time.Date(2026, 4, 9, 23, 59, 0, 0, time.UTC)
	if _, err := e.svc.Projects.Create(e.ctx, alice.ID, services.CreateProjectInput{Name: "Edge", Key: "EDGE", StartDate: &edge}); err != nil {
		t.Fatalf("late in the last allowed day should be accepted: %v", err)
	}
}
