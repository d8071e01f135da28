package services

import (
	"errors"
	"testing"

	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/types"
)

func TestSetActive_GivenNonMember_ThenAccessDeniedAndPointerUnchanged(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	admin := createUser(t, conn, "Admin", types.RoleAdmin)
	mia := createUser(t, conn, "Mia", types.RoleMember)

	mine := createProject(t, conn, "Mine", mia)
	foreign := createProject(t, conn, "Foreign", admin)

	if err := active.SetActive(bg, mia.Principal(), uintPtr(mine.ID)); err != nil {
		t.Fatalf("SetActive(own): %v", err)
	}

	err := active.SetActive(bg, mia.Principal(), uintPtr(foreign.ID))
	if !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Fatalf("SetActive(foreign) error = %v, want ErrAccessDenied", err)
	}

	pointer := activePointer(t, conn, mia)
	if pointer == nil || *pointer != mine.ID {
		t.Errorf("pointer = %v, want %d", pointer, mine.ID)
	}
}

func TestSetActive_MissingProject(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	admin := createUser(t, conn, "Admin", types.RoleAdmin)
	mia := createUser(t, conn, "Mia", types.RoleMember)

	if err := active.SetActive(bg, mia.Principal(), uintPtr(404)); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("member error = %v, want ErrAccessDenied", err)
	}

	if err := active.SetActive(bg, admin.Principal(), uintPtr(404)); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("admin error = %v, want ErrNotFound", err)
	}

	if activePointer(t, conn, mia) != nil || activePointer(t, conn, admin) != nil {
		t.Error("failed SetActive must not write a pointer")
	}
}

func TestSetActive_NilClearsPointer(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	mia := createUser(t, conn, "Mia", types.RoleMember)
	project := createProject(t, conn, "Mine", mia)
	setPointer(t, conn, mia, project)

	if err := active.SetActive(bg, mia.Principal(), nil); err != nil {
		t.Fatalf("SetActive(nil): %v", err)
	}

	if pointer := activePointer(t, conn, mia); pointer != nil {
		t.Errorf("pointer = %d, want nil", *pointer)
	}
}

func TestSetActive_AdminMayPickAnyProject(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	admin := createUser(t, conn, "Admin", types.RoleAdmin)
	olga := createUser(t, conn, "Olga", types.RoleMember)
	project := createProject(t, conn, "Olga's", olga)

	if err := active.SetActive(bg, admin.Principal(), uintPtr(project.ID)); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	got, err := active.GetActive(bg, admin.Principal())
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got == nil || got.ID != project.ID {
		t.Errorf("GetActive = %+v, want project %d", got, project.ID)
	}
}

func TestGetActive_NoneSelected(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))
	mia := createUser(t, conn, "Mia", types.RoleMember)

	got, err := active.GetActive(bg, mia.Principal())
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got != nil {
		t.Errorf("GetActive = %+v, want nil", got)
	}
}

func TestGetActive_GivenMembershipRevoked_ThenPointerSelfHeals(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	admin := createUser(t, conn, "Admin", types.RoleAdmin)
	mia := createUser(t, conn, "Mia", types.RoleMember)

	project := createProject(t, conn, "Shared", admin)
	addMember(t, conn, project, mia)

	if err := active.SetActive(bg, mia.Principal(), uintPtr(project.ID)); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	// Revoke behind the selector's back.
	err := conn.Where("project_id = ? AND user_id = ?", project.ID, mia.ID).
		Delete(&models.ProjectMembership{}).Error
	if err != nil {
		t.Fatalf("delete membership: %v", err)
	}

	got, err := active.GetActive(bg, mia.Principal())
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if got != nil {
		t.Errorf("GetActive = %+v, want nil after revocation", got)
	}

	if pointer := activePointer(t, conn, mia); pointer != nil {
		t.Errorf("stale pointer %d was not cleared", *pointer)
	}
}

func TestGetActive_GivenProjectDeleted_ThenNil(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	mia := createUser(t, conn, "Mia", types.RoleMember)
	project := createProject(t, conn, "Gone", mia)
	setPointer(t, conn, mia, project)

	if err := conn.Delete(&models.Project{}, project.ID).Error; err != nil {
		t.Fatalf("delete project: %v", err)
	}

	got, err := active.GetActive(bg, mia.Principal())
	if err != nil || got != nil {
		t.Fatalf("GetActive = %+v, %v; want nil, nil", got, err)
	}
	if activePointer(t, conn, mia) != nil {
		t.Error("pointer to deleted project was not cleared")
	}
}

func TestClearActivePointer_OnlyWhenStillPointing(t *testing.T) {
	conn := newTestDB(t)

	mia := createUser(t, conn, "Mia", types.RoleMember)
	first := createProject(t, conn, "First", mia)
	second := createProject(t, conn, "Second", mia)
	setPointer(t, conn, mia, second)

	if err := clearActivePointer(conn, mia.ID, first.ID); err != nil {
		t.Fatalf("clearActivePointer: %v", err)
	}

	pointer := activePointer(t, conn, mia)
	if pointer == nil || *pointer != second.ID {
		t.Errorf("pointer = %v, want %d to survive", pointer, second.ID)
	}
}

func TestActiveSelector_NilPrincipal(t *testing.T) {
	conn := newTestDB(t)
	active := NewActiveProjectSelector(conn, NewAccessPolicy(conn))

	if err := active.SetActive(bg, nil, nil); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("SetActive(nil principal) = %v", err)
	}
	if _, err := active.GetActive(bg, nil); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("GetActive(nil principal) = %v", err)
	}
}
