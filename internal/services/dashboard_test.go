package services

import (
	"testing"

	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
)

func TestDashboard_Admin(t *testing.T) {
	f := setupAdmin(t)
	dashboard := New(f.conn).Dashboard

	alpha := createProject(t, f.conn, "Alpha", f.admin)
	createProject(t, f.conn, "Beta", f.admin)
	if _, err := f.projects.Finish(bg, f.admin.Principal(), alpha.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	createTask(t, f.conn, alpha, "one", taskstatus.Done, "2025-01-01")
	createTask(t, f.conn, alpha, "two", taskstatus.Pending, "2025-01-02")

	view, err := dashboard.ForPrincipal(bg, f.admin.Principal())
	if err != nil {
		t.Fatalf("ForPrincipal: %v", err)
	}
	if view.Admin == nil || view.Member != nil {
		t.Fatalf("expected the admin view, got %+v", view)
	}

	if view.Admin.Projects != (ProjectTotals{Total: 2, Active: 1, Finished: 1}) {
		t.Errorf("project totals = %+v", view.Admin.Projects)
	}
	if view.Admin.Members != 1 {
		t.Errorf("members = %d, want 1", view.Admin.Members)
	}
	if view.Admin.Tasks != (Stats{Total: 2, Pending: 1, Done: 1}) {
		t.Errorf("task overview = %+v", view.Admin.Tasks)
	}
	if len(view.Admin.RecentProjects) != 2 || view.Admin.RecentProjects[0].Name != "Beta" {
		t.Errorf("recent projects = %+v", view.Admin.RecentProjects)
	}
}

func TestDashboard_Member(t *testing.T) {
	f := setupAdmin(t)
	dashboard := New(f.conn).Dashboard
	mia := f.member.Principal()

	view, err := dashboard.ForPrincipal(bg, mia)
	if err != nil {
		t.Fatalf("ForPrincipal: %v", err)
	}
	if view.Member == nil || view.Member.ActiveProject != nil || view.Member.AccessibleProjects != 0 {
		t.Fatalf("fresh member view = %+v", view.Member)
	}

	project := createProject(t, f.conn, "Apollo", f.admin)
	addMember(t, f.conn, project, f.member)
	for i, day := range []string{"07", "06", "05", "04", "03", "02", "01"} {
		status := taskstatus.Pending
		if i%2 == 0 {
			status = taskstatus.Done
		}
		createTask(t, f.conn, project, "task "+day, status, "2025-02-"+day)
	}

	if err := f.active.SetActive(bg, mia, uintPtr(project.ID)); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	view, err = dashboard.ForPrincipal(bg, mia)
	if err != nil {
		t.Fatalf("ForPrincipal: %v", err)
	}

	summary := view.Member.ActiveProject
	if summary == nil {
		t.Fatal("expected an active project summary")
	}
	if summary.ID != project.ID || summary.Stats.Total != 7 || summary.Stats.Done != 4 || summary.Progress != 57 {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.MyTasks) != types.DefaultMyTaskLimit || summary.MyTasks[0].Title != "task 01" {
		t.Errorf("my tasks = %v", titles(summary.MyTasks))
	}
	if view.Member.AccessibleProjects != 1 {
		t.Errorf("accessible = %d, want 1", view.Member.AccessibleProjects)
	}
}
