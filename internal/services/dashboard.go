package services

import (
	"context"

	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

const recentProjectsLimit = 5

type ProjectTotals struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Alert    int64 `json:"alert"`
	Finished int64 `json:"finished"`
}

type AdminDashboard struct {
	Projects       ProjectTotals     `json:"projects"`
	Members        int64             `json:"members"`
	Tasks          Stats             `json:"tasks"`
	RecentProjects []ProjectListItem `json:"recent_projects"`
}

type ActiveProjectSummary struct {
	ID       uint          `json:"id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Progress int           `json:"progress"`
	Stats    Stats         `json:"stats"`
	MyTasks  []models.Task `json:"my_tasks"`
}

type MemberDashboard struct {
	ActiveProject      *ActiveProjectSummary `json:"active_project"`
	AccessibleProjects int64                 `json:"accessible_projects"`
}

// DashboardView carries exactly one of Admin or Member, picked by role.
type DashboardView struct {
	Admin  *AdminDashboard
	Member *MemberDashboard
}

type Dashboard struct {
	db     *gorm.DB
	access *AccessPolicy
	active *ActiveProjectSelector
	board  *TaskBoard
}

func NewDashboard(db *gorm.DB, access *AccessPolicy, active *ActiveProjectSelector, board *TaskBoard) *Dashboard {
	return &Dashboard{db: db, access: access, active: active, board: board}
}

func (d *Dashboard) ForPrincipal(ctx context.Context, principal *types.Principal) (*DashboardView, error) {
	if principal == nil {
		return nil, apperrors.ErrAccessDenied
	}

	if principal.IsAdmin() {
		admin, err := d.admin(ctx)
		if err != nil {
			return nil, err
		}
		return &DashboardView{Admin: admin}, nil
	}

	member, err := d.member(ctx, principal)
	if err != nil {
		return nil, err
	}
	return &DashboardView{Member: member}, nil
}

func (d *Dashboard) admin(ctx context.Context) (*AdminDashboard, error) {
	view := &AdminDashboard{RecentProjects: []ProjectListItem{}}

	var projectRows []struct {
		Status string
		Total  int64
	}

	err := d.db.WithContext(ctx).
		Model(&models.Project{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&projectRows).Error
	if err != nil {
		return nil, apperrors.Internal("count projects by status", err)
	}

	for _, row := range projectRows {
		view.Projects.Total += row.Total
		switch row.Status {
		case types.ProjectStatusActive:
			view.Projects.Active = row.Total
		case types.ProjectStatusAlert:
			view.Projects.Alert = row.Total
		case types.ProjectStatusFinished:
			view.Projects.Finished = row.Total
		}
	}

	err = d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", types.RoleMember).
		Count(&view.Members).Error
	if err != nil {
		return nil, apperrors.Internal("count members", err)
	}

	var taskRows []struct {
		Status taskstatus.Status
		Total  int
	}

	err = d.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&taskRows).Error
	if err != nil {
		return nil, apperrors.Internal("count tasks by status", err)
	}

	for _, row := range taskRows {
		switch row.Status {
		case taskstatus.Pending:
			view.Tasks.Pending = row.Total
		case taskstatus.InProgress:
			view.Tasks.InProgress = row.Total
		case taskstatus.Done:
			view.Tasks.Done = row.Total
		}
	}
	view.Tasks.Total = view.Tasks.Pending + view.Tasks.InProgress + view.Tasks.Done

	var recent []models.Project

	err = d.db.WithContext(ctx).
		Preload("Creator", selectUserSummary).
		Order("created_at DESC").
		Order("id DESC").
		Limit(recentProjectsLimit).
		Find(&recent).Error
	if err != nil {
		return nil, apperrors.Internal("load recent projects", err)
	}

	counts, err := d.access.memberCounts(ctx, recent)
	if err != nil {
		return nil, err
	}

	for _, project := range recent {
		view.RecentProjects = append(view.RecentProjects, toProjectListItem(project, counts[project.ID]))
	}

	return view, nil
}

func (d *Dashboard) member(ctx context.Context, principal *types.Principal) (*MemberDashboard, error) {
	view := &MemberDashboard{}

	accessible, err := d.access.CountAccessible(ctx, principal)
	if err != nil {
		return nil, err
	}
	view.AccessibleProjects = accessible

	project, err := d.active.GetActive(ctx, principal)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return view, nil
	}

	board, err := d.board.load(ctx, project)
	if err != nil {
		return nil, err
	}

	myTasks, err := d.board.soonestDue(ctx, project.ID, types.DefaultMyTaskLimit)
	if err != nil {
		return nil, err
	}

	view.ActiveProject = &ActiveProjectSummary{
		ID:       project.ID,
		Name:     project.Name,
		Status:   project.Status,
		Progress: board.Progress,
		Stats:    board.Stats,
		MyTasks:  myTasks,
	}

	return view, nil
}
