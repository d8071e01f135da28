package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultProjectsPerPage = 15

// ProjectAdmin holds the administrator-only project operations.
type ProjectAdmin struct {
	db     *gorm.DB
	access *AccessPolicy
	now    func() time.Time
}

func NewProjectAdmin(db *gorm.DB, access *AccessPolicy) *ProjectAdmin {
	return &ProjectAdmin{db: db, access: access, now: time.Now}
}

type ProjectFilter struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}

type ProjectOverview struct {
	ProjectListItem
	TasksTotal int64     `json:"tasks_total"`
	TasksLate  int64     `json:"tasks_late"`
	CreatedAt  time.Time `json:"created_at"`
}

// List pages through every project, newest first, with task counts. A task
// is late when it is not done and its deadline is before today.
func (p *ProjectAdmin) List(ctx context.Context, principal *types.Principal, filter ProjectFilter) (types.Page[ProjectOverview], error) {
	if !principal.IsAdmin() {
		return types.Page[ProjectOverview]{}, apperrors.ErrAccessDenied
	}

	if filter.Status != "" && !types.ValidProjectStatus(filter.Status) {
		return types.Page[ProjectOverview]{}, apperrors.Validation("status", "must be one of: active alert finished")
	}

	page, perPage := types.NormalizePaging(filter.Page, filter.PerPage, defaultProjectsPerPage, types.MaxPageSize)

	base := func() *gorm.DB {
		tx := p.db.WithContext(ctx).
			Model(&models.Project{}).
			Scopes(matching(filter.Search, "projects.name"))
		if filter.Status != "" {
			tx = tx.Where("projects.status = ?", filter.Status)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return types.Page[ProjectOverview]{}, apperrors.Internal("count projects", err)
	}

	var projects []models.Project

	err := base().
		Preload("Creator", selectUserSummary).
		Order("projects.created_at DESC").
		Order("projects.id DESC").
		Offset(types.Offset(page, perPage)).
		Limit(perPage).
		Find(&projects).Error
	if err != nil {
		return types.Page[ProjectOverview]{}, apperrors.Internal("list projects", err)
	}

	members, err := p.access.memberCounts(ctx, projects)
	if err != nil {
		return types.Page[ProjectOverview]{}, err
	}

	taskCounts, err := p.taskCounts(ctx, projects)
	if err != nil {
		return types.Page[ProjectOverview]{}, err
	}

	items := make([]ProjectOverview, 0, len(projects))
	for _, project := range projects {
		counts := taskCounts[project.ID]
		items = append(items, ProjectOverview{
			ProjectListItem: toProjectListItem(project, members[project.ID]),
			TasksTotal:      counts.Total,
			TasksLate:       counts.Late,
			CreatedAt:       project.CreatedAt,
		})
	}

	return types.NewPage(items, page, perPage, total), nil
}

type projectTaskCounts struct {
	ProjectID uint
	Total     int64
	Late      int64
}

func (p *ProjectAdmin) taskCounts(ctx context.Context, projects []models.Project) (map[uint]projectTaskCounts, error) {
	counts := make(map[uint]projectTaskCounts, len(projects))
	if len(projects) == 0 {
		return counts, nil
	}

	ids := make([]uint, 0, len(projects))
	for _, project := range projects {
		ids = append(ids, project.ID)
	}

	var rows []projectTaskCounts

	err := p.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status <> ? AND deadline < ? THEN 1 ELSE 0 END) AS late",
			taskstatus.Done, today(p.now)).
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("count project tasks", err)
	}

	for _, row := range rows {
		counts[row.ProjectID] = row
	}

	return counts, nil
}

type ProjectInput struct {
	Name   string  `json:"name" validate:"required,max=255"`
	Status *string `json:"status" validate:"omitempty,oneof=active alert finished"`
}

// Create adds a project owned by principal. New projects start active unless
// a status is given.
func (p *ProjectAdmin) Create(ctx context.Context, principal *types.Principal, input ProjectInput) (*models.Project, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	input.Name = strings.TrimSpace(input.Name)
	if fields := validateFields(input); fields != nil {
		return nil, apperrors.ValidationFields(fields)
	}

	project := models.Project{
		Name:      input.Name,
		Status:    types.ProjectStatusActive,
		CreatedBy: principal.ID,
	}
	if input.Status != nil {
		project.Status = *input.Status
	}

	if err := p.db.WithContext(ctx).Omit(clause.Associations).Create(&project).Error; err != nil {
		return nil, apperrors.Internal("create project", err)
	}

	logging.Logger.WithFields(logrus.Fields{
		"project_id": project.ID,
		"user_id":    principal.ID,
	}).Info("project created")

	return p.load(ctx, project.ID)
}

type ProjectPatch struct {
	Name   *string `json:"name" validate:"omitempty,max=255"`
	Status *string `json:"status" validate:"omitempty,oneof=active alert finished"`
}

func (p *ProjectAdmin) Update(ctx context.Context, principal *types.Principal, projectID uint, patch ProjectPatch) (*models.Project, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	fields := validateFields(patch)
	updates := map[string]interface{}{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			fields = addField(fields, "name", "is required")
		}
		updates["name"] = name
	}

	if patch.Status != nil {
		updates["status"] = *patch.Status
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	if _, err := p.load(ctx, projectID); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		err := p.db.WithContext(ctx).
			Model(&models.Project{}).
			Where("id = ?", projectID).
			Updates(updates).Error
		if err != nil {
			return nil, apperrors.Internal("update project", err)
		}
	}

	return p.load(ctx, projectID)
}

func (p *ProjectAdmin) Finish(ctx context.Context, principal *types.Principal, projectID uint) (*models.Project, error) {
	status := types.ProjectStatusFinished
	return p.Update(ctx, principal, projectID, ProjectPatch{Status: &status})
}

// Delete removes the project with its tasks and memberships and clears every
// active pointer that named it.
func (p *ProjectAdmin) Delete(ctx context.Context, principal *types.Principal, projectID uint) error {
	if !principal.IsAdmin() {
		return apperrors.ErrAccessDenied
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
			return apperrors.Internal("delete project tasks", err)
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMembership{}).Error; err != nil {
			return apperrors.Internal("delete project memberships", err)
		}

		err := tx.Model(&models.User{}).
			Where("active_project_id = ?", projectID).
			Update("active_project_id", nil).Error
		if err != nil {
			return apperrors.Internal("clear active pointers", err)
		}

		result := tx.Delete(&models.Project{}, projectID)
		if result.Error != nil {
			return apperrors.Internal("delete project", result.Error)
		}

		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	logging.Logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"user_id":    principal.ID,
	}).Info("project deleted")

	return nil
}

type MemberUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Members lists the users joined to the project, by name. The creator is
// listed only when joined explicitly.
func (p *ProjectAdmin) Members(ctx context.Context, principal *types.Principal, projectID uint) ([]MemberUser, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.ErrAccessDenied
	}

	if _, err := p.load(ctx, projectID); err != nil {
		return nil, err
	}

	members := []MemberUser{}

	err := p.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id", "users.name", "users.email", "users.role").
		Joins("JOIN project_user ON project_user.user_id = users.id").
		Where("project_user.project_id = ?", projectID).
		Order("users.name ASC").
		Order("users.id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, apperrors.Internal("list project members", err)
	}

	return members, nil
}

// AvailableUsers pages through users not yet joined to the project, matching
// search against name or email.
func (p *ProjectAdmin) AvailableUsers(ctx context.Context, principal *types.Principal, projectID uint, search string, page, perPage int) (types.Page[MemberUser], error) {
	if !principal.IsAdmin() {
		return types.Page[MemberUser]{}, apperrors.ErrAccessDenied
	}

	if _, err := p.load(ctx, projectID); err != nil {
		return types.Page[MemberUser]{}, err
	}

	page, perPage = types.NormalizePaging(page, perPage, types.DefaultPageSize, types.MaxPageSize)

	base := func() *gorm.DB {
		joined := p.db.Model(&models.ProjectMembership{}).
			Select("user_id").
			Where("project_id = ?", projectID)

		return p.db.WithContext(ctx).
			Model(&models.User{}).
			Where("users.id NOT IN (?)", joined).
			Scopes(matching(search, "users.name", "users.email"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return types.Page[MemberUser]{}, apperrors.Internal("count available users", err)
	}

	users := []MemberUser{}

	err := base().
		Select("users.id", "users.name", "users.email", "users.role").
		Order("users.name ASC").
		Order("users.id ASC").
		Offset(types.Offset(page, perPage)).
		Limit(perPage).
		Scan(&users).Error
	if err != nil {
		return types.Page[MemberUser]{}, apperrors.Internal("list available users", err)
	}

	return types.NewPage(users, page, perPage, total), nil
}

// AddMember joins userID to the project. Joining twice is a no-op. It returns
// the member count afterwards.
func (p *ProjectAdmin) AddMember(ctx context.Context, principal *types.Principal, projectID, userID uint) (int64, error) {
	if !principal.IsAdmin() {
		return 0, apperrors.ErrAccessDenied
	}

	if _, err := p.load(ctx, projectID); err != nil {
		return 0, err
	}

	if err := p.userExists(ctx, userID); err != nil {
		return 0, err
	}

	membership := models.ProjectMembership{ProjectID: projectID, UserID: userID}

	err := p.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
	if err != nil {
		return 0, apperrors.Internal("add project member", err)
	}

	return p.memberCount(ctx, projectID)
}

// RemoveMember detaches userID from the project. If that leaves the user
// without access, an active pointer naming the project is cleared too.
func (p *ProjectAdmin) RemoveMember(ctx context.Context, principal *types.Principal, projectID, userID uint) (int64, error) {
	if !principal.IsAdmin() {
		return 0, apperrors.ErrAccessDenied
	}

	project, err := p.load(ctx, projectID)
	if err != nil {
		return 0, err
	}

	var user models.User
	if err := p.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.Validation("user_id", "user does not exist")
		}
		return 0, apperrors.Internal("load user", err)
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMembership{}).Error
		if err != nil {
			return apperrors.Internal("remove project member", err)
		}

		if Allowed(user.Principal(), project, false) {
			return nil
		}

		return clearActivePointer(tx, userID, projectID)
	})
	if err != nil {
		return 0, err
	}

	return p.memberCount(ctx, projectID)
}

func (p *ProjectAdmin) memberCount(ctx context.Context, projectID uint) (int64, error) {
	var count int64

	err := p.db.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("count project members", err)
	}

	return count, nil
}

func (p *ProjectAdmin) userExists(ctx context.Context, userID uint) error {
	var count int64

	err := p.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	if err != nil {
		return apperrors.Internal("check user", err)
	}

	if count == 0 {
		return apperrors.Validation("user_id", "user does not exist")
	}

	return nil
}

func (p *ProjectAdmin) load(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project

	err := p.db.WithContext(ctx).
		Preload("Creator", selectUserSummary).
		First(&project, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Internal("load project", err)
	}

	return &project, nil
}
