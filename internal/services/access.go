package services

import (
	"context"
	"errors"

	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

// AccessPolicy decides whether a principal may act on a project and, through
// the project, on its tasks.
type AccessPolicy struct {
	db *gorm.DB
}

func NewAccessPolicy(db *gorm.DB) *AccessPolicy {
	return &AccessPolicy{db: db}
}

// Allowed is the access rule itself: admins, the creator and members.
// The creator never needs a membership row.
func Allowed(principal *types.Principal, project *models.Project, isMember bool) bool {
	if principal == nil || project == nil {
		return false
	}

	return principal.IsAdmin() || principal.ID == project.CreatedBy || isMember
}

func (a *AccessPolicy) CanAccess(ctx context.Context, principal *types.Principal, project *models.Project) (bool, error) {
	if principal == nil || project == nil {
		return false, nil
	}

	if Allowed(principal, project, false) {
		return true, nil
	}

	member, err := a.IsMember(ctx, project.ID, principal.ID)
	if err != nil {
		return false, err
	}

	return member, nil
}

func (a *AccessPolicy) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64

	err := a.db.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Internal("check project membership", err)
	}

	return count > 0, nil
}

// accessibleTo restricts a projects query to what principal may see.
func (a *AccessPolicy) accessibleTo(principal *types.Principal) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if principal.IsAdmin() {
			return tx
		}

		joined := a.db.Model(&models.ProjectMembership{}).
			Select("project_id").
			Where("user_id = ?", principal.ID)

		return tx.Where("projects.created_by = ? OR projects.id IN (?)", principal.ID, joined)
	}
}

// authorizeProject loads a project the principal may access. Non-admins
// cannot tell a missing project from a forbidden one.
func (a *AccessPolicy) authorizeProject(ctx context.Context, principal *types.Principal, projectID uint) (*models.Project, error) {
	if principal == nil {
		return nil, apperrors.ErrAccessDenied
	}

	var project models.Project

	err := a.db.WithContext(ctx).
		Preload("Creator", selectUserSummary).
		First(&project, projectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if principal.IsAdmin() {
				return nil, apperrors.ErrNotFound
			}
			return nil, apperrors.ErrAccessDenied
		}
		return nil, apperrors.Internal("load project", err)
	}

	ok, err := a.CanAccess(ctx, principal, &project)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, apperrors.ErrAccessDenied
	}

	return &project, nil
}

type ProjectListItem struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	Status       string       `json:"status"`
	CreatedBy    uint         `json:"created_by"`
	Creator      *UserSummary `json:"creator"`
	MembersCount int64        `json:"members_count"`
}

// AccessibleProjects pages through the projects principal can access, by name.
func (a *AccessPolicy) AccessibleProjects(ctx context.Context, principal *types.Principal, page, pageSize int, search string) (types.Page[ProjectListItem], error) {
	if principal == nil {
		return types.Page[ProjectListItem]{}, apperrors.ErrAccessDenied
	}

	page, pageSize = types.NormalizePaging(page, pageSize, types.DefaultPageSize, types.MaxPageSize)

	base := func() *gorm.DB {
		return a.db.WithContext(ctx).
			Model(&models.Project{}).
			Scopes(a.accessibleTo(principal), matching(search, "projects.name"))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return types.Page[ProjectListItem]{}, apperrors.Internal("count accessible projects", err)
	}

	var projects []models.Project

	err := base().
		Preload("Creator", selectUserSummary).
		Order("projects.name ASC").
		Order("projects.id ASC").
		Offset(types.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&projects).Error
	if err != nil {
		return types.Page[ProjectListItem]{}, apperrors.Internal("list accessible projects", err)
	}

	counts, err := a.memberCounts(ctx, projects)
	if err != nil {
		return types.Page[ProjectListItem]{}, err
	}

	items := make([]ProjectListItem, 0, len(projects))
	for _, project := range projects {
		items = append(items, toProjectListItem(project, counts[project.ID]))
	}

	return types.NewPage(items, page, pageSize, total), nil
}

// CountAccessible is the number of projects principal can access.
func (a *AccessPolicy) CountAccessible(ctx context.Context, principal *types.Principal) (int64, error) {
	if principal == nil {
		return 0, nil
	}

	var total int64

	err := a.db.WithContext(ctx).
		Model(&models.Project{}).
		Scopes(a.accessibleTo(principal)).
		Count(&total).Error
	if err != nil {
		return 0, apperrors.Internal("count accessible projects", err)
	}

	return total, nil
}

func (a *AccessPolicy) memberCounts(ctx context.Context, projects []models.Project) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(projects))
	if len(projects) == 0 {
		return counts, nil
	}

	ids := make([]uint, 0, len(projects))
	for _, project := range projects {
		ids = append(ids, project.ID)
	}

	var rows []struct {
		ProjectID uint
		Total     int64
	}

	err := a.db.WithContext(ctx).
		Model(&models.ProjectMembership{}).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal("count project members", err)
	}

	for _, row := range rows {
		counts[row.ProjectID] = row.Total
	}

	return counts, nil
}

func toProjectListItem(project models.Project, members int64) ProjectListItem {
	item := ProjectListItem{
		ID:           project.ID,
		Name:         project.Name,
		Status:       project.Status,
		CreatedBy:    project.CreatedBy,
		MembersCount: members,
	}

	if project.Creator.ID != 0 {
		item.Creator = &UserSummary{ID: project.Creator.ID, Name: project.Creator.Name}
	}

	return item
}
