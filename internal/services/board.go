package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/taskstatus"
	"github.com/tehokas/taskdeck/internal/types"
	"gorm.io/gorm"
)

type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}

// BoardView is a project's tasks grouped into the three kanban columns.
// Project is nil for the empty board shown when no project is active.
type BoardView struct {
	Project    *models.Project
	Pending    []models.Task
	InProgress []models.Task
	Done       []models.Task
	Stats      Stats
	Progress   int
}

// Summarize groups tasks by status, keeping their order inside each group.
func Summarize(tasks []models.Task) (pending, inProgress, done []models.Task, stats Stats) {
	pending = []models.Task{}
	inProgress = []models.Task{}
	done = []models.Task{}

	for _, task := range tasks {
		switch task.Status {
		case taskstatus.Pending:
			pending = append(pending, task)
		case taskstatus.InProgress:
			inProgress = append(inProgress, task)
		case taskstatus.Done:
			done = append(done, task)
		}
	}

	stats = Stats{
		Total:      len(pending) + len(inProgress) + len(done),
		Pending:    len(pending),
		InProgress: len(inProgress),
		Done:       len(done),
	}

	return pending, inProgress, done, stats
}

// Progress is the rounded share of done tasks, 0 for an empty project.
func Progress(stats Stats) int {
	if stats.Total == 0 {
		return 0
	}
	return int(math.Round(float64(stats.Done) / float64(stats.Total) * 100))
}

func NewBoardView(project *models.Project, tasks []models.Task) *BoardView {
	pending, inProgress, done, stats := Summarize(tasks)

	return &BoardView{
		Project:    project,
		Pending:    pending,
		InProgress: inProgress,
		Done:       done,
		Stats:      stats,
		Progress:   Progress(stats),
	}
}

// TaskBoard serves the project scoped task views and every task mutation.
type TaskBoard struct {
	db     *gorm.DB
	access *AccessPolicy
	active *ActiveProjectSelector
}

func NewTaskBoard(db *gorm.DB, access *AccessPolicy, active *ActiveProjectSelector) *TaskBoard {
	return &TaskBoard{db: db, access: access, active: active}
}

func (b *TaskBoard) ForProject(ctx context.Context, principal *types.Principal, projectID uint) (*BoardView, error) {
	project, err := b.access.authorizeProject(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}

	return b.load(ctx, project)
}

// ForActiveProject is the board of principal's active project, or an empty
// board with a nil Project when none is selected.
func (b *TaskBoard) ForActiveProject(ctx context.Context, principal *types.Principal) (*BoardView, error) {
	project, err := b.active.GetActive(ctx, principal)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return NewBoardView(nil, nil), nil
	}

	return b.load(ctx, project)
}

func (b *TaskBoard) load(ctx context.Context, project *models.Project) (*BoardView, error) {
	var tasks []models.Task

	err := b.db.WithContext(ctx).
		Where("project_id = ?", project.ID).
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, apperrors.Internal("load project tasks", err)
	}

	return NewBoardView(project, tasks), nil
}

// MyTasks lists the soonest due tasks of a project, ties broken by id.
func (b *TaskBoard) MyTasks(ctx context.Context, principal *types.Principal, projectID uint, limit int) ([]models.Task, error) {
	project, err := b.access.authorizeProject(ctx, principal, projectID)
	if err != nil {
		return nil, err
	}

	return b.soonestDue(ctx, project.ID, limit)
}

func (b *TaskBoard) soonestDue(ctx context.Context, projectID uint, limit int) ([]models.Task, error) {
	if limit < 1 {
		limit = types.DefaultMyTaskLimit
	}
	if limit > types.MaxMyTaskLimit {
		limit = types.MaxMyTaskLimit
	}

	tasks := []models.Task{}

	err := b.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("deadline ASC").
		Order("id ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, apperrors.Internal("load upcoming tasks", err)
	}

	return tasks, nil
}

type CreateTaskInput struct {
	ProjectID   uint    `json:"project_id" validate:"required"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Deadline    string  `json:"deadline" validate:"required,datetime=2006-01-02"`
}

func (b *TaskBoard) CreateTask(ctx context.Context, principal *types.Principal, input CreateTaskInput) (*models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Deadline = strings.TrimSpace(input.Deadline)

	fields := validateFields(input)

	status := taskstatus.Initial
	var cause error

	if input.Status != "" {
		parsed, err := taskstatus.Parse(input.Status)
		if err != nil {
			fields = addField(fields, "status", "must be one of: pending in_progress done")
			cause = apperrors.ErrInvalidStatus
		} else {
			status = parsed
		}
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationWithCause(fields, cause)
	}

	deadline, err := models.ParseDate(input.Deadline)
	if err != nil {
		return nil, apperrors.Validation("deadline", "must be a date formatted as "+models.DateLayout)
	}

	project, err := b.access.authorizeProject(ctx, principal, input.ProjectID)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		ProjectID:   project.ID,
		Title:       input.Title,
		Description: normalizeDescription(input.Description),
		Status:      status,
		Deadline:    deadline,
	}

	if err := b.db.WithContext(ctx).Omit("Project").Create(&task).Error; err != nil {
		return nil, apperrors.Internal("create task", err)
	}

	task.Project = *project

	logging.Logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"project_id": project.ID,
		"user_id":    principal.ID,
	}).Info("task created")

	return &task, nil
}

// TaskPatch holds the fields an update touches; nil means untouched.
type TaskPatch struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Deadline    *string `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateTask applies patch. A status change goes through taskstatus.Transition
// like any other status write.
func (b *TaskBoard) UpdateTask(ctx context.Context, principal *types.Principal, taskID uint, patch TaskPatch) (*models.Task, error) {
	task, err := b.authorizeTask(ctx, principal, taskID)
	if err != nil {
		return nil, err
	}

	fields := validateFields(patch)
	updates := map[string]interface{}{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			fields = addField(fields, "title", "is required")
		}
		updates["title"] = title
	}

	if patch.Description != nil {
		updates["description"] = normalizeDescription(patch.Description)
	}

	if patch.Deadline != nil && fields["deadline"] == "" {
		deadline, err := models.ParseDate(strings.TrimSpace(*patch.Deadline))
		if err != nil {
			fields = addField(fields, "deadline", "must be a date formatted as "+models.DateLayout)
		} else {
			updates["deadline"] = deadline
		}
	}

	var cause error

	if patch.Status != nil {
		changed, err := taskstatus.Transition(task, *patch.Status)
		if err != nil {
			fields = addField(fields, "status", "must be one of: pending in_progress done")
			cause = apperrors.ErrInvalidStatus
		} else if changed {
			updates["status"] = task.Status
		}
	}

	if len(fields) > 0 {
		return nil, apperrors.ValidationWithCause(fields, cause)
	}

	if len(updates) == 0 {
		return task, nil
	}

	result := b.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", task.ID).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Internal("update task", result.Error)
	}

	return b.reload(ctx, task)
}

// TransitionStatus moves a task to status and returns it together with the
// recomputed board of its project.
func (b *TaskBoard) TransitionStatus(ctx context.Context, principal *types.Principal, taskID uint, status string) (*models.Task, *BoardView, error) {
	task, err := b.authorizeTask(ctx, principal, taskID)
	if err != nil {
		return nil, nil, err
	}

	changed, err := taskstatus.Transition(task, status)
	if err != nil {
		return nil, nil, err
	}

	if changed {
		result := b.db.WithContext(ctx).
			Model(&models.Task{}).
			Where("id = ?", task.ID).
			Update("status", task.Status)
		if result.Error != nil {
			return nil, nil, apperrors.Internal("update task status", result.Error)
		}

		logging.Logger.WithFields(logrus.Fields{
			"task_id": task.ID,
			"status":  task.Status,
			"user_id": principal.ID,
		}).Info("task status changed")
	}

	view, err := b.load(ctx, &task.Project)
	if err != nil {
		return nil, nil, err
	}

	return task, view, nil
}

func (b *TaskBoard) DeleteTask(ctx context.Context, principal *types.Principal, taskID uint) error {
	task, err := b.authorizeTask(ctx, principal, taskID)
	if err != nil {
		return err
	}

	result := b.db.WithContext(ctx).Delete(&models.Task{}, task.ID)
	if result.Error != nil {
		return apperrors.Internal("delete task", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// authorizeTask loads a task the principal may act on. Missing and forbidden
// tasks are both reported as not found.
func (b *TaskBoard) authorizeTask(ctx context.Context, principal *types.Principal, taskID uint) (*models.Task, error) {
	if principal == nil {
		return nil, apperrors.ErrAccessDenied
	}

	var task models.Task

	err := b.db.WithContext(ctx).
		Preload("Project").
		First(&task, taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Internal("load task", err)
	}

	ok, err := b.access.CanAccess(ctx, principal, &task.Project)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &task, nil
}

func (b *TaskBoard) reload(ctx context.Context, task *models.Task) (*models.Task, error) {
	var fresh models.Task

	err := b.db.WithContext(ctx).First(&fresh, task.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Internal("reload task", err)
	}

	fresh.Project = task.Project
	return &fresh, nil
}

func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}

	return &trimmed
}
