package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/apperrors"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/models"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
	"github.com/tehokas/taskdeck/internal/utils"
)

type CookieSettings struct {
	Domain string
	Secure bool
}

// Handler serves the JSON API on top of the domain services.
type Handler struct {
	services    *services.Services
	tokens      *auth.Manager
	revocations auth.RevocationStore
	cookie      CookieSettings
	ping        func(context.Context) error
}

func New(svc *services.Services, tokens *auth.Manager, revocations auth.RevocationStore, cookie CookieSettings, ping func(context.Context) error) *Handler {
	return &Handler{
		services:    svc,
		tokens:      tokens,
		revocations: revocations,
		cookie:      cookie,
		ping:        ping,
	}
}

// respondError maps a service error onto its HTTP status. Internal failures
// are logged and reported, and the client only sees a generic message.
func respondError(ctx *gin.Context, err error) {
	var validation *apperrors.ValidationError

	switch {
	case errors.As(err, &validation):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Validation failed",
			"fields": validation.Fields,
		})
	case errors.Is(err, apperrors.ErrAccessDenied):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, apperrors.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		logging.LogError(err, "internal", map[string]interface{}{
			"request_id": ctx.GetString(types.ContextRequestIDKey),
			"method":     ctx.Request.Method,
			"path":       ctx.FullPath(),
		})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(ctx *gin.Context) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}

// currentUser fetches the principal or writes a 401.
func currentUser(ctx *gin.Context) (*types.Principal, bool) {
	principal, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	return principal, true
}

func idParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := utils.ParseIDParam(ctx, name)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

type TaskResponse struct {
	ID          uint      `json:"id"`
	ProjectID   uint      `json:"project_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	Deadline    string    `json:"deadline"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(task models.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status.String(),
		Deadline:    task.DeadlineString(),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func toTaskResponses(tasks []models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task))
	}
	return out
}

type ProjectResponse struct {
	ID        uint                  `json:"id"`
	Name      string                `json:"name"`
	Status    string                `json:"status"`
	CreatedBy uint                  `json:"created_by"`
	Creator   *services.UserSummary `json:"creator"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func toProjectResponse(project *models.Project) *ProjectResponse {
	if project == nil {
		return nil
	}

	resp := &ProjectResponse{
		ID:        project.ID,
		Name:      project.Name,
		Status:    project.Status,
		CreatedBy: project.CreatedBy,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	}

	if project.Creator.ID != 0 {
		resp.Creator = &services.UserSummary{ID: project.Creator.ID, Name: project.Creator.Name}
	}

	return resp
}

type TasksByStatus struct {
	Pending    []TaskResponse `json:"pending"`
	InProgress []TaskResponse `json:"in_progress"`
	Done       []TaskResponse `json:"done"`
}

type BoardResponse struct {
	Project       *ProjectResponse `json:"project"`
	TasksByStatus TasksByStatus    `json:"tasks_by_status"`
	Stats         services.Stats   `json:"stats"`
	Progress      int              `json:"progress"`
}

func toBoardResponse(view *services.BoardView) BoardResponse {
	return BoardResponse{
		Project: toProjectResponse(view.Project),
		TasksByStatus: TasksByStatus{
			Pending:    toTaskResponses(view.Pending),
			InProgress: toTaskResponses(view.InProgress),
			Done:       toTaskResponses(view.Done),
		},
		Stats:    view.Stats,
		Progress: view.Progress,
	}
}
