package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/types"
	"github.com/tehokas/taskdeck/internal/utils"
)

func (h *Handler) AccessibleProjects(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	page, err := h.services.Access.AccessibleProjects(
		ctx.Request.Context(),
		principal,
		utils.QueryInt(ctx, "page", 1),
		utils.QueryInt(ctx, "page_size", types.DefaultPageSize),
		ctx.Query("search"),
	)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

type SetActiveProjectRequest struct {
	ProjectID *uint `json:"project_id"`
}

// SetActiveProject selects the caller's active project; a null project_id
// clears it.
func (h *Handler) SetActiveProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body SetActiveProjectRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	if err := h.services.Active.SetActive(ctx.Request.Context(), principal, body.ProjectID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetActiveProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	project, err := h.services.Active.GetActive(ctx.Request.Context(), principal)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"active_project": toProjectResponse(project)})
}

func (h *Handler) ActiveBoard(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := h.services.Board.ForActiveProject(ctx.Request.Context(), principal)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toBoardResponse(view))
}

func (h *Handler) ProjectBoard(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	view, err := h.services.Board.ForProject(ctx.Request.Context(), principal, projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toBoardResponse(view))
}

func (h *Handler) MyTasks(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	limit := utils.QueryInt(ctx, "limit", types.DefaultMyTaskLimit)

	tasks, err := h.services.Board.MyTasks(ctx.Request.Context(), principal, projectID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": toTaskResponses(tasks)})
}
