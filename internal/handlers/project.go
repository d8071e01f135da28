package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
	"github.com/tehokas/taskdeck/internal/utils"
)

func (h *Handler) ListProjects(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	page, err := h.services.Projects.List(ctx.Request.Context(), principal, services.ProjectFilter{
		Search:  ctx.Query("search"),
		Status:  ctx.Query("status"),
		Page:    utils.QueryInt(ctx, "page", 1),
		PerPage: utils.QueryInt(ctx, "per_page", 0),
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

func (h *Handler) CreateProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body services.ProjectInput
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	project, err := h.services.Projects.Create(ctx.Request.Context(), principal, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"project": toProjectResponse(project)})
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	var body services.ProjectPatch
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	project, err := h.services.Projects.Update(ctx.Request.Context(), principal, projectID, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"project": toProjectResponse(project)})
}

func (h *Handler) FinishProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	project, err := h.services.Projects.Finish(ctx.Request.Context(), principal, projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"project": toProjectResponse(project)})
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	if err := h.services.Projects.Delete(ctx.Request.Context(), principal, projectID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (h *Handler) ProjectMembers(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	members, err := h.services.Projects.Members(ctx.Request.Context(), principal, projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *Handler) AvailableUsers(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	page, err := h.services.Projects.AvailableUsers(
		ctx.Request.Context(),
		principal,
		projectID,
		ctx.Query("search"),
		utils.QueryInt(ctx, "page", 1),
		utils.QueryInt(ctx, "per_page", types.DefaultPageSize),
	)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, page)
}

type AddMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (h *Handler) AddProjectMember(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	var body AddMemberRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	count, err := h.services.Projects.AddMember(ctx.Request.Context(), principal, projectID, body.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members_count": count})
}

func (h *Handler) RemoveProjectMember(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	projectID, ok := idParam(ctx, "project_id")
	if !ok {
		return
	}

	userID, ok := idParam(ctx, "user_id")
	if !ok {
		return
	}

	count, err := h.services.Projects.RemoveMember(ctx.Request.Context(), principal, projectID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members_count": count})
}
