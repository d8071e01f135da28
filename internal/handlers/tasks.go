package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/services"
)

func (h *Handler) CreateTask(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body services.CreateTaskInput
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	task, err := h.services.Board.CreateTask(ctx.Request.Context(), principal, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"task": toTaskResponse(*task)})
}

func (h *Handler) UpdateTask(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	taskID, ok := idParam(ctx, "task_id")
	if !ok {
		return
	}

	var body services.TaskPatch
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	task, err := h.services.Board.UpdateTask(ctx.Request.Context(), principal, taskID, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"task": toTaskResponse(*task)})
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionTask moves a task across columns and answers with the board
// totals after the move.
func (h *Handler) TransitionTask(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	taskID, ok := idParam(ctx, "task_id")
	if !ok {
		return
	}

	var body TransitionRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	task, view, err := h.services.Board.TransitionStatus(ctx.Request.Context(), principal, taskID, body.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"task":     toTaskResponse(*task),
		"stats":    view.Stats,
		"progress": view.Progress,
	})
}

func (h *Handler) DeleteTask(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	taskID, ok := idParam(ctx, "task_id")
	if !ok {
		return
	}

	if err := h.services.Board.DeleteTask(ctx.Request.Context(), principal, taskID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
