package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
	"github.com/tehokas/taskdeck/internal/utils"
)

func (h *Handler) ListUsers(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	page, err := h.services.Users.List(
		ctx.Request.Context(),
		principal,
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

func (h *Handler) CreateUser(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body services.CreateUserInput
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	user, err := h.services.Users.Create(ctx.Request.Context(), principal, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, ok := idParam(ctx, "user_id")
	if !ok {
		return
	}

	var body services.UserPatch
	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	user, err := h.services.Users.Update(ctx.Request.Context(), principal, userID, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	userID, ok := idParam(ctx, "user_id")
	if !ok {
		return
	}

	if err := h.services.Users.Delete(ctx.Request.Context(), principal, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
