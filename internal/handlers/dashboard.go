package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/types"
)

func (h *Handler) Dashboard(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	view, err := h.services.Dashboard.ForPrincipal(ctx.Request.Context(), principal)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if view.Admin != nil {
		ctx.JSON(http.StatusOK, gin.H{
			"role":            types.RoleAdmin,
			"projects":        view.Admin.Projects,
			"members":         view.Admin.Members,
			"tasks":           view.Admin.Tasks,
			"recent_projects": view.Admin.RecentProjects,
		})
		return
	}

	var active gin.H
	if summary := view.Member.ActiveProject; summary != nil {
		active = gin.H{
			"id":       summary.ID,
			"name":     summary.Name,
			"status":   summary.Status,
			"progress": summary.Progress,
			"stats":    summary.Stats,
			"my_tasks": toTaskResponses(summary.MyTasks),
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"role":                types.RoleMember,
		"active_project":      active,
		"accessible_projects": view.Member.AccessibleProjects,
	})
}
