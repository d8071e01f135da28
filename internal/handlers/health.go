package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/logging"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	status, code := "ok", http.StatusOK

	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			logging.Logger.WithError(err).Warn("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"message":   "TaskDeck is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
