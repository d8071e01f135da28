package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/middleware"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
	"github.com/tehokas/taskdeck/internal/utils"
)

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) LoginUser(ctx *gin.Context) {
	var body LoginUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx)
		return
	}

	principal, err := h.services.Accounts.Authenticate(ctx.Request.Context(), strings.TrimSpace(body.Email), body.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or password"})
			return
		}
		respondError(ctx, err)
		return
	}

	token, claims, err := h.tokens.Generate(principal)
	if err != nil {
		respondError(ctx, err)
		return
	}

	h.setTokenCookie(ctx, token, int(time.Until(claims.ExpiresAt.Time).Seconds()))

	logging.Logger.WithField("user_id", principal.ID).Info("user logged in")

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(principal),
	})
}

func (h *Handler) Me(ctx *gin.Context) {
	principal, ok := currentUser(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": userResponse(principal)})
}

// LogoutUser revokes the presented token until it expires and drops the
// cookie.
func (h *Handler) LogoutUser(ctx *gin.Context) {
	if claims, ok := utils.GetTokenClaims(ctx); ok && claims.ExpiresAt != nil {
		if err := h.revocations.Revoke(ctx.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			respondError(ctx, err)
			return
		}
	}

	h.setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) setTokenCookie(ctx *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.cookie.Secure {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func userResponse(principal *types.Principal) types.UserResponse {
	return types.UserResponse{
		ID:    principal.ID,
		Name:  principal.Name,
		Email: principal.Email,
		Role:  principal.Role,
	}
}
