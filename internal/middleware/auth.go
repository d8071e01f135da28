package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/logging"
	"github.com/tehokas/taskdeck/internal/services"
	"github.com/tehokas/taskdeck/internal/types"
)

const TokenCookieName = "token"

// AuthMiddleware resolves the caller from a Bearer header or the session
// cookie and stores the reloaded principal on the context.
func AuthMiddleware(tokens *auth.Manager, revocations auth.RevocationStore, accounts *services.Accounts) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := tokenFrom(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		revoked, err := revocations.IsRevoked(ctx.Request.Context(), claims.ID)
		if err != nil || revoked {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		principal, err := accounts.Principal(ctx.Request.Context(), claims.UserID)
		if err != nil {
			logging.Logger.WithError(err).Error("failed to load authenticated user")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if principal == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, principal)
		ctx.Set(types.ContextClaimsKey, claims)
		ctx.Next()
	}
}

func tokenFrom(ctx *gin.Context) (string, bool) {
	if header := ctx.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	cookie, err := ctx.Cookie(TokenCookieName)
	if err != nil || cookie == "" {
		return "", false
	}
	return cookie, true
}
