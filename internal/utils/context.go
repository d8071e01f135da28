package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tehokas/taskdeck/internal/auth"
	"github.com/tehokas/taskdeck/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (*types.Principal, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return nil, fmt.Errorf("User not authenticated")
	}

	principal, ok := user.(*types.Principal)

	if !ok || principal == nil {
		return nil, fmt.Errorf("Invalid user type in context")
	}

	return principal, nil
}

func GetTokenClaims(ctx *gin.Context) (*auth.Claims, bool) {
	value, exists := ctx.Get(types.ContextClaimsKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*auth.Claims)
	return claims, ok && claims != nil
}

// ParseIDParam reads a positive numeric path parameter such as project_id.
func ParseIDParam(ctx *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return uint(value), nil
}

// QueryInt reads an integer query parameter, falling back when it is absent
// or malformed.
func QueryInt(ctx *gin.Context, name string, fallback int) int {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
