package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/config"
	"github.com/landfund/impactportal/middleware"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, ok := unameVal.(string)
	if !ok {
		return false
	}
	for _, admin := range config.Get().AdminUsernames {
		if admin == uname {
			return true
		}
	}
	return false
}

// respondServiceError maps the engine's failure taxonomy onto the API
// envelope. The three user-facing outcomes the UI translates (already
// completed, insufficient balance, action unavailable) get distinct codes;
// everything else is a generic retryable failure.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, services.ErrActionNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "action unavailable")
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.Error(ctx, http.StatusBadRequest, 40020, "insufficient balance")
	case errors.Is(err, services.ErrInvalidTransition):
		utils.Error(ctx, http.StatusConflict, 40910, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40920, "already completed")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50010, "temporary failure, please retry")
	}
}
