package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/config"
	"github.com/landfund/impactportal/utils"
)

// AdminRequired restricts a route group to the configured admin usernames.
// Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		unameVal, exists := ctx.Get(ContextUsernameKey)
		uname, ok := unameVal.(string)
		if !exists || !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		for _, admin := range config.Get().AdminUsernames {
			if admin == uname {
				ctx.Next()
				return
			}
		}
		utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
		ctx.Abort()
	}
}
