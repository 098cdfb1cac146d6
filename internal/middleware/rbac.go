package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/simulacro-api/internal/models"
	appErrors "github.com/noah-isme/simulacro-api/pkg/errors"
	"github.com/noah-isme/simulacro-api/pkg/response"
)

// RequireRoles only lets the listed roles through.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return authorize("", roles)
}

// RequireRolesOrSelf lets the listed roles through, and any caller whose user
// id equals the path parameter.
func RequireRolesOrSelf(param string, roles ...models.UserRole) gin.HandlerFunc {
	return authorize(param, roles)
}

func authorize(selfParam string, roles []models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if selfParam != "" {
			if target := c.Param(selfParam); target != "" && target == claims.UserID {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
