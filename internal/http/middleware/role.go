package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userRoleKey = "user_role"

// RequireRoles allows only callers whose token role is one of allowedRoles.
// It must run after RequireAuth.
//
//	r.PUT("/trips/:id/status", RequireAuth(secret), RequireRoles("operator", "admin"), handler)
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(c.GetString(userRoleKey)))
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "token carries no role",
				"code":       "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "role is not allowed",
				"code":       "forbidden",
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
