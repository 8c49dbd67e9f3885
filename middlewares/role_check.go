package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// RequireRoles lets the request through when the authenticated role is one
// of roles. Admin is always allowed.
func RequireRoles(roles ...models.EmployeeRole) gin.HandlerFunc {
	allowed := map[string]bool{string(models.RoleAdmin): true}
	for _, r := range roles {
		allowed[string(r)] = true
	}

	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		if !allowed[role] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("role %s may not access this resource", role))
			c.Abort()
			return
		}

		c.Next()
	}
}
