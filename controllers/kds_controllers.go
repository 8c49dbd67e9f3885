package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Roles that may watch the kitchen/staff stream.
var kdsRoles = map[models.EmployeeRole]bool{
	models.RoleAdmin:   true,
	models.RoleManager: true,
	models.RoleChef:    true,
	models.RoleCashier: true,
	models.RoleWaiter:  true,
}

// KDSHandler -> endpoint WebSocket
func KDSHandler(c *gin.Context) {
	roleValue, exists := c.Get(middlewares.ContextRole)
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role, _ := roleValue.(string)
	if !kdsRoles[models.EmployeeRole(role)] {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	kds.RegisterClient(ws, role)
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	kds.UnregisterClient(ws)
}
