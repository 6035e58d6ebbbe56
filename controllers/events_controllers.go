package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pay/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// TableEventsHandler -> websocket endpoint for live payment events on one
// table. The websocket middleware has already validated the access token
// and put the table id into the context.
func TableEventsHandler(c *gin.Context) {
	tableIDValue, exists := c.Get("table_id")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	tableID := tableIDValue.(uint)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	events.RegisterClient(ws, tableID)

	// Drain until disconnect; viewers only listen.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	events.UnregisterClient(ws)
}
