package middlewares

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// TableAccessMiddleware gates the events websocket with the table's guest
// access token. The token is bound to one table; a rotated-out token stops
// working immediately.
func TableAccessMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseTableToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		tableID, err := strconv.ParseUint(c.Param("table_id"), 10, 32)
		if err != nil || claims.TableID != uint(tableID) {
			c.AbortWithStatus(403)
			return
		}

		// The in-memory blacklist does not survive a restart; the stored
		// token is the durable source of truth after a rotation.
		if db := utils.GetDB(); db != nil {
			var table models.Table
			if err := db.First(&table, claims.TableID).Error; err != nil {
				c.AbortWithStatus(403)
				return
			}
			if table.AccessToken != "" && table.AccessToken != token {
				c.AbortWithStatus(401)
				return
			}
		}

		c.Set("table_id", claims.TableID)
		c.Next()
	}
}
