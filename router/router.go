package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/controllers"
	"github.com/yeremiapane/restaurant-pay/middlewares"
	"github.com/yeremiapane/restaurant-pay/services"
)

func SetupRouter(db *gorm.DB, gateway controllers.ChargeCreator, monitor *services.ReconciliationMonitor) *gin.Engine {
	r := gin.Default()

	// Apply security middlewares. The global limiter must be registered
	// before any route or gin never runs it.
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	// Inisialisasi services dan controllers
	reconciler := services.NewReconcilerService(db, monitor)
	notifier := services.NewNotifierService(db, monitor)
	paymentCtrl := controllers.NewPaymentController(db, gateway, reconciler, notifier, monitor)
	billCtrl := controllers.NewBillController(db, monitor)

	// Card submissions get a tighter per-IP limit than the rest of the API.
	paymentLimiter := middlewares.NewPaymentRateLimiter(10, 3)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	{
		api.POST("/process_payment", paymentLimiter.RateLimit(), paymentCtrl.ProcessPayment)
		api.POST("/bills", billCtrl.CreateBill)
		api.GET("/bills/:bill_id", billCtrl.GetBillByID)
		api.GET("/alerts", billCtrl.GetAlerts)
	}

	// Realtime payment events per table, gated by the QR access token
	r.GET("/ws/tables/:table_id", middlewares.TableAccessMiddleware(), controllers.TableEventsHandler)

	return r
}
