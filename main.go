package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/config"
	"github.com/yeremiapane/restaurant-pay/database"
	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/router"
	"github.com/yeremiapane/restaurant-pay/services"
	"github.com/yeremiapane/restaurant-pay/utils"
)

func init() {
	// Load .env di awal sebelum apapun
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	// Initialize logger
	utils.InfoLogger = logrus.New()
	utils.ErrorLogger = logrus.New()

	utils.InfoLogger.SetOutput(os.Stdout)
	utils.ErrorLogger.SetOutput(os.Stderr)

	utils.InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	utils.ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

func main() {
	// Initialize DB
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	// Simpan koneksi database ke utils untuk digunakan di controller
	utils.InitDB(db)

	// Set gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// Reconciliation monitor: metrics + operator alert queue
	monitor := services.NewReconciliationMonitor(db)
	monitor.Start()
	defer monitor.Stop()

	notifier := services.NewNotifierService(db, monitor)

	// Safety net untuk bill yang stuck (shares cover total, flag stale)
	billMonitor := services.NewBillMonitor(db, notifier)
	billMonitor.Start()
	defer billMonitor.Stop()

	// Periodic cleanup of rotated-out table tokens
	go func() {
		for {
			time.Sleep(1 * time.Hour)
			utils.CleanupRevokedTokens()
		}
	}()

	gateway := services.NewMercadoPagoServiceFromEnv()

	// Setup router
	r := router.SetupRouter(db, gateway, monitor)

	// Set trusted proxies
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	// Run server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	utils.InfoLogger.Printf("Listening on port %s", port)
	if err := r.Run(":" + port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.Table{},
		&models.Bill{},
		&models.Payment{},
		&models.BillShare{},
		&models.ReconciliationAlert{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if err := database.ApplySchemaExtras(db); err != nil {
		utils.ErrorLogger.Fatalf("Error applying schema extras: %v", err)
	}
}
