package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/config"
	"github.com/pawansuthar01/Qresto-sub000/middlewares"
	"github.com/pawansuthar01/Qresto-sub000/models"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/router"
	"github.com/pawansuthar01/Qresto-sub000/services"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()

	// Initialize DB
	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	// Set gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// Realtime hub + session sweeper
	hub := realtime.NewHub()
	coordinator := services.NewOccupancyCoordinator(db, hub, services.RoleGate{})

	idleMinutes := 30
	if v := os.Getenv("SESSION_IDLE_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			idleMinutes = parsed
		}
	}
	sweeper := services.NewSessionSweeper(coordinator, time.Duration(idleMinutes)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	// Setup rate limiter (50 requests per second per IP)
	rateLimiter := middlewares.NewRateLimiter(50, 1)

	// Setup router
	r := router.SetupRouter(db, hub)
	r.Use(rateLimiter.RateLimit())

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
		&models.User{},
		&models.Table{},
		&models.TableSession{},
		&models.GuestSession{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
}
