package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"habit-quest-system/handlers"
	"habit-quest-system/middleware"
	"habit-quest-system/models"
	"habit-quest-system/services"
	"habit-quest-system/utils"
	"habit-quest-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // boss artwork uploads
	})

	// Only Gateway requests are allowed — no exceptions.
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-Username, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserBadge{},
		&models.Boss{},
		&models.CombatProgress{},
		&models.FightSession{},
		&models.Task{},
		&models.Habit{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	statsHub := services.NewStatsHub()
	userService := services.NewUserService(db, statsHub)
	catalogService := services.NewBossCatalogService(db)
	combatService := services.NewCombatService(db, userService, catalogService, statsHub)
	taskService := services.NewTaskService(db)
	habitService := services.NewHabitService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reaper := workers.NewFightSessionReaper(db, 15*time.Minute)
	go workers.PollStaleSessions(ctx, reaper, time.Minute)

	catalogService.StartPublishScheduler()

	handlers.SetupBossRoutes(app, combatService, catalogService)
	handlers.SetupUserRoutes(app, userService, statsHub)
	handlers.SetupQuestRoutes(app, taskService, habitService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Boss publish scheduler running (every 1m)")
	log.Println("✅ Fight session reaper running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
