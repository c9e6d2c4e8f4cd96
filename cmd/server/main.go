package main

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jonachoGonz/WellnessCenterBack/internal/config"
	"github.com/jonachoGonz/WellnessCenterBack/internal/database"
	"github.com/jonachoGonz/WellnessCenterBack/internal/logger"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"github.com/jonachoGonz/WellnessCenterBack/internal/routes"
	"github.com/jonachoGonz/WellnessCenterBack/pkg/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.DBUrl == "" {
		zapLogger.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB()
	zapLogger.Info("Connected to PostgreSQL")

	if err := bootstrapAdmin(cfg); err != nil {
		zapLogger.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}

	app := fiber.New()

	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	routes.RegisterRoutes(app, cfg, database.DB, zapLogger)

	zapLogger.Info("Server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zapLogger.Fatal("Server failed to start", zap.Error(err))
	}
}

// bootstrapAdmin creates the configured admin account on first boot.
// A no-op when the env vars are unset or the account already exists.
func bootstrapAdmin(cfg *config.Config) error {
	if cfg.DefaultAdminEmail == "" || cfg.DefaultAdminPassword == "" {
		return nil
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(database.DB)

	_, err := userRepo.GetByEmail(ctx, cfg.DefaultAdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hashed, err := utils.HashPassword(cfg.DefaultAdminPassword)
	if err != nil {
		return err
	}

	fullName := "Administrator"
	admin := &models.User{
		Email:        cfg.DefaultAdminEmail,
		PasswordHash: hashed,
		FullName:     &fullName,
		Role:         models.RoleAdmin,
	}
	return userRepo.CreateUser(ctx, admin)
}
