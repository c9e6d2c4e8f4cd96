package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jonachoGonz/WellnessCenterBack/internal/config"
	"github.com/jonachoGonz/WellnessCenterBack/internal/handlers"
	"github.com/jonachoGonz/WellnessCenterBack/internal/middleware"
	"github.com/jonachoGonz/WellnessCenterBack/internal/models"
	"github.com/jonachoGonz/WellnessCenterBack/internal/repository"
	"github.com/jonachoGonz/WellnessCenterBack/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, log *zap.Logger) {
	userRepo := repository.NewUserRepository(db)
	professionalRepo := repository.NewProfessionalRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	blackoutRepo := repository.NewBlackoutRepository(db)

	quotaService := services.NewQuotaService(db, quotaRepo, userRepo, log)
	blackoutService := services.NewBlackoutService(blackoutRepo, log)
	schedulingService := services.NewSchedulingService(db, appointmentRepo, quotaRepo, professionalRepo, blackoutService, log)
	appointmentService := services.NewAppointmentService(appointmentRepo)

	authHandler := handlers.NewAuthHandler(db, userRepo, professionalRepo, cfg.JWTSecret)
	appointmentHandler := handlers.NewAppointmentHandler(schedulingService, appointmentService)
	quotaHandler := handlers.NewQuotaHandler(quotaService)
	blackoutHandler := handlers.NewBlackoutHandler(blackoutService)
	professionalHandler := handlers.NewProfessionalHandler(professionalRepo)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	professionals := authProtected.Group("/professionals")
	professionals.Get("", professionalHandler.List)
	professionals.Put("/profile", professionalHandler.UpdateProfile)
	professionals.Get("/:id", professionalHandler.Get)

	appointments := authProtected.Group("/appointments")
	appointments.Post("", appointmentHandler.Book)
	appointments.Get("", appointmentHandler.List)
	appointments.Get("/:id", appointmentHandler.Get)
	appointments.Put("/:id/status", appointmentHandler.UpdateStatus)
	appointments.Post("/:id/evaluation", appointmentHandler.RecordEvaluation)

	authProtected.Get("/quota", quotaHandler.GetMyQuota)

	authProtected.Get("/policies", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"reminder_lead_minutes": cfg.ReminderLeadMinutes,
		})
	})

	admin := authProtected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.Post("/plans", quotaHandler.AssignPlan)
	admin.Get("/students/:id/quota", quotaHandler.GetStudentQuota)
	admin.Post("/students/deactivate", quotaHandler.BulkDeactivate)
	admin.Post("/blackouts", blackoutHandler.Create)
	admin.Get("/blackouts", blackoutHandler.List)
	admin.Delete("/blackouts/:id", blackoutHandler.Deactivate)
}
