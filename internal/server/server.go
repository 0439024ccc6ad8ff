package server

import (
	"time"

	"blog/internal/config"
	"blog/internal/handlers"
	"blog/internal/middleware"
	"blog/internal/repositories"
	"blog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewApp builds the Fiber application with every route registered. events
// may be nil, in which case no domain events are published.
func NewApp(cfg config.Config, db *gorm.DB, events services.EventPublisher, log *logrus.Logger) (*fiber.App, *services.AuthService) {
	userRepo := repositories.NewGORMUserRepository(db)
	tokenRepo := repositories.NewGORMTokenRepository(db)
	postRepo := repositories.NewGORMPostRepository(db)

	authService := services.NewAuthService(userRepo, tokenRepo, events, services.AuthConfig{
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	})
	userService := services.NewUserService(userRepo, authService)
	postService := services.NewPostService(postRepo, events)

	userHandler := handlers.NewUserHandler(authService, userService)
	postHandler := handlers.NewPostHandler(authService, postService)

	app := fiber.New(fiber.Config{
		AppName:      "blog",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		body := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "connected",
			"rabbitmq": "disabled",
		}
		if events != nil {
			body["rabbitmq"] = "connected"
		}
		if err := ping(c, db); err != nil {
			log.WithError(err).Warn("health check: database unreachable")
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
		}
		return c.Status(status).JSON(body)
	})

	api := app.Group("/api")
	userHandler.RegisterRoutes(api)
	postHandler.RegisterRoutes(api)

	return app, authService
}

func ping(c *fiber.Ctx, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(c.UserContext())
}
