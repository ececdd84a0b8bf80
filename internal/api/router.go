package api

import (
	"errors"

	"finboard/docs"
	"finboard/internal/api/handlers"
	"finboard/pkg/auth"
	"finboard/pkg/config"
	"finboard/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	txHandler *handlers.TransactionHandler,
	dashboardHandler *handlers.DashboardHandler,
	categoryHandler *handlers.CategoryHandler,
	jwtManager *auth.JWTManager,
	serverCfg *config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "finboard",
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error",
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Importing docs registers the swagger document via init().
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	v1.Get("/categories", categoryHandler.ListCategories)

	protected := v1.Group("", middleware.AuthMiddleware(jwtManager, appLogger))
	protected.Get("/dashboard", dashboardHandler.GetDashboard)

	transactions := protected.Group("/transactions")
	transactions.Get("", txHandler.ListTransactions)
	transactions.Post("", txHandler.CreateTransaction)
	transactions.Get("/:id", txHandler.GetTransaction)
	transactions.Put("/:id", txHandler.UpdateTransaction)
	transactions.Delete("/:id", txHandler.DeleteTransaction)

	return app
}
