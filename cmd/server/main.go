package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"sokoni-backend/internal/audit"
	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/business"
	"sokoni-backend/internal/catalog"
	"sokoni-backend/internal/config"
	"sokoni-backend/internal/dashboard"
	"sokoni-backend/internal/database"
	"sokoni-backend/internal/favorite"
	"sokoni-backend/internal/message"
	"sokoni-backend/internal/models"
	"sokoni-backend/internal/notification"
	"sokoni-backend/internal/order"
	"sokoni-backend/internal/product"
	"sokoni-backend/internal/review"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		logrus.Fatalf("could not connect to database: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // menu item image uploads
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logrus.WithError(err).Error("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	// Uploaded menu item images
	app.Static("/uploads", cfg.UploadPath)

	api := app.Group("/api")

	// Public
	api.Post("/auth/signup", auth.SignupHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))
	api.Get("/business/:username", business.GetBusinessHandler(db))
	api.Get("/business/:username/reviews", review.ListReviewsHandler(db))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/me", auth.MeHandler(db))
	protected.Get("/user-data", dashboard.UserDataHandler(db))

	// Business registration & management
	protected.Post("/business/register", business.RegisterHandler(db, cfg))
	protected.Put("/business/:id", business.UpdateBusinessHandler(db))
	protected.Patch("/business/:id/open", business.ToggleOpenHandler(db))

	// Menu management (sellers)
	seller := protected.Group("")
	seller.Use(auth.RequireRole(models.RoleSeller))

	seller.Post("/product/:businessID/add-product", product.CreateProductHandler(db, cfg))
	seller.Put("/product/:businessID/add-edit-product/:productID", product.EditProductHandler(db, cfg))
	seller.Get("/product/:businessID", product.ListProductsHandler(db))
	seller.Delete("/product/:businessID/:productID", product.DeleteProductHandler(db, cfg))

	// Catalog import/export
	seller.Get("/catalog/:businessID/export", catalog.ExportHandler(db))
	seller.Post("/catalog/:businessID/import", catalog.ImportHandler(db))

	// Orders
	protected.Post("/orders", order.PlaceOrderHandler(db))
	protected.Get("/orders", order.ListMyOrdersHandler(db))
	seller.Get("/dashboard/:businessID/orders", order.ListBusinessOrdersHandler(db))
	seller.Patch("/dashboard/:businessID/orders", order.UpdateOrderStatusHandler(db))

	// Reviews
	protected.Post("/reviews", review.CreateReviewHandler(db))
	protected.Post("/reviews/:id/reply", review.ReplyHandler(db))

	// Favorites
	protected.Post("/favorites/:businessID", favorite.ToggleFavoriteHandler(db))
	protected.Get("/favorites", favorite.ListFavoritesHandler(db))

	// Notifications
	protected.Get("/notifications", notification.ListNotificationsHandler(db))
	protected.Patch("/notifications/:id/read", notification.MarkReadHandler(db))

	// Messages
	protected.Post("/messages", message.SendMessageHandler(db))
	protected.Get("/messages/:businessID", message.ConversationHandler(db))

	// Audit logs
	seller.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	logrus.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.Fatal(err)
	}
}
