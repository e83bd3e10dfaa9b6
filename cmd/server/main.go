package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deshiwallet/backend/internal/config"
	"github.com/deshiwallet/backend/internal/database"
	"github.com/deshiwallet/backend/internal/handlers"
	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/internal/storage"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	utils.ConfigureEncryption(cfg.JWT.Secret)

	db, err := database.Connect(cfg.DB, cfg.Admin)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	auditService := services.NewAuditService(db)
	expiryNotifier := services.NewExpiryNotifier(db, cfg.Vault.ExpirySoonDays)
	revealService := services.NewRevealService(cfg.Vault.RevealWindow)
	pinLockService := services.NewPinLockService(cfg.Vault.PinClearDelay, cfg.Vault.SessionLockMaxIdle)
	stopPinCleanup := pinLockService.StartCleanup(time.Hour)

	authHandler := handlers.NewAuthHandler(db, auditService, pinLockService, cfg.Admin)
	cardHandler := handlers.NewCardHandler(db, auditService, revealService, expiryNotifier)
	documentHandler := handlers.NewDocumentHandler(db, storageClient, auditService)
	notificationHandler := handlers.NewNotificationHandler(db)
	verificationHandler := handlers.NewVerificationHandler(db, auditService)
	deletionHandler := handlers.NewDeletionRequestHandler(db, storageClient, auditService)
	feedbackHandler := handlers.NewFeedbackHandler(db, auditService)
	designHandler := handlers.NewDesignHandler(db)
	configHandler := handlers.NewSystemConfigHandler(db, auditService)
	dashboardHandler := handlers.NewDashboardHandler(db, auditService)
	privacyHandler := handlers.NewPrivacyHandler(db, auditService)

	authMiddleware := middleware.NewAuthMiddleware(db, pinLockService)

	app := fiber.New(fiber.Config{BodyLimit: 25 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	api.Get("/version", configHandler.Version)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)
	authRoutes.Put("/pin", authMiddleware.RequireAuth, authHandler.SetPin)
	authRoutes.Put("/pin/protection", authMiddleware.RequireAuth, authHandler.SetPinProtection)
	authRoutes.Get("/pin/state", authMiddleware.RequireAuth, authHandler.PinState)
	authRoutes.Post("/pin/press", authMiddleware.RequireAuth, authHandler.PinPress)

	cardRoutes := api.Group("/cards", authMiddleware.RequireAuth, authMiddleware.RequireUnlocked)
	cardRoutes.Post("/", cardHandler.Create)
	cardRoutes.Get("/", cardHandler.List)
	cardRoutes.Get("/:id", cardHandler.Get)
	cardRoutes.Put("/:id", cardHandler.Update)
	cardRoutes.Delete("/:id", cardHandler.Delete)
	cardRoutes.Post("/:id/reveal", cardHandler.RevealCard)
	cardRoutes.Post("/:id/hide", cardHandler.HideCard)

	api.Get("/documents/categories", authMiddleware.RequireAuth, documentHandler.Categories)

	documentRoutes := api.Group("/documents", authMiddleware.RequireAuth, authMiddleware.RequireUnlocked)
	documentRoutes.Post("/", documentHandler.Create)
	documentRoutes.Get("/", documentHandler.List)
	documentRoutes.Get("/:id", documentHandler.Get)
	documentRoutes.Put("/:id", documentHandler.Update)
	documentRoutes.Delete("/:id", documentHandler.Delete)
	documentRoutes.Post("/:id/file", documentHandler.UploadFile)
	documentRoutes.Get("/:id/file", documentHandler.DownloadFile)
	documentRoutes.Get("/:id/file-url", documentHandler.FileURL)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationHandler.List)
	notificationRoutes.Get("/unread-count", notificationHandler.UnreadCount)
	notificationRoutes.Put("/read-all", notificationHandler.MarkAllRead)
	notificationRoutes.Get("/:id", notificationHandler.Get)
	notificationRoutes.Put("/:id/read", notificationHandler.MarkRead)

	verificationRoutes := api.Group("/verifications", authMiddleware.RequireAuth)
	verificationRoutes.Post("/", verificationHandler.Submit)
	verificationRoutes.Get("/mine", verificationHandler.Mine)

	deletionRoutes := api.Group("/deletion-requests", authMiddleware.RequireAuth)
	deletionRoutes.Post("/", deletionHandler.Submit)
	deletionRoutes.Get("/mine", deletionHandler.Mine)

	api.Post("/feedback", authMiddleware.RequireAuth, feedbackHandler.Submit)

	api.Get("/designs", authMiddleware.RequireAuth, designHandler.List)

	api.Get("/config", authMiddleware.RequireAuth, configHandler.Get)
	api.Get("/config/navigation", authMiddleware.RequireAuth, configHandler.Navigation)
	api.Get("/config/content/:key", authMiddleware.RequireAuth, configHandler.GetContent)
	api.Get("/config/pages", authMiddleware.RequireAuth, configHandler.GetPages)

	privacyRoutes := api.Group("/privacy", authMiddleware.RequireAuth)
	privacyRoutes.Get("/activity", privacyHandler.MyActivity)
	privacyRoutes.Get("/export", privacyHandler.ExportMyData)

	admin := api.Group("/admin", authMiddleware.RequireAuth, middleware.AdminOnly)
	admin.Get("/dashboard", dashboardHandler.Overview)
	admin.Get("/dashboard/export", dashboardHandler.Export)
	admin.Get("/users", dashboardHandler.ListUsers)
	admin.Get("/users/:id", dashboardHandler.GetUser)
	admin.Put("/users/:id/role", dashboardHandler.ChangeRole)
	admin.Get("/cards", cardHandler.AdminList)
	admin.Delete("/cards/:id", cardHandler.AdminDelete)
	admin.Get("/documents", documentHandler.AdminList)
	admin.Delete("/documents/:id", documentHandler.AdminDelete)
	admin.Get("/verifications", verificationHandler.AdminList)
	admin.Put("/verifications/:id", verificationHandler.Decide)
	admin.Get("/deletion-requests", deletionHandler.AdminList)
	admin.Post("/deletion-requests/:id/approve", deletionHandler.Approve)
	admin.Post("/deletion-requests/:id/decline", deletionHandler.Decline)
	admin.Get("/feedback", feedbackHandler.AdminList)
	admin.Put("/feedback/:id/read", feedbackHandler.AdminMarkRead)
	admin.Post("/notifications", notificationHandler.AdminSend)
	admin.Get("/notifications", notificationHandler.AdminList)
	admin.Delete("/notifications/:id", notificationHandler.AdminDelete)
	admin.Get("/designs", designHandler.AdminList)
	admin.Post("/designs", designHandler.AdminCreate)
	admin.Put("/designs/:id", designHandler.AdminUpdate)
	admin.Delete("/designs/:id", designHandler.AdminDelete)
	admin.Put("/config", configHandler.AdminUpdate)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		revealService.Stop()
		stopPinCleanup()
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
