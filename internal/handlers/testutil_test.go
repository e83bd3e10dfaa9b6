package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deshiwallet/backend/internal/config"
	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fiber.App
	db      *gorm.DB
	reveal  *services.RevealService
	pinLock *services.PinLockService
}

var testSetupOnce sync.Once

const testRevealWindow = 150 * time.Millisecond

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigureEncryption("test-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Document{},
		&models.Notification{},
		&models.VerificationRequest{},
		&models.DeletionRequest{},
		&models.Feedback{},
		&models.CardDesign{},
		&models.SystemConfig{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	auditService := services.NewAuditService(db)
	expiryNotifier := services.NewExpiryNotifier(db, services.ExpirySoonWindowDays)
	revealService := services.NewRevealService(testRevealWindow)
	pinLockService := services.NewPinLockService(50*time.Millisecond, time.Hour)
	t.Cleanup(revealService.Stop)

	adminCfg := config.AdminConfig{Email: "admin@deshiwallet.local", Password: "admin123"}

	authHandler := NewAuthHandler(db, auditService, pinLockService, adminCfg)
	cardHandler := NewCardHandler(db, auditService, revealService, expiryNotifier)
	documentHandler := NewDocumentHandler(db, nil, auditService)
	notificationHandler := NewNotificationHandler(db)
	verificationHandler := NewVerificationHandler(db, auditService)
	deletionHandler := NewDeletionRequestHandler(db, nil, auditService)
	feedbackHandler := NewFeedbackHandler(db, auditService)
	designHandler := NewDesignHandler(db)
	configHandler := NewSystemConfigHandler(db, auditService)
	dashboardHandler := NewDashboardHandler(db, auditService)
	privacyHandler := NewPrivacyHandler(db, auditService)

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

	return &testEnv{app: app, db: db, reveal: revealService, pinLock: pinLockService}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		Status:       models.VerificationPending,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestCard(t *testing.T, db *gorm.DB, userID string, bank, number, expiry string) *models.Card {
	t.Helper()

	cvv, err := utils.EncryptAESGCM("123")
	if err != nil {
		t.Fatalf("failed encrypting cvv: %v", err)
	}

	owner, err := parseUUID(userID)
	if err != nil {
		t.Fatalf("invalid owner id: %v", err)
	}

	card := &models.Card{
		UserID:        owner,
		BankName:      bank,
		HolderName:    "Test User",
		CardNumber:    number,
		ExpiryDate:    expiry,
		CVVEncrypted:  cvv,
		PaymentMethod: models.PaymentMethodVisa,
		Design:        "default",
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed creating test card: %v", err)
	}
	return card
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected error envelope, got success: %v", body)
	}
	if message, _ := body["error"].(string); message != expected {
		t.Fatalf("expected error %q, got %q", expected, body["error"])
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object in envelope, got %v", body)
	}
	return data
}

func dataSlice(t *testing.T, body map[string]any) []any {
	t.Helper()
	data, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array in envelope, got %v", body)
	}
	return data
}
