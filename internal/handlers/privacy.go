package handlers

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PrivacyHandler serves data-portability requests: users can inspect their
// account activity and take a full copy of their stored data. Card numbers
// are masked and encrypted secrets never leave the database.
type PrivacyHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewPrivacyHandler(db *gorm.DB, audit *services.AuditService) *PrivacyHandler {
	return &PrivacyHandler{DB: db, Audit: audit}
}

// MyActivity lists the caller's recent audit trail.
func (h *PrivacyHandler) MyActivity(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	params := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.AuditLog{}).Where("user_id = ?", user.ID).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting activity")
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(
		h.DB.Where("user_id = ?", user.ID).Order("created_at DESC"), params).
		Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading activity")
	}

	return utils.Paginated(c, logs, params.Page, params.Limit, total)
}

type exportedCard struct {
	BankName      string    `json:"bankName"`
	HolderName    string    `json:"holderName"`
	MaskedNumber  string    `json:"maskedNumber"`
	ExpiryDate    string    `json:"expiryDate"`
	PaymentMethod string    `json:"paymentMethod"`
	Design        string    `json:"design"`
	CreatedAt     time.Time `json:"createdAt"`
}

type exportBundle struct {
	GeneratedAt   time.Time                    `json:"generatedAt"`
	Profile       *models.User                 `json:"profile"`
	Cards         []exportedCard               `json:"cards"`
	Documents     []models.Document            `json:"documents"`
	Notifications []models.Notification        `json:"notifications"`
	Verifications []models.VerificationRequest `json:"verifications"`
	Feedback      []models.Feedback            `json:"feedback"`
}

func (h *PrivacyHandler) collect(user *models.User) (*exportBundle, error) {
	bundle := &exportBundle{GeneratedAt: time.Now(), Profile: user}

	var cards []models.Card
	if err := h.DB.Where("user_id = ?", user.ID).Order("created_at ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	for i := range cards {
		bundle.Cards = append(bundle.Cards, exportedCard{
			BankName:      cards[i].BankName,
			HolderName:    cards[i].HolderName,
			MaskedNumber:  cards[i].MaskedNumber(),
			ExpiryDate:    cards[i].ExpiryDate,
			PaymentMethod: string(cards[i].PaymentMethod),
			Design:        cards[i].Design,
			CreatedAt:     cards[i].CreatedAt,
		})
	}

	if err := h.DB.Where("user_id = ?", user.ID).Order("created_at ASC").
		Find(&bundle.Documents).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Where("user_id = ? OR (user_id = ? AND created_at >= ?)",
		user.ID.String(), models.NotificationTargetGlobal, user.CreatedAt).
		Order("created_at ASC").Find(&bundle.Notifications).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Where("user_id = ?", user.ID).Order("created_at ASC").
		Find(&bundle.Verifications).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Where("user_id = ?", user.ID).Order("created_at ASC").
		Find(&bundle.Feedback).Error; err != nil {
		return nil, err
	}

	return bundle, nil
}

// ExportMyData streams the caller's complete account data as json or csv.
func (h *PrivacyHandler) ExportMyData(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "json")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or json")
	}

	bundle, err := h.collect(user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed collecting account data")
	}

	logger.InfoWithUser(user.ID.String(), "data_export", map[string]interface{}{
		"format": format,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "privacy.export",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details: map[string]interface{}{
			"format": format,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	if format == "json" {
		c.Set("Content-Type", "application/json")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "my-data.json"))
		return c.JSON(fiber.Map{"success": true, "data": bundle})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "my-data.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())

	_ = writer.Write([]string{"PROFILE"})
	_ = writer.Write([]string{"Email", "Full Name", "Date of Birth", "Status", "Role", "Joined"})
	_ = writer.Write([]string{
		user.Email,
		user.FullName,
		user.DateOfBirth,
		string(user.Status),
		string(user.Role),
		user.CreatedAt.Format(time.RFC3339),
	})

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"CARDS"})
	_ = writer.Write([]string{"Bank", "Holder", "Number", "Expiry", "Method", "Added"})
	for _, card := range bundle.Cards {
		_ = writer.Write([]string{
			card.BankName,
			card.HolderName,
			card.MaskedNumber,
			card.ExpiryDate,
			card.PaymentMethod,
			card.CreatedAt.Format(time.RFC3339),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"DOCUMENTS"})
	_ = writer.Write([]string{"Title", "Category", "Notes", "File", "Added"})
	for _, doc := range bundle.Documents {
		fileName := ""
		if doc.FileName != nil {
			fileName = *doc.FileName
		}
		_ = writer.Write([]string{
			doc.Title,
			doc.Category,
			doc.Notes,
			fileName,
			doc.CreatedAt.Format(time.RFC3339),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"NOTIFICATIONS"})
	_ = writer.Write([]string{"Received", "Title", "Message", "Read"})
	for _, n := range bundle.Notifications {
		_ = writer.Write([]string{
			n.CreatedAt.Format(time.RFC3339),
			n.Title,
			n.Message,
			fmt.Sprintf("%t", n.Read),
		})
	}

	writer.Flush()
	return nil
}
