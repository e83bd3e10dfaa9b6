package handlers

import (
	"strings"
	"time"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardHandler struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Reveal   *services.RevealService
	Notifier *services.ExpiryNotifier
}

func NewCardHandler(db *gorm.DB, audit *services.AuditService, reveal *services.RevealService, notifier *services.ExpiryNotifier) *CardHandler {
	return &CardHandler{DB: db, Audit: audit, Reveal: reveal, Notifier: notifier}
}

type cardRequest struct {
	BankName      string  `json:"bankName"`
	HolderName    string  `json:"holderName"`
	CardNumber    string  `json:"cardNumber"`
	ExpiryDate    string  `json:"expiryDate"`
	CVV           string  `json:"cvv"`
	Pin           *string `json:"pin"`
	PaymentMethod string  `json:"paymentMethod"`
	Design        string  `json:"design"`
}

func (r *cardRequest) validate() string {
	r.BankName = strings.TrimSpace(r.BankName)
	r.HolderName = strings.TrimSpace(r.HolderName)
	r.CardNumber = strings.TrimSpace(r.CardNumber)
	r.ExpiryDate = strings.TrimSpace(r.ExpiryDate)
	r.CVV = strings.TrimSpace(r.CVV)

	switch {
	case r.BankName == "":
		return "bankName is required"
	case r.HolderName == "":
		return "holderName is required"
	case r.CardNumber == "" || !isDigits(strings.ReplaceAll(r.CardNumber, " ", "")):
		return "cardNumber must be numeric"
	case r.ExpiryDate == "":
		return "expiryDate is required"
	case r.CVV == "" || !isDigits(r.CVV) || len(r.CVV) < 3 || len(r.CVV) > 4:
		return "cvv must be 3 or 4 digits"
	case !models.ValidPaymentMethod(models.PaymentMethod(r.PaymentMethod)):
		return "invalid payment method"
	}
	if r.Pin != nil && *r.Pin != "" && !isDigits(*r.Pin) {
		return "pin must be numeric"
	}
	return ""
}

func (h *CardHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req cardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	cvvEncrypted, err := utils.EncryptAESGCM(req.CVV)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed securing card data")
	}

	card := models.Card{
		UserID:        user.ID,
		BankName:      req.BankName,
		HolderName:    req.HolderName,
		CardNumber:    strings.ReplaceAll(req.CardNumber, " ", ""),
		ExpiryDate:    req.ExpiryDate,
		CVVEncrypted:  cvvEncrypted,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Design:        req.Design,
	}
	if card.Design == "" {
		card.Design = "default"
	}
	if req.Pin != nil && *req.Pin != "" {
		pinEncrypted, err := utils.EncryptAESGCM(*req.Pin)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed securing card data")
		}
		card.PinEncrypted = &pinEncrypted
	}

	if err := h.DB.Create(&card).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating card")
	}

	logger.Info("card_created", map[string]interface{}{
		"card_id": card.ID.String(),
		"user_id": user.ID.String(),
		"bank":    card.BankName,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "card.create",
		ResourceType: "card",
		ResourceID:   &card.ID,
		Details: map[string]interface{}{
			"bank":   card.BankName,
			"last_4": card.MaskedNumber(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	card.ExpiryStatus = string(h.Notifier.Classify(card.ExpiryDate, time.Now()))
	return utils.Success(c, fiber.StatusCreated, card)
}

// List returns the owner's cards annotated with their expiry classification.
// The expiry sweep runs on every listing so a freshly expiring card produces
// its notification the next time the wallet is opened.
func (h *CardHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var cards []models.Card
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&cards).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching cards")
	}

	now := time.Now()
	token := middleware.GetSessionToken(c)
	for i := range cards {
		cards[i].ExpiryStatus = string(h.Notifier.Classify(cards[i].ExpiryDate, now))
		cards[i].Revealed = h.Reveal.Revealed(token, cards[i].ID.String())
	}

	h.Notifier.Sweep(user, cards, now)

	return utils.Success(c, fiber.StatusOK, cards)
}

func (h *CardHandler) loadOwned(c *fiber.Ctx, user *models.User) (*models.Card, error) {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	var card models.Card
	if err := h.DB.First(&card, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "card not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed fetching card")
	}
	return &card, nil
}

// Get returns one card. While the caller holds an open reveal window the
// response carries decrypted CVV and PIN; otherwise those fields stay empty.
func (h *CardHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.loadOwned(c, user)
	if card == nil {
		return err
	}

	card.ExpiryStatus = string(h.Notifier.Classify(card.ExpiryDate, time.Now()))

	token := middleware.GetSessionToken(c)
	if h.Reveal.Revealed(token, card.ID.String()) {
		h.decryptSecrets(card)
	}

	return utils.Success(c, fiber.StatusOK, card)
}

func (h *CardHandler) decryptSecrets(card *models.Card) {
	if cvv, err := utils.DecryptAESGCM(card.CVVEncrypted); err == nil {
		card.CVV = cvv
	} else {
		logger.Error("card_cvv_decrypt_failed", err, map[string]interface{}{
			"card_id": card.ID.String(),
		})
	}
	if card.PinEncrypted != nil && *card.PinEncrypted != "" {
		if pin, err := utils.DecryptAESGCM(*card.PinEncrypted); err == nil {
			card.Pin = pin
		} else {
			logger.Error("card_pin_decrypt_failed", err, map[string]interface{}{
				"card_id": card.ID.String(),
			})
		}
	}
	card.Revealed = true
}

// RevealCard opens (or restarts) the timed reveal window for one card and
// returns the card with decrypted secrets plus the window deadline.
func (h *CardHandler) RevealCard(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.loadOwned(c, user)
	if card == nil {
		return err
	}

	token := middleware.GetSessionToken(c)
	expiresAt := h.Reveal.Reveal(token, card.ID.String())

	card.ExpiryStatus = string(h.Notifier.Classify(card.ExpiryDate, time.Now()))
	h.decryptSecrets(card)

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "card.reveal",
		ResourceType: "card",
		ResourceID:   &card.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"card":      card,
		"expiresAt": expiresAt,
	})
}

// HideCard closes the reveal window early.
func (h *CardHandler) HideCard(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.loadOwned(c, user)
	if card == nil {
		return err
	}

	h.Reveal.Hide(middleware.GetSessionToken(c), card.ID.String())
	return utils.Success(c, fiber.StatusOK, fiber.Map{"revealed": false})
}

func (h *CardHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.loadOwned(c, user)
	if card == nil {
		return err
	}

	var req cardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	cvvEncrypted, encErr := utils.EncryptAESGCM(req.CVV)
	if encErr != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed securing card data")
	}

	card.BankName = req.BankName
	card.HolderName = req.HolderName
	card.CardNumber = strings.ReplaceAll(req.CardNumber, " ", "")
	card.ExpiryDate = req.ExpiryDate
	card.CVVEncrypted = cvvEncrypted
	card.PaymentMethod = models.PaymentMethod(req.PaymentMethod)
	if req.Design != "" {
		card.Design = req.Design
	}
	if req.Pin != nil {
		if *req.Pin == "" {
			card.PinEncrypted = nil
		} else {
			pinEncrypted, encErr := utils.EncryptAESGCM(*req.Pin)
			if encErr != nil {
				return utils.Error(c, fiber.StatusInternalServerError, "failed securing card data")
			}
			card.PinEncrypted = &pinEncrypted
		}
	}

	if err := h.DB.Save(card).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating card")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "card.update",
		ResourceType: "card",
		ResourceID:   &card.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	card.ExpiryStatus = string(h.Notifier.Classify(card.ExpiryDate, time.Now()))
	return utils.Success(c, fiber.StatusOK, card)
}

func (h *CardHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	card, err := h.loadOwned(c, user)
	if card == nil {
		return err
	}

	if err := h.DB.Delete(card).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting card")
	}

	h.Reveal.Hide(middleware.GetSessionToken(c), card.ID.String())

	logger.Info("card_deleted", map[string]interface{}{
		"card_id": card.ID.String(),
		"user_id": user.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "card.delete",
		ResourceType: "card",
		ResourceID:   &card.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "card deleted"})
}

type adminCardEntry struct {
	ID            uuid.UUID            `json:"id"`
	BankName      string               `json:"bankName"`
	HolderName    string               `json:"holderName"`
	MaskedNumber  string               `json:"maskedNumber"`
	ExpiryDate    string               `json:"expiryDate"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Design        string               `json:"design"`
	OwnerID       uuid.UUID            `json:"ownerID"`
	OwnerName     string               `json:"ownerName"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// AdminList surveys every stored card for the console's monitoring table.
// Numbers stay masked and secrets stay encrypted: the console observes, it
// never reveals.
func (h *CardHandler) AdminList(c *fiber.Ctx) error {
	params := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Card{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting cards")
	}

	var cards []models.Card
	if err := utils.ApplyPagination(h.DB.Preload("Owner").Order("created_at DESC"), params).
		Find(&cards).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching cards")
	}

	entries := make([]adminCardEntry, 0, len(cards))
	for i := range cards {
		card := &cards[i]
		entries = append(entries, adminCardEntry{
			ID:            card.ID,
			BankName:      card.BankName,
			HolderName:    card.HolderName,
			MaskedNumber:  card.MaskedNumber(),
			ExpiryDate:    card.ExpiryDate,
			PaymentMethod: card.PaymentMethod,
			Design:        card.Design,
			OwnerID:       card.UserID,
			OwnerName:     card.Owner.FullName,
			CreatedAt:     card.CreatedAt,
		})
	}

	return utils.Paginated(c, entries, params.Page, params.Limit, total)
}

// AdminDelete removes any user's card from the system.
func (h *CardHandler) AdminDelete(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid card id")
	}

	var card models.Card
	if err := h.DB.First(&card, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "card not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching card")
	}

	if err := h.DB.Delete(&card).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting card")
	}

	logger.Info("card_removed_by_admin", map[string]interface{}{
		"card_id":  card.ID.String(),
		"owner_id": card.UserID.String(),
		"admin_id": admin.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "admin.card.delete",
		ResourceType: "card",
		ResourceID:   &card.ID,
		Details:      map[string]interface{}{"ownerID": card.UserID.String()},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "card deleted"})
}
