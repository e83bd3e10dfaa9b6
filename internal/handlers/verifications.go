package handlers

import (
	"fmt"
	"strings"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type VerificationHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewVerificationHandler(db *gorm.DB, audit *services.AuditService) *VerificationHandler {
	return &VerificationHandler{DB: db, Audit: audit}
}

type submitVerificationRequest struct {
	DocType    string `json:"docType"`
	DocContent string `json:"docContent"`
}

// Submit files an identity verification request and moves the profile into
// the pending state. Only one open request is allowed at a time.
func (h *VerificationHandler) Submit(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if user.Status == models.VerificationVerified {
		return utils.Error(c, fiber.StatusBadRequest, "account already verified")
	}

	var req submitVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.DocType = strings.TrimSpace(req.DocType)
	req.DocContent = strings.TrimSpace(req.DocContent)
	if req.DocType == "" || req.DocContent == "" {
		return utils.Error(c, fiber.StatusBadRequest, "docType and docContent are required")
	}

	var open int64
	if err := h.DB.Model(&models.VerificationRequest{}).
		Where("user_id = ? AND status = ?", user.ID, models.VerificationPending).
		Count(&open).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing requests")
	}
	if open > 0 {
		return utils.Error(c, fiber.StatusConflict, "a verification request is already pending")
	}

	request := models.VerificationRequest{
		UserID:     user.ID,
		UserName:   user.FullName,
		UserEmail:  user.Email,
		DocType:    req.DocType,
		DocContent: req.DocContent,
		Status:     models.VerificationPending,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("status", models.VerificationPending).Error; err != nil {
			return err
		}
		alert := models.Notification{
			Target:  models.NotificationTargetAdminAlert,
			Title:   "New Verification Request",
			Message: fmt.Sprintf("%s (%s) has submitted a %s for identity verification.", user.FullName, user.Email, req.DocType),
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed submitting verification request")
	}

	logger.InfoWithUser(user.ID.String(), "verification_submitted", map[string]interface{}{
		"request_id": request.ID.String(),
		"doc_type":   request.DocType,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "verification.submit",
		ResourceType: "verification_request",
		ResourceID:   &request.ID,
		Details: map[string]interface{}{
			"doc_type": request.DocType,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, request)
}

// Mine returns the caller's own verification requests, newest first.
func (h *VerificationHandler) Mine(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var requests []models.VerificationRequest
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching verification requests")
	}

	return utils.Success(c, fiber.StatusOK, requests)
}

// AdminList returns the verification queue, optionally filtered by status.
func (h *VerificationHandler) AdminList(c *fiber.Ctx) error {
	query := h.DB.Model(&models.VerificationRequest{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !models.ValidVerificationStatus(models.VerificationStatus(status)) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
		query = query.Where("status = ?", status)
	}

	var requests []models.VerificationRequest
	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching verification requests")
	}

	return utils.Success(c, fiber.StatusOK, requests)
}

type decideVerificationRequest struct {
	Approve bool `json:"approve"`
}

// Decide approves or rejects a pending request. The request status, the
// user's profile status and the outcome notification move together in one
// transaction so a crash can never leave them disagreeing.
func (h *VerificationHandler) Decide(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	var req decideVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var request models.VerificationRequest
	if err := h.DB.First(&request, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "verification request not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching verification request")
	}
	if request.Status != models.VerificationPending {
		return utils.Error(c, fiber.StatusConflict, "verification request already decided")
	}

	outcome := models.VerificationRejected
	title := "Verification Rejected"
	message := "Unfortunately your identity verification was not approved. Please review your documents and submit again."
	if req.Approve {
		outcome = models.VerificationVerified
		title = "Verification Approved"
		message = "Congratulations! Your identity has been verified. You now have full access to your vault."
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VerificationRequest{}).Where("id = ?", request.ID).
			Update("status", outcome).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", request.UserID).
			Update("status", outcome).Error; err != nil {
			return err
		}
		notification := models.Notification{
			Target:  request.UserID.String(),
			Title:   title,
			Message: message,
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deciding verification request")
	}

	logger.InfoWithUser(admin.ID.String(), "verification_decided", map[string]interface{}{
		"request_id": request.ID.String(),
		"user_id":    request.UserID.String(),
		"outcome":    string(outcome),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "verification.decide",
		ResourceType: "verification_request",
		ResourceID:   &request.ID,
		Details: map[string]interface{}{
			"outcome": string(outcome),
			"subject": request.UserID.String(),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	request.Status = outcome
	return utils.Success(c, fiber.StatusOK, request)
}
