package handlers

import (
	"fmt"
	"strings"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/internal/storage"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DeletionRequestHandler struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	Audit   *services.AuditService
}

func NewDeletionRequestHandler(db *gorm.DB, storageClient *storage.MinIOClient, audit *services.AuditService) *DeletionRequestHandler {
	return &DeletionRequestHandler{DB: db, Storage: storageClient, Audit: audit}
}

type submitDeletionRequest struct {
	Reason string `json:"reason"`
}

func (h *DeletionRequestHandler) Submit(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req submitDeletionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return utils.Error(c, fiber.StatusBadRequest, "reason is required")
	}

	var open int64
	if err := h.DB.Model(&models.DeletionRequest{}).
		Where("user_id = ? AND status = ?", user.ID, models.DeletionRequestPending).
		Count(&open).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing requests")
	}
	if open > 0 {
		return utils.Error(c, fiber.StatusConflict, "a deletion request is already pending")
	}

	request := models.DeletionRequest{
		UserID:    user.ID,
		UserEmail: user.Email,
		Reason:    req.Reason,
		Status:    models.DeletionRequestPending,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request).Error; err != nil {
			return err
		}
		alert := models.Notification{
			Target:  models.NotificationTargetAdminAlert,
			Title:   "Account Deletion Request",
			Message: fmt.Sprintf("%s (%s) has requested account deletion.", user.FullName, user.Email),
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed submitting deletion request")
	}

	logger.InfoWithUser(user.ID.String(), "deletion_requested", map[string]interface{}{
		"request_id": request.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "deletion.request",
		ResourceType: "deletion_request",
		ResourceID:   &request.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, request)
}

// Mine returns the caller's latest deletion request, if any.
func (h *DeletionRequestHandler) Mine(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var request models.DeletionRequest
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").First(&request).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Success(c, fiber.StatusOK, nil)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching deletion request")
	}

	return utils.Success(c, fiber.StatusOK, request)
}

func (h *DeletionRequestHandler) AdminList(c *fiber.Ctx) error {
	var requests []models.DeletionRequest
	if err := h.DB.Order("created_at DESC").Find(&requests).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching deletion requests")
	}
	return utils.Success(c, fiber.StatusOK, requests)
}

// Approve erases the account and its entire vault. The database rows go in
// one transaction; stored objects are cleaned up afterwards, best effort.
func (h *DeletionRequestHandler) Approve(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	var request models.DeletionRequest
	if err := h.DB.First(&request, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "deletion request not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching deletion request")
	}
	if request.Status != models.DeletionRequestPending {
		return utils.Error(c, fiber.StatusConflict, "deletion request already decided")
	}
	if request.UserID == admin.ID {
		return utils.Error(c, fiber.StatusBadRequest, "admins cannot approve their own deletion")
	}

	// Collect object paths before the rows disappear.
	var storagePaths []string
	if err := h.DB.Model(&models.Document{}).
		Where("user_id = ? AND storage_path IS NOT NULL AND storage_path <> ''", request.UserID).
		Pluck("storage_path", &storagePaths).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed collecting stored files")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		userID := request.UserID
		if err := tx.Delete(&models.Card{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Document{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Notification{}, "user_id = ?", userID.String()).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.VerificationRequest{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Feedback{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.DeletionRequest{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting account")
	}

	if h.Storage != nil && len(storagePaths) > 0 {
		h.Storage.PurgeObjects(c.Context(), storagePaths)
	}

	logger.Info("account_deleted", map[string]interface{}{
		"user_id":  request.UserID.String(),
		"admin_id": admin.ID.String(),
		"email":    request.UserEmail,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "deletion.approve",
		ResourceType: "user",
		ResourceID:   &request.UserID,
		Details: map[string]interface{}{
			"email": request.UserEmail,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "account deleted"})
}

type declineDeletionRequest struct {
	Feedback string `json:"feedback"`
}

// Decline keeps the account and tells the user why.
func (h *DeletionRequestHandler) Decline(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request id")
	}

	var req declineDeletionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Feedback = strings.TrimSpace(req.Feedback)

	var request models.DeletionRequest
	if err := h.DB.First(&request, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "deletion request not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching deletion request")
	}
	if request.Status != models.DeletionRequestPending {
		return utils.Error(c, fiber.StatusConflict, "deletion request already decided")
	}

	message := "Your account deletion request was declined."
	if req.Feedback != "" {
		message = fmt.Sprintf("Your account deletion request was declined: %s", req.Feedback)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": models.DeletionRequestDeclined}
		if req.Feedback != "" {
			updates["admin_feedback"] = req.Feedback
		}
		if err := tx.Model(&models.DeletionRequest{}).Where("id = ?", request.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		notification := models.Notification{
			Target:  request.UserID.String(),
			Title:   "Deletion Request Declined",
			Message: message,
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed declining deletion request")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "deletion.decline",
		ResourceType: "deletion_request",
		ResourceID:   &request.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	request.Status = models.DeletionRequestDeclined
	if req.Feedback != "" {
		request.AdminFeedback = &req.Feedback
	}
	return utils.Success(c, fiber.StatusOK, request)
}
