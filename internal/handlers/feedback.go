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

type FeedbackHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewFeedbackHandler(db *gorm.DB, audit *services.AuditService) *FeedbackHandler {
	return &FeedbackHandler{DB: db, Audit: audit}
}

type submitFeedbackRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Submit files a problem report or suggestion and raises an admin alert.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req submitFeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Type = strings.TrimSpace(req.Type)
	req.Text = strings.TrimSpace(req.Text)
	if req.Type == "" || req.Text == "" {
		return utils.Error(c, fiber.StatusBadRequest, "type and text are required")
	}

	feedback := models.Feedback{
		UserID:    user.ID,
		UserName:  user.FullName,
		UserEmail: user.Email,
		Type:      req.Type,
		Text:      req.Text,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&feedback).Error; err != nil {
			return err
		}
		alert := models.Notification{
			Target:  models.NotificationTargetAdminAlert,
			Title:   fmt.Sprintf("Report: %s", req.Type),
			Message: fmt.Sprintf("%s (%s) reported: %s", user.FullName, user.Email, req.Text),
		}
		return tx.Create(&alert).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed submitting feedback")
	}

	logger.InfoWithUser(user.ID.String(), "feedback_submitted", map[string]interface{}{
		"feedback_id": feedback.ID.String(),
		"type":        feedback.Type,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "feedback.submit",
		ResourceType: "feedback",
		ResourceID:   &feedback.ID,
		Details: map[string]interface{}{
			"type": feedback.Type,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, feedback)
}

func (h *FeedbackHandler) AdminList(c *fiber.Ctx) error {
	params := utils.ParsePagination(c)

	query := h.DB.Model(&models.Feedback{})
	if unread := c.Query("unread"); unread == "true" {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting feedback")
	}

	var feedback []models.Feedback
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&feedback).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching feedback")
	}

	return utils.Paginated(c, feedback, params.Page, params.Limit, total)
}

func (h *FeedbackHandler) AdminMarkRead(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid feedback id")
	}

	result := h.DB.Model(&models.Feedback{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating feedback")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "feedback not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"read": true})
}
