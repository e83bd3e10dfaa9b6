package handlers

import (
	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// visible scopes a query to the notifications this user may see: their own
// rows plus global broadcasts created after they joined. Broadcasts that
// predate the account never surface.
func (h *NotificationHandler) visible(user *models.User) *gorm.DB {
	return h.DB.Model(&models.Notification{}).
		Where("user_id = ? OR (user_id = ? AND created_at >= ?)",
			user.ID.String(), models.NotificationTargetGlobal, user.CreatedAt)
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var notifications []models.Notification
	if err := h.visible(user).Order("created_at DESC").Find(&notifications).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching notifications")
	}

	return utils.Success(c, fiber.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var count int64
	if err := h.visible(user).Where("read = ?", false).Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"unread": count})
}

func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	var notification models.Notification
	if err := h.visible(user).Where("id = ?", id).First(&notification).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "notification not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching notification")
	}

	return utils.Success(c, fiber.StatusOK, notification)
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	result := h.visible(user).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating notification")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "notification not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"read": true})
}

type sendNotificationRequest struct {
	Target   string   `json:"target"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	ImageURL *string  `json:"imageUrl"`
	Images   []string `json:"images"`
}

// AdminSend creates a notification addressed to one user or broadcast to
// everyone via the global target.
func (h *NotificationHandler) AdminSend(c *fiber.Ctx) error {
	var req sendNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" || req.Message == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title and message are required")
	}

	if req.Target != models.NotificationTargetGlobal {
		id, err := parseUUID(req.Target)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "target must be 'global' or a user id")
		}
		var target models.User
		if err := h.DB.First(&target, "id = ?", id).Error; err != nil {
			return utils.Error(c, fiber.StatusNotFound, "target user not found")
		}
	}

	notification := models.Notification{
		Target:   req.Target,
		Title:    req.Title,
		Message:  req.Message,
		ImageURL: req.ImageURL,
		Images:   req.Images,
	}
	if err := h.DB.Create(&notification).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating notification")
	}

	return utils.Success(c, fiber.StatusCreated, notification)
}

// AdminList returns every notification in the system, newest first.
func (h *NotificationHandler) AdminList(c *fiber.Ctx) error {
	params := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Notification{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting notifications")
	}

	var notifications []models.Notification
	if err := utils.ApplyPagination(h.DB.Order("created_at DESC"), params).
		Find(&notifications).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching notifications")
	}

	return utils.Paginated(c, notifications, params.Page, params.Limit, total)
}

func (h *NotificationHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	result := h.DB.Delete(&models.Notification{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting notification")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "notification not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "notification deleted"})
}

// MarkAllRead clears the unread state for every visible notification in a
// single grouped update rather than one write per row.
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	result := h.visible(user).Where("read = ?", false).Update("read", true)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating notifications")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": result.RowsAffected})
}
