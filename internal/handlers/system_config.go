package handlers

import (
	"strings"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewSystemConfigHandler(db *gorm.DB, audit *services.AuditService) *SystemConfigHandler {
	return &SystemConfigHandler{DB: db, Audit: audit}
}

func (h *SystemConfigHandler) load() (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	if err := h.DB.First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			cfg = models.DefaultSystemConfig()
			if err := h.DB.Create(&cfg).Error; err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// Get returns the system configuration plus the navigation menu filtered for
// the caller's role and the active feature flags.
func (h *SystemConfigHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	navigation := services.FilterNavItems(services.DefaultNavItems(), cfg.Features, user.Role == models.UserRoleAdmin)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"config":     cfg,
		"navigation": navigation,
	})
}

// Navigation returns just the filtered menu, for clients that poll it
// without refetching the whole configuration.
func (h *SystemConfigHandler) Navigation(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	return utils.Success(c, fiber.StatusOK,
		services.FilterNavItems(services.DefaultNavItems(), cfg.Features, user.Role == models.UserRoleAdmin))
}

// GetContent returns one content block by key, e.g. terms or privacy.
func (h *SystemConfigHandler) GetContent(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return utils.Error(c, fiber.StatusBadRequest, "content key is required")
	}

	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	value, ok := cfg.Content[key]
	if !ok {
		return utils.Error(c, fiber.StatusNotFound, "content not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"key": key, "content": value})
}

// GetPages returns the active custom pages.
func (h *SystemConfigHandler) GetPages(c *fiber.Ctx) error {
	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	pages := make([]models.CustomPage, 0, len(cfg.CustomPages))
	for _, page := range cfg.CustomPages {
		if page.Active {
			pages = append(pages, page)
		}
	}

	return utils.Success(c, fiber.StatusOK, pages)
}

// Version reports the app version gates without requiring authentication.
func (h *SystemConfigHandler) Version(c *fiber.Ctx) error {
	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"currentVersion": cfg.CurrentAppVersion,
		"minVersion":     cfg.MinAppVersion,
		"maintenance":    cfg.AppMaintenance,
	})
}

type updateSystemConfigRequest struct {
	Features          map[string]bool     `json:"features"`
	Content           map[string]string   `json:"content"`
	CustomPages       []models.CustomPage `json:"customPages"`
	AppMaintenance    *bool               `json:"appMaintenance"`
	MinAppVersion     *string             `json:"minAppVersion"`
	CurrentAppVersion *string             `json:"currentAppVersion"`
}

// AdminUpdate merges the provided sections into the singleton. Absent
// sections are left untouched.
func (h *SystemConfigHandler) AdminUpdate(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateSystemConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	cfg, err := h.load()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching configuration")
	}

	if req.Features != nil {
		cfg.Features = req.Features
	}
	if req.Content != nil {
		cfg.Content = req.Content
	}
	if req.CustomPages != nil {
		cfg.CustomPages = req.CustomPages
	}
	if req.AppMaintenance != nil {
		cfg.AppMaintenance = *req.AppMaintenance
	}
	if req.MinAppVersion != nil {
		cfg.MinAppVersion = *req.MinAppVersion
	}
	if req.CurrentAppVersion != nil {
		cfg.CurrentAppVersion = *req.CurrentAppVersion
	}

	if err := h.DB.Save(cfg).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating configuration")
	}

	logger.InfoWithUser(admin.ID.String(), "system_config_updated", map[string]interface{}{
		"maintenance": cfg.AppMaintenance,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "config.update",
		ResourceType: "system_config",
		ResourceID:   &cfg.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, cfg)
}
