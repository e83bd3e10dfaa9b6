package handlers

import (
	"strings"

	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DesignHandler struct {
	DB *gorm.DB
}

func NewDesignHandler(db *gorm.DB) *DesignHandler {
	return &DesignHandler{DB: db}
}

type designEntry struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Class     string  `json:"class"`
	CustomCSS *string `json:"customCss,omitempty"`
	Glass     bool    `json:"glass"`
	Static    bool    `json:"static"`
}

// List returns the merged theme catalog: the built-in themes first, then
// every active admin-defined theme.
func (h *DesignHandler) List(c *fiber.Ctx) error {
	entries := make([]designEntry, 0, len(models.StaticCardDesigns))
	for _, d := range models.StaticCardDesigns {
		entries = append(entries, designEntry{
			ID:     d.ID,
			Name:   d.Name,
			Class:  d.Class,
			Static: true,
		})
	}

	var custom []models.CardDesign
	if err := h.DB.Where("active = ?", true).
		Order("created_at ASC").Find(&custom).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching designs")
	}
	for _, d := range custom {
		entries = append(entries, designEntry{
			ID:        d.ID.String(),
			Name:      d.Name,
			Class:     d.Class,
			CustomCSS: d.CustomCSS,
			Glass:     d.Glass,
		})
	}

	return utils.Success(c, fiber.StatusOK, entries)
}

// AdminList returns all admin-defined themes including inactive ones.
func (h *DesignHandler) AdminList(c *fiber.Ctx) error {
	var designs []models.CardDesign
	if err := h.DB.Order("created_at ASC").Find(&designs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching designs")
	}
	return utils.Success(c, fiber.StatusOK, designs)
}

type designRequest struct {
	Name      string  `json:"name"`
	Class     string  `json:"class"`
	CustomCSS *string `json:"customCss"`
	Glass     bool    `json:"glass"`
	Active    *bool   `json:"active"`
}

func (r *designRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Class = strings.TrimSpace(r.Class)
	switch {
	case r.Name == "":
		return "name is required"
	case r.Class == "":
		return "class is required"
	}
	return ""
}

func (h *DesignHandler) AdminCreate(c *fiber.Ctx) error {
	var req designRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	design := models.CardDesign{
		Name:      req.Name,
		Class:     req.Class,
		CustomCSS: req.CustomCSS,
		Glass:     req.Glass,
		Active:    true,
	}
	if req.Active != nil {
		design.Active = *req.Active
	}

	if err := h.DB.Create(&design).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating design")
	}

	return utils.Success(c, fiber.StatusCreated, design)
}

func (h *DesignHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid design id")
	}

	var design models.CardDesign
	if err := h.DB.First(&design, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "design not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching design")
	}

	var req designRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	design.Name = req.Name
	design.Class = req.Class
	design.CustomCSS = req.CustomCSS
	design.Glass = req.Glass
	if req.Active != nil {
		design.Active = *req.Active
	}

	if err := h.DB.Save(&design).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating design")
	}

	return utils.Success(c, fiber.StatusOK, design)
}

func (h *DesignHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid design id")
	}

	result := h.DB.Delete(&models.CardDesign{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting design")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "design not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "design deleted"})
}
