package handlers

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/internal/storage"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const presignedURLExpiry = 15 * time.Minute

type DocumentHandler struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	Audit   *services.AuditService
}

func NewDocumentHandler(db *gorm.DB, storageClient *storage.MinIOClient, audit *services.AuditService) *DocumentHandler {
	return &DocumentHandler{DB: db, Storage: storageClient, Audit: audit}
}

// Categories returns the vault taxonomy with the default metadata fields
// suggested for each category.
func (h *DocumentHandler) Categories(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, models.DocumentCategories)
}

type documentRequest struct {
	Title    string            `json:"title"`
	Category string            `json:"category"`
	Notes    string            `json:"notes"`
	Metadata map[string]string `json:"metadata"`
}

func (r *documentRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)

	switch {
	case r.Title == "":
		return "title is required"
	case !models.ValidDocumentCategory(r.Category):
		return "invalid category"
	}
	return ""
}

func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	doc := models.Document{
		UserID:   user.ID,
		Title:    req.Title,
		Category: req.Category,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	}

	if err := h.DB.Create(&doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating document")
	}

	logger.InfoWithUser(user.ID.String(), "document_created", map[string]interface{}{
		"document_id": doc.ID.String(),
		"category":    doc.Category,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "document.create",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"category": doc.Category,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusCreated, doc)
}

func (h *DocumentHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	query := h.DB.Where("user_id = ?", user.ID)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		if !models.ValidDocumentCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category")
		}
		query = query.Where("category = ?", category)
	}

	var docs []models.Document
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching documents")
	}

	return utils.Success(c, fiber.StatusOK, docs)
}

func (h *DocumentHandler) loadOwned(c *fiber.Ctx, user *models.User) (*models.Document, error) {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.Document
	if err := h.DB.First(&doc, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return nil, utils.Error(c, fiber.StatusInternalServerError, "failed fetching document")
	}
	return &doc, nil
}

func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, doc)
}

func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}

	var req documentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	doc.Title = req.Title
	doc.Category = req.Category
	doc.Notes = req.Notes
	doc.Metadata = req.Metadata

	if err := h.DB.Save(doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating document")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "document.update",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}

	if err := h.DB.Delete(doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	if doc.StoragePath != nil && *doc.StoragePath != "" {
		if err := h.Storage.Delete(c.Context(), *doc.StoragePath); err != nil {
			logger.Error("document_object_cleanup_failed", err, map[string]interface{}{
				"document_id":  doc.ID.String(),
				"storage_path": *doc.StoragePath,
			})
		}
	}

	logger.InfoWithUser(user.ID.String(), "document_deleted", map[string]interface{}{
		"document_id": doc.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "document.delete",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "document deleted"})
}

// UploadFile attaches one file to a document, replacing any previous object.
func (h *DocumentHandler) UploadFile(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		return utils.Error(c, fiber.StatusBadRequest, "invalid filename")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := fmt.Sprintf("%s/%s/%s", user.ID.String(), uuid.New().String(), filename)
	if err := h.Storage.Upload(c.Context(), objectName, stream, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed uploading file")
	}

	previousPath := doc.StoragePath
	doc.FileName = &filename
	doc.MimeType = &contentType
	doc.FileSize = fileHeader.Size
	doc.StoragePath = &objectName

	if err := h.DB.Save(doc).Error; err != nil {
		_ = h.Storage.Delete(c.Context(), objectName)
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating document record")
	}

	if previousPath != nil && *previousPath != "" {
		if err := h.Storage.Delete(c.Context(), *previousPath); err != nil {
			logger.Error("document_object_cleanup_failed", err, map[string]interface{}{
				"document_id":  doc.ID.String(),
				"storage_path": *previousPath,
			})
		}
	}

	logger.InfoWithUser(user.ID.String(), "document_file_uploaded", map[string]interface{}{
		"document_id":  doc.ID.String(),
		"file_name":    filename,
		"file_size":    fileHeader.Size,
		"mime_type":    contentType,
		"storage_path": objectName,
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "document.upload",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"file_name": filename,
			"file_size": fileHeader.Size,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, doc)
}

// DownloadFile streams the document's stored object back to its owner.
func (h *DocumentHandler) DownloadFile(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}

	if doc.StoragePath == nil || *doc.StoragePath == "" {
		return utils.Error(c, fiber.StatusNotFound, "document has no file attached")
	}

	obj, err := h.Storage.Download(c.Context(), *doc.StoragePath)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed downloading file")
	}

	contentType := "application/octet-stream"
	if doc.MimeType != nil && *doc.MimeType != "" {
		contentType = *doc.MimeType
	}
	filename := "document"
	if doc.FileName != nil && *doc.FileName != "" {
		filename = *doc.FileName
	}

	logger.InfoWithUser(user.ID.String(), "document_file_downloaded", map[string]interface{}{
		"document_id": doc.ID.String(),
		"file_name":   filename,
	})

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.SendStream(obj)
}

// FileURL hands out a short-lived presigned link to the stored object.
func (h *DocumentHandler) FileURL(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	doc, err := h.loadOwned(c, user)
	if doc == nil {
		return err
	}

	if doc.StoragePath == nil || *doc.StoragePath == "" {
		return utils.Error(c, fiber.StatusNotFound, "document has no file attached")
	}

	url, err := h.Storage.PresignedGetURL(c.Context(), *doc.StoragePath, presignedURLExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating download link")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       url,
		"expiresIn": int(presignedURLExpiry.Seconds()),
	})
}

type adminDocumentEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	FileName  *string   `json:"fileName,omitempty"`
	FileSize  int64     `json:"fileSize"`
	OwnerID   uuid.UUID `json:"ownerID"`
	OwnerName string    `json:"ownerName"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminList is the console's system-wide document inventory: paginated, with
// an optional category filter and a search spanning document titles and the
// owner's name. Metadata and notes are left out; the console inspects
// inventory, not vault contents.
func (h *DocumentHandler) AdminList(c *fiber.Ctx) error {
	params := utils.ParsePagination(c)

	query := h.DB.Model(&models.Document{}).
		Joins("JOIN users ON users.id = documents.user_id")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(documents.title) LIKE ? OR LOWER(users.full_name) LIKE ?", like, like)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		if !models.ValidDocumentCategory(category) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid category filter")
		}
		query = query.Where("documents.category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting documents")
	}

	var docs []models.Document
	if err := utils.ApplyPagination(query.Order("documents.created_at DESC"), params).
		Preload("Owner").Find(&docs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching documents")
	}

	entries := make([]adminDocumentEntry, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		entries = append(entries, adminDocumentEntry{
			ID:        doc.ID,
			Title:     doc.Title,
			Category:  doc.Category,
			FileName:  doc.FileName,
			FileSize:  doc.FileSize,
			OwnerID:   doc.UserID,
			OwnerName: doc.Owner.FullName,
			CreatedAt: doc.CreatedAt,
		})
	}

	return utils.Paginated(c, entries, params.Page, params.Limit, total)
}

// AdminDelete erases any user's document, including its stored file.
func (h *DocumentHandler) AdminDelete(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid document id")
	}

	var doc models.Document
	if err := h.DB.First(&doc, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "document not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching document")
	}

	if err := h.DB.Delete(&doc).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting document")
	}

	if h.Storage != nil && doc.StoragePath != nil && *doc.StoragePath != "" {
		if err := h.Storage.Delete(c.Context(), *doc.StoragePath); err != nil {
			logger.Error("document_object_cleanup_failed", err, map[string]interface{}{
				"document_id":  doc.ID.String(),
				"storage_path": *doc.StoragePath,
			})
		}
	}

	logger.Info("document_removed_by_admin", map[string]interface{}{
		"document_id": doc.ID.String(),
		"owner_id":    doc.UserID.String(),
		"admin_id":    admin.ID.String(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "admin.document.delete",
		ResourceType: "document",
		ResourceID:   &doc.ID,
		Details:      map[string]interface{}{"ownerID": doc.UserID.String()},
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "document deleted"})
}
