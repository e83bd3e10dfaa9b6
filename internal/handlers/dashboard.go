package handlers

import (
	"encoding/csv"
	"fmt"
	"html/template"
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

type DashboardHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewDashboardHandler(db *gorm.DB, audit *services.AuditService) *DashboardHandler {
	return &DashboardHandler{DB: db, Audit: audit}
}

// Overview returns the admin console headline numbers plus the most recent
// sign-ups.
func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	counts := map[string]int64{}
	for name, query := range map[string]*gorm.DB{
		"users":                h.DB.Model(&models.User{}),
		"cards":                h.DB.Model(&models.Card{}),
		"documents":            h.DB.Model(&models.Document{}),
		"pendingVerifications": h.DB.Model(&models.VerificationRequest{}).Where("status = ?", models.VerificationPending),
		"pendingDeletions":     h.DB.Model(&models.DeletionRequest{}).Where("status = ?", models.DeletionRequestPending),
		"unreadFeedback":       h.DB.Model(&models.Feedback{}).Where("read = ?", false),
	} {
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed computing dashboard counts")
		}
		counts[name] = count
	}

	var latest []models.User
	if err := h.DB.Order("created_at DESC").Limit(10).Find(&latest).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching latest users")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"counts":      counts,
		"latestUsers": latest,
	})
}

// ListUsers supports the admin user table: paginated, with an optional
// case-insensitive search over name and email.
func (h *DashboardHandler) ListUsers(c *fiber.Ctx) error {
	params := utils.ParsePagination(c)

	query := h.DB.Model(&models.User{})
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		if !models.ValidUserRole(models.UserRole(role)) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role filter")
		}
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), params).
		Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching users")
	}

	return utils.Paginated(c, users, params.Page, params.Limit, total)
}

// GetUser returns one user together with their vault counts.
func (h *DashboardHandler) GetUser(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	var cardCount, docCount int64
	if err := h.DB.Model(&models.Card{}).Where("user_id = ?", user.ID).Count(&cardCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting cards")
	}
	if err := h.DB.Model(&models.Document{}).Where("user_id = ?", user.ID).Count(&docCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting documents")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":      user,
		"cards":     cardCount,
		"documents": docCount,
	})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole promotes or demotes a user. The role write and the notification
// land in one transaction. Admins cannot change their own role.
func (h *DashboardHandler) ChangeRole(c *fiber.Ctx) error {
	admin := middleware.GetCurrentUser(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if id == admin.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	role := models.UserRole(strings.TrimSpace(req.Role))
	if !models.ValidUserRole(role) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("role", role).Error; err != nil {
			return err
		}
		notification := models.Notification{
			Target:  user.ID.String(),
			Title:   "Account Role Updated",
			Message: fmt.Sprintf("Your account role is now %s.", role),
		}
		return tx.Create(&notification).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed changing role")
	}

	logger.InfoWithUser(admin.ID.String(), "user_role_changed", map[string]interface{}{
		"target_user": user.ID.String(),
		"new_role":    string(role),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &admin.ID,
		Action:       "user.role_change",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details: map[string]interface{}{
			"old_role": string(user.Role),
			"new_role": string(role),
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	user.Role = role
	return utils.Success(c, fiber.StatusOK, user)
}

type reportData struct {
	GeneratedAt   time.Time
	Users         []models.User
	Verifications []models.VerificationRequest
	Deletions     []models.DeletionRequest
	Feedback      []models.Feedback
}

func (h *DashboardHandler) collectReport() (*reportData, error) {
	data := &reportData{GeneratedAt: time.Now()}
	if err := h.DB.Order("created_at DESC").Find(&data.Users).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Order("created_at DESC").Find(&data.Verifications).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Order("created_at DESC").Find(&data.Deletions).Error; err != nil {
		return nil, err
	}
	if err := h.DB.Order("created_at DESC").Find(&data.Feedback).Error; err != nil {
		return nil, err
	}
	return data, nil
}

// Export streams the console report. csv writes one file with a section per
// table; html renders a printable page.
func (h *DashboardHandler) Export(c *fiber.Ctx) error {
	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "html" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or html")
	}

	data, err := h.collectReport()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed collecting report data")
	}

	if format == "html" {
		return h.exportHTML(c, data)
	}
	return h.exportCSV(c, data)
}

func (h *DashboardHandler) exportCSV(c *fiber.Ctx, data *reportData) error {
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "console-report.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())

	_ = writer.Write([]string{"USERS"})
	_ = writer.Write([]string{"Joined", "Email", "Full Name", "Role", "Status"})
	for _, u := range data.Users {
		_ = writer.Write([]string{
			u.CreatedAt.Format(time.RFC3339),
			u.Email,
			u.FullName,
			string(u.Role),
			string(u.Status),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"VERIFICATION REQUESTS"})
	_ = writer.Write([]string{"Submitted", "User", "Email", "Document Type", "Status"})
	for _, v := range data.Verifications {
		_ = writer.Write([]string{
			v.CreatedAt.Format(time.RFC3339),
			v.UserName,
			v.UserEmail,
			v.DocType,
			string(v.Status),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"DELETION REQUESTS"})
	_ = writer.Write([]string{"Submitted", "Email", "Reason", "Status"})
	for _, d := range data.Deletions {
		_ = writer.Write([]string{
			d.CreatedAt.Format(time.RFC3339),
			d.UserEmail,
			d.Reason,
			string(d.Status),
		})
	}

	_ = writer.Write([]string{})
	_ = writer.Write([]string{"FEEDBACK"})
	_ = writer.Write([]string{"Submitted", "User", "Email", "Type", "Text"})
	for _, f := range data.Feedback {
		_ = writer.Write([]string{
			f.CreatedAt.Format(time.RFC3339),
			f.UserName,
			f.UserEmail,
			f.Type,
			f.Text,
		})
	}

	writer.Flush()
	return nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Console Report</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
h1 { font-size: 1.4rem; }
h2 { font-size: 1.1rem; margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; font-size: 0.85rem; }
th { background: #f4f4f4; }
</style>
</head>
<body>
<h1>Console Report</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>

<h2>Users ({{len .Users}})</h2>
<table>
<tr><th>Joined</th><th>Email</th><th>Name</th><th>Role</th><th>Status</th></tr>
{{range .Users}}<tr><td>{{.CreatedAt.Format "2006-01-02"}}</td><td>{{.Email}}</td><td>{{.FullName}}</td><td>{{.Role}}</td><td>{{.Status}}</td></tr>
{{end}}</table>

<h2>Verification Requests ({{len .Verifications}})</h2>
<table>
<tr><th>Submitted</th><th>User</th><th>Email</th><th>Document</th><th>Status</th></tr>
{{range .Verifications}}<tr><td>{{.CreatedAt.Format "2006-01-02"}}</td><td>{{.UserName}}</td><td>{{.UserEmail}}</td><td>{{.DocType}}</td><td>{{.Status}}</td></tr>
{{end}}</table>

<h2>Deletion Requests ({{len .Deletions}})</h2>
<table>
<tr><th>Submitted</th><th>Email</th><th>Reason</th><th>Status</th></tr>
{{range .Deletions}}<tr><td>{{.CreatedAt.Format "2006-01-02"}}</td><td>{{.UserEmail}}</td><td>{{.Reason}}</td><td>{{.Status}}</td></tr>
{{end}}</table>

<h2>Feedback ({{len .Feedback}})</h2>
<table>
<tr><th>Submitted</th><th>User</th><th>Type</th><th>Text</th></tr>
{{range .Feedback}}<tr><td>{{.CreatedAt.Format "2006-01-02"}}</td><td>{{.UserName}}</td><td>{{.Type}}</td><td>{{.Text}}</td></tr>
{{end}}</table>
</body>
</html>`))

func (h *DashboardHandler) exportHTML(c *fiber.Ctx, data *reportData) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return reportTemplate.Execute(c.Response().BodyWriter(), data)
}
