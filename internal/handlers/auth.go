package handlers

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/deshiwallet/backend/internal/config"
	"github.com/deshiwallet/backend/internal/middleware"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/internal/services"
	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/deshiwallet/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB      *gorm.DB
	Audit   *services.AuditService
	PinLock *services.PinLockService
	Admin   config.AdminConfig
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService, pinLock *services.PinLockService, admin config.AdminConfig) *AuthHandler {
	return &AuthHandler{DB: db, Audit: audit, PinLock: pinLock, Admin: admin}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	if req.FullName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "fullName is required")
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	// The configured admin address bootstraps straight into a verified admin
	// profile; everyone else starts as an unverified user.
	role := models.UserRoleUser
	status := models.VerificationPending
	if req.Email == strings.ToLower(h.Admin.Email) {
		role = models.UserRoleAdmin
		status = models.VerificationVerified
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		DateOfBirth:  strings.TrimSpace(req.DOB),
		Status:       status,
		Role:         role,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	firstName := user.FullName
	if idx := strings.IndexByte(firstName, ' '); idx > 0 {
		firstName = firstName[:idx]
	}

	welcome := models.Notification{
		Target: user.ID.String(),
		Title:  "Welcome to Deshi Wallet!",
		Message: fmt.Sprintf(
			"Hello %s! Your premium digital vault is now ready. Start securing your identity by adding your cards and documents.",
			firstName,
		),
	}
	if err := h.DB.Create(&welcome).Error; err != nil {
		logger.Error("welcome_notification_failed", err, map[string]interface{}{
			"user_id": user.ID.String(),
		})
	}

	adminAlert := models.Notification{
		Target:  models.NotificationTargetAdminAlert,
		Title:   "New User Registered",
		Message: fmt.Sprintf("A new user named %s (%s) has just joined the platform.", user.FullName, user.Email),
	}
	if err := h.DB.Create(&adminAlert).Error; err != nil {
		logger.Error("admin_alert_notification_failed", err, map[string]interface{}{
			"user_id": user.ID.String(),
		})
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "user.register",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details: map[string]interface{}{
			"email": user.Email,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"email":   req.Email,
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"ip":      c.IP(),
	})

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &user.ID,
		Action:       "user.login",
		ResourceType: "user",
		ResourceID:   &user.ID,
		Details: map[string]interface{}{
			"email": user.Email,
		},
		IPAddress: c.IP(),
		RequestID: getRequestID(c),
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":     user,
		"unlocked": h.PinLock.Unlocked(middleware.GetSessionToken(c), user),
	})
}

type updateMeRequest struct {
	FullName     *string `json:"fullName"`
	DOB          *string `json:"dob"`
	ProfilePhoto *string `json:"profilePhoto"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		value := strings.TrimSpace(*req.FullName)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "fullName cannot be empty")
		}
		updates["full_name"] = value
	}
	if req.DOB != nil {
		updates["date_of_birth"] = strings.TrimSpace(*req.DOB)
	}
	if req.ProfilePhoto != nil {
		trimmed := strings.TrimSpace(*req.ProfilePhoto)
		if trimmed == "" {
			updates["profile_photo_url"] = nil
		} else {
			updates["profile_photo_url"] = trimmed
		}
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated profile")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.profile_update",
		ResourceType: "user",
		ResourceID:   &currentUser.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, updated)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if !utils.CheckPassword(req.OldPassword, currentUser.PasswordHash) {
		return utils.Error(c, fiber.StatusUnauthorized, "current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).
		Update("password_hash", hash).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating password")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.password_change",
		ResourceType: "user",
		ResourceID:   &currentUser.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

// SetPin stores a new 4-6 digit app PIN, encrypted at rest.
func (h *AuthHandler) SetPin(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req setPinRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	pin := strings.TrimSpace(req.Pin)
	if len(pin) < 4 || len(pin) > 6 || !isDigits(pin) {
		return utils.Error(c, fiber.StatusBadRequest, "pin must be 4 to 6 digits")
	}

	encrypted, err := utils.EncryptAESGCM(pin)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed securing pin")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).
		Update("app_pin", encrypted).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating pin")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "user.pin_change",
		ResourceType: "user",
		ResourceID:   &currentUser.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "pin updated"})
}

type pinProtectionRequest struct {
	Enabled bool `json:"enabled"`
}

// SetPinProtection toggles the lock gate. Enabling requires a PIN on file.
func (h *AuthHandler) SetPinProtection(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req pinProtectionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Enabled && (currentUser.AppPin == nil || *currentUser.AppPin == "") {
		return utils.Error(c, fiber.StatusBadRequest, "set a PIN first")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).
		Update("pin_protection_enabled", req.Enabled).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating protection status")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"pinProtectionEnabled": req.Enabled})
}

func (h *AuthHandler) PinState(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	token := middleware.GetSessionToken(c)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"unlocked":  h.PinLock.Unlocked(token, currentUser),
		"pinLength": h.PinLock.PinLength(currentUser),
	})
}

type pinPressRequest struct {
	Digit     string `json:"digit"`
	Backspace bool   `json:"backspace"`
}

// PinPress feeds one keypad press into the session's lock gate.
func (h *AuthHandler) PinPress(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req pinPressRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	token := middleware.GetSessionToken(c)
	if req.Backspace {
		return utils.Success(c, fiber.StatusOK, h.PinLock.Backspace(token, currentUser))
	}

	if len(req.Digit) != 1 || !isDigits(req.Digit) {
		return utils.Error(c, fiber.StatusBadRequest, "digit must be a single character 0-9")
	}

	return utils.Success(c, fiber.StatusOK, h.PinLock.Press(token, currentUser, req.Digit))
}
