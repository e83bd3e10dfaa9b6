package middleware

import (
	"time"

	"github.com/deshiwallet/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

// RequestLogger tags every request with an id and emits one access-log line
// after the handler runs. Bodies go through the logger's redaction so PINs,
// CVVs and passwords never reach the log stream.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		statusCode := c.Response().StatusCode()
		details := map[string]interface{}{
			"method":        c.Method(),
			"path":          c.Path(),
			"status_code":   statusCode,
			"latency_ms":    time.Since(start).Milliseconds(),
			"user_agent":    c.Get("User-Agent"),
			"ip":            c.IP(),
			"request_body":  logger.RequestBodySummary(c),
			"response_body": logger.ResponseSizeSummary(c),
			"request_id":    requestID,
		}

		if user := GetCurrentUser(c); user != nil {
			if statusCode >= 400 {
				logger.ErrorWithUser(user.ID.String(), "http_request", err, details)
			} else {
				logger.InfoWithUser(user.ID.String(), "http_request", details)
			}
			return err
		}

		if statusCode >= 400 {
			logger.Error("http_request", err, details)
		} else {
			logger.Info("http_request", details)
		}
		return err
	}
}

// SecurityLogger records denied and probing requests. A locked vault (423)
// is logged too: repeated hits there are a session poking at the PIN gate.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		var reason string
		switch c.Response().StatusCode() {
		case fiber.StatusForbidden:
			reason = "access_denied"
		case fiber.StatusNotFound:
			reason = "not_found"
		case fiber.StatusLocked:
			reason = "vault_locked"
		default:
			return err
		}

		details := map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"ip":     c.IP(),
			"reason": reason,
		}

		if user := GetCurrentUser(c); user != nil {
			logger.WarnWithUser(user.ID.String(), reason, details)
		} else {
			logger.Warn(reason+"_unauthenticated", details)
		}
		return err
	}
}
