package handlers

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/deshiwallet/backend/internal/models"
)

func TestPrivacyEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "privacy-user@test.com", "password123", models.UserRoleUser)

	createTestCard(t, env.db, user.ID.String(), "Privacy Bank", "4111111111111111", "12/30")

	t.Run("GET /api/privacy/export json masks card numbers", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/privacy/export?format=json", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataMap(t, body)
		cards := data["cards"].([]any)
		if len(cards) != 1 {
			t.Fatalf("expected one exported card, got %d", len(cards))
		}
		card := cards[0].(map[string]any)
		masked := card["maskedNumber"].(string)
		if !strings.HasSuffix(masked, "1111") || strings.Contains(masked, "4111111111111111") {
			t.Fatalf("expected masked number, got %q", masked)
		}
		if _, present := card["cvv"]; present {
			t.Fatalf("cvv must never appear in an export")
		}
	})

	t.Run("GET /api/privacy/export csv has profile and card sections", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/privacy/export?format=csv", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("failed reading export: %v", err)
		}
		content := string(raw)
		for _, section := range []string{"PROFILE", "CARDS", "DOCUMENTS", "NOTIFICATIONS"} {
			if !strings.Contains(content, section) {
				t.Fatalf("export missing section %q", section)
			}
		}
		if strings.Contains(content, "4111111111111111") {
			t.Fatalf("full card number leaked into export")
		}
	})

	t.Run("GET /api/privacy/export rejects unknown format", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/privacy/export?format=xml", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "format must be csv or json")
	})

	t.Run("GET /api/privacy/activity lists own audit trail", func(t *testing.T) {
		// The export above was recorded asynchronously; give the queue a beat.
		deadline := time.Now().Add(2 * time.Second)
		var count int64
		for time.Now().Before(deadline) {
			env.db.Model(&models.AuditLog{}).Where("user_id = ?", user.ID).Count(&count)
			if count > 0 {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		if count == 0 {
			t.Fatalf("expected audit rows for user")
		}

		resp := performRequest(t, env.app, http.MethodGet, "/api/privacy/activity", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		logs := dataSlice(t, body)
		if len(logs) == 0 {
			t.Fatalf("expected activity entries")
		}
		if logs[0].(map[string]any)["action"] != "privacy.export" {
			t.Fatalf("expected privacy.export action, got %v", logs[0])
		}
	})
}
