package handlers

import (
	"net/http"
	"testing"

	"github.com/deshiwallet/backend/internal/models"
)

func TestDeletionRequestEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "delete-me@test.com", "password123", models.UserRoleUser)
	_, adminToken := createTestUser(t, env.db, "delete-admin@test.com", "password123", models.UserRoleAdmin)

	createTestCard(t, env.db, user.ID.String(), "Doomed Bank", "4111111111111111", "12/30")

	var requestID string

	t.Run("POST /api/deletion-requests/ requires a reason", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/deletion-requests/", map[string]any{}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "reason is required")
	})

	t.Run("POST /api/deletion-requests/ files request", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/deletion-requests/", map[string]any{
			"reason": "switching banks",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		requestID = dataMap(t, body)["id"].(string)

		var alerts int64
		env.db.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", models.NotificationTargetAdminAlert, "Account Deletion Request").
			Count(&alerts)
		if alerts != 1 {
			t.Fatalf("expected one admin alert, got %d", alerts)
		}
	})

	t.Run("POST /api/deletion-requests/ rejects a second open request", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/deletion-requests/", map[string]any{
			"reason": "still switching",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, body, "a deletion request is already pending")
	})

	t.Run("POST /api/admin/deletion-requests/:id/decline keeps account and notifies", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/deletion-requests/"+requestID+"/decline", map[string]any{
			"feedback": "please contact support first",
		}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if dataMap(t, body)["status"] != "declined" {
			t.Fatalf("expected declined status")
		}

		var notified int64
		env.db.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", user.ID.String(), "Deletion Request Declined").
			Count(&notified)
		if notified != 1 {
			t.Fatalf("expected decline notification")
		}

		var stillThere int64
		env.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&stillThere)
		if stillThere != 1 {
			t.Fatalf("expected account kept after decline")
		}
	})

	t.Run("POST /api/admin/deletion-requests/:id/approve erases account and vault", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/deletion-requests/", map[string]any{
			"reason": "final decision",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		secondID := dataMap(t, body)["id"].(string)

		resp = performJSONRequest(t, env.app, http.MethodPost, "/api/admin/deletion-requests/"+secondID+"/approve", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)

		var users, cards, requests int64
		env.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&users)
		env.db.Model(&models.Card{}).Where("user_id = ?", user.ID).Count(&cards)
		env.db.Model(&models.DeletionRequest{}).Where("user_id = ?", user.ID).Count(&requests)
		if users != 0 || cards != 0 || requests != 0 {
			t.Fatalf("expected account and vault erased, got users=%d cards=%d requests=%d", users, cards, requests)
		}
	})
}

func TestFeedbackEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "feedback-user@test.com", "password123", models.UserRoleUser)
	_, adminToken := createTestUser(t, env.db, "feedback-admin@test.com", "password123", models.UserRoleAdmin)

	var feedbackID string

	t.Run("POST /api/feedback files report and raises typed alert", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/feedback", map[string]any{
			"type": "Bug",
			"text": "the wallet screen flickers",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		feedbackID = dataMap(t, body)["id"].(string)

		var alerts int64
		env.db.Model(&models.Notification{}).
			Where("user_id = ? AND title = ?", models.NotificationTargetAdminAlert, "Report: Bug").
			Count(&alerts)
		if alerts != 1 {
			t.Fatalf("expected one typed admin alert, got %d", alerts)
		}
	})

	t.Run("POST /api/feedback requires type and text", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/feedback", map[string]any{
			"type": "Bug",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "type and text are required")
	})

	t.Run("GET /api/admin/feedback lists reports", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/admin/feedback?unread=true", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		if len(dataSlice(t, body)) != 1 {
			t.Fatalf("expected one unread report")
		}
	})

	t.Run("PUT /api/admin/feedback/:id/read marks handled", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/feedback/"+feedbackID+"/read", nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)

		resp = performRequest(t, env.app, http.MethodGet, "/api/admin/feedback?unread=true", nil, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		if len(dataSlice(t, body)) != 0 {
			t.Fatalf("expected no unread reports after mark read")
		}
	})
}
