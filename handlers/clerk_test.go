package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func clerkUserEvent(eventType, userID, email string) []byte {
	event := map[string]interface{}{
		"type": eventType,
		"data": map[string]interface{}{
			"id":         userID,
			"first_name": "Ada",
			"last_name":  "Lovelace",
			"image_url":  "https://img.clerk.com/ada.png",
			"email_addresses": []map[string]interface{}{
				{
					"email_address": email,
					"verification":  map[string]interface{}{"status": "verified"},
				},
			},
			"created_at": 1717000000000,
			"updated_at": 1717000000000,
		},
	}
	payload, _ := json.Marshal(event)
	return payload
}

func postClerk(env *testEnv, payload []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.server.Router.ServeHTTP(w, req)
	return w
}

func TestClerkWebhook_UserCreated(t *testing.T) {
	env := newTestEnv(t)

	w := postClerk(env, clerkUserEvent("user.created", "user_123", "ada@example.com"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var response map[string]bool
	decodeBody(t, w, &response)
	if !response["success"] {
		t.Errorf("Expected success=true, got %v", response)
	}

	user, err := env.storage.GetUser(context.Background(), "user_123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected user row after user.created")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Expected email 'ada@example.com', got '%s'", user.Email)
	}
	if !user.EmailVerified {
		t.Error("Expected email to be verified")
	}
	if user.Name != "Ada Lovelace" {
		t.Errorf("Expected name 'Ada Lovelace', got '%s'", user.Name)
	}
}

func TestClerkWebhook_UserDeleted(t *testing.T) {
	env := newTestEnv(t)

	postClerk(env, clerkUserEvent("user.created", "user_123", "ada@example.com"))

	payload, _ := json.Marshal(map[string]interface{}{
		"type": "user.deleted",
		"data": map[string]interface{}{"id": "user_123", "deleted": true},
	})
	w := postClerk(env, payload)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	user, err := env.storage.GetUser(context.Background(), "user_123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user != nil {
		t.Error("Expected user row to be gone after user.deleted")
	}
}

func TestClerkWebhook_DeletedWithoutID(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"type": "user.deleted",
		"data": map[string]interface{}{"deleted": true},
	})
	w := postClerk(env, payload)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var response map[string]string
	decodeBody(t, w, &response)
	if response["error"] != "invalid user id" {
		t.Errorf("Expected error 'invalid user id', got '%s'", response["error"])
	}
}

func TestClerkWebhook_UnrecognizedEventIgnored(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"type": "session.created",
		"data": map[string]interface{}{"id": "sess_123"},
	})
	w := postClerk(env, payload)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]bool
	decodeBody(t, w, &response)
	if !response["ignored"] {
		t.Errorf("Expected ignored=true, got %v", response)
	}
}

func TestClerkWebhook_InvalidEnvelope(t *testing.T) {
	env := newTestEnv(t)

	for _, payload := range []string{"not json", "{}", `{"type":"user.created"}`} {
		w := postClerk(env, []byte(payload))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Payload %q: expected status %d, got %d", payload, http.StatusBadRequest, w.Code)
		}
	}
}

func TestClerkWebhook_BadSignature(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.ClerkVerifier = failingVerifier{}
	})

	w := postClerk(env, clerkUserEvent("user.created", "user_123", "ada@example.com"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	user, _ := env.storage.GetUser(context.Background(), "user_123")
	if user != nil {
		t.Error("Expected no user row after rejected delivery")
	}
}
