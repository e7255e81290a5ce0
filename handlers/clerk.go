package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"versator.app/cloud/identity"
	"versator.app/cloud/internal/logger"
)

const maxWebhookBodyBytes = int64(65536)

// ClerkWebhook ingests identity provider events: verify, parse,
// dispatch. Redelivery is the vendor's job; any failure here simply
// surfaces a status code for their retry policy to act on.
func (s *Server) ClerkWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read clerk webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := s.clerkVerifier.Verify(payload, r.Header); err != nil {
		logger.Error("Clerk webhook signature verification failed", map[string]interface{}{
			"error":       err.Error(),
			"remote_addr": r.RemoteAddr,
		})
		writeErrorResponse(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event identity.Event
	if err := json.Unmarshal(payload, &event); err != nil || event.Type == "" || len(event.Data) == 0 {
		logger.Error("Invalid clerk webhook envelope", map[string]interface{}{
			"payload_size": len(payload),
		})
		writeErrorResponse(w, http.StatusBadRequest, "invalid event")
		return
	}

	handled, err := s.identity.HandleEvent(ctx, &event)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidUserID) {
			writeErrorResponse(w, http.StatusBadRequest, "invalid user id")
			return
		}
		internalError(w, "Failed to handle clerk event", err, map[string]interface{}{
			"event_type": event.Type,
		})
		return
	}

	if !handled {
		writeJSON(w, http.StatusOK, map[string]bool{"ignored": true})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
