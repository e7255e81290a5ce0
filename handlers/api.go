package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"versator.app/cloud/billing"
	"versator.app/cloud/internal/auth"
	"versator.app/cloud/models"
)

// SyncUser makes sure the authenticated user has a local row. The row
// may be a placeholder; the identity webhook fills it in.
func (s *Server) SyncUser(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if err := s.identity.EnsureUser(r.Context(), userID); err != nil {
		internalError(w, "Failed to sync user", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type SubscriptionResponse struct {
	StripeCustomerID *string `json:"stripeCustomerId"`
	SubscriptionPlan string  `json:"subscriptionPlan"`
}

func (s *Server) Subscription(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := s.Storage.GetUser(r.Context(), userID)
	if err != nil {
		internalError(w, "Failed to load user", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}
	if user == nil {
		writeErrorResponse(w, http.StatusNotFound, "user not found")
		return
	}

	response := SubscriptionResponse{SubscriptionPlan: user.SubscriptionPlan}
	if user.StripeCustomerID != "" {
		response.StripeCustomerID = &user.StripeCustomerID
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	url, err := s.billing.CheckoutURL(r.Context(), userID)
	if err != nil {
		internalError(w, "Failed to create checkout session", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type SyncAfterCheckoutRequest struct {
	SessionID string `json:"session_id"`
}

// SyncAfterCheckout backs the success page: pull fresh subscription
// state for the checkout session's customer instead of waiting for the
// webhook to land.
func (s *Server) SyncAfterCheckout(w http.ResponseWriter, r *http.Request) {
	var req SyncAfterCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "session_id required")
		return
	}

	if err := s.billing.SyncAfterCheckout(r.Context(), req.SessionID); err != nil {
		if errors.Is(err, billing.ErrNoCustomer) {
			writeErrorResponse(w, http.StatusBadRequest, "no customer in session")
			return
		}
		internalError(w, "Failed to sync after checkout", err, map[string]interface{}{
			"session_id": req.SessionID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type AdminUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	SubscriptionPlan string `json:"subscriptionPlan"`
	CreatedAt        string `json:"createdAt"`
}

// ListUsers feeds the admin dashboard's user table.
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Storage.ListUsers(r.Context())
	if err != nil {
		internalError(w, "Failed to list users", err, nil)
		return
	}

	response := make([]AdminUser, 0, len(users))
	for _, user := range users {
		response = append(response, adminUser(user))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"users": response})
}

func adminUser(user *models.User) AdminUser {
	return AdminUser{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		SubscriptionPlan: user.SubscriptionPlan,
		CreatedAt:        user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
