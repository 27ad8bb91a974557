package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"finagg/internal/middleware"
	"finagg/internal/services"
)

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.userService.Profile(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":                profile.User.ID,
		"first_name":        profile.User.FirstName,
		"last_name":         profile.User.LastName,
		"email":             profile.User.Email,
		"email_verified":    profile.User.EmailVerified,
		"is_setup_complete": profile.User.IsSetupComplete,
		"pan":               profile.PanMasked,
	})
}

// VerifyPAN validates and verifies the submitted PAN upstream, then stores
// it encrypted. The response never echoes the PAN back.
func (h *Handler) VerifyPAN(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		PAN string `json:"pan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	pancardID, err := h.userService.VerifyAndStorePAN(r.Context(), user.ID, req.PAN)
	switch {
	case errors.Is(err, services.ErrInvalidPAN):
		respondError(w, http.StatusBadRequest, "invalid pan format")
		return
	case errors.Is(err, services.ErrPANTaken):
		respondError(w, http.StatusConflict, "pan already linked to another account")
		return
	case errors.Is(err, services.ErrPANVerification):
		respondError(w, http.StatusUnprocessableEntity, "pan verification failed")
		return
	case err != nil:
		respondError(w, http.StatusBadGateway, "unable to verify pan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"pancard_id": pancardID,
		"status":     "VERIFIED",
	})
}
