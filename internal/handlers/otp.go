package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"finagg/internal/middleware"
	"finagg/internal/otp"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !phonePattern.MatchString(req.Phone) {
		respondError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	if err := h.otp.Send(req.Phone); err != nil {
		respondError(w, http.StatusBadGateway, "unable to send otp")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFromContext(r.Context()); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !phonePattern.MatchString(req.Phone) || req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid phone or code")
		return
	}
	err := h.otp.Check(req.Phone, req.Code)
	if errors.Is(err, otp.ErrVerificationFailed) {
		respondError(w, http.StatusUnprocessableEntity, "otp verification failed")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadGateway, "unable to verify otp")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}
