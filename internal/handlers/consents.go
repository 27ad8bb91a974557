package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finagg/internal/middleware"
	"finagg/internal/models"
	"finagg/internal/services"
)

type linkBankRequest struct {
	Phone     string   `json:"phone"`
	FITypes   []string `json:"fiTypes"`
	FetchType string   `json:"fetchType"`
}

const (
	defaultPurposeCode = "101"
	defaultPurposeText = "Wealth management service"
	dataRangeYears     = 1
	consentExpiryDays  = 30
)

// LinkBank starts a bank-linking flow: pending consents are superseded, a
// fresh consent is created with the aggregator and the redirect URL returned
// for the client to complete approval.
func (h *Handler) LinkBank(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req linkBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}
	fiTypes := make([]models.FIType, 0, len(req.FITypes))
	for _, raw := range req.FITypes {
		fiTypes = append(fiTypes, models.NormalizeFIType(raw))
	}
	if len(fiTypes) == 0 {
		fiTypes = []models.FIType{models.FITypeDeposit}
	}
	fetchType := models.FetchOnetime
	if req.FetchType == string(models.FetchPeriodic) {
		fetchType = models.FetchPeriodic
	}

	profile, err := h.userService.Profile(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load profile")
		return
	}

	now := time.Now().UTC()
	result, err := h.consents.CreateConsentURL(r.Context(), services.LinkBankRequest{
		UserID:        user.ID,
		PanID:         profile.PanID,
		VUA:           req.Phone + "@onemoney",
		FITypes:       fiTypes,
		FetchType:     fetchType,
		DataRangeFrom: now.AddDate(-dataRangeYears, 0, 0),
		DataRangeTo:   now,
		ConsentExpiry: now.AddDate(0, 0, consentExpiryDays),
		DataLifeUnit:  "MONTH",
		DataLifeValue: 1,
		PurposeCode:   defaultPurposeCode,
		PurposeText:   defaultPurposeText,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "unable to create consent")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"consent_id":   result.ConsentID,
		"redirect_url": result.RedirectURL,
		"fi_types":     result.GrantedTypes,
	})
}

// LatestConsent reports the newest consent of the user with its granted FI
// types and, for rejected consents, the recorded cancellation reasons.
func (h *Handler) LatestConsent(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	consent, err := h.consentStore.LatestByUser(r.Context(), user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "no consent found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load consent")
		return
	}
	fiTypes, err := h.consentStore.ListFITypes(r.Context(), consent.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load consent")
		return
	}
	types := make([]string, 0, len(fiTypes))
	for _, fiType := range fiTypes {
		if fiType.Status == models.FITypeStatusActive {
			types = append(types, string(fiType.FIType))
		}
	}
	response := map[string]any{
		"consent_id":   consent.ConsentID,
		"status":       consent.Status,
		"fetch_type":   consent.FetchType,
		"fi_types":     types,
		"redirect_url": consent.RedirectURL,
		"created_at":   consent.CreatedAt,
	}
	if consent.Status == models.ConsentRejected {
		reasons, err := h.consentStore.ListCancellationReasons(r.Context(), []int64{consent.ID})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to load consent")
			return
		}
		response["cancellation_reasons"] = reasons
	}
	respondJSON(w, http.StatusOK, response)
}
