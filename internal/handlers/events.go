package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"finagg/internal/services"
	"finagg/internal/setu"
)

// SetuWebhook receives aggregator notifications. The endpoint always answers
// 200 for a parseable body: the aggregator redelivers on any other status,
// and every handler downstream is idempotent, so absorbing is the safe
// default. Unknown event types land in the default arm and get logged.
func (h *Handler) SetuWebhook(w http.ResponseWriter, r *http.Request) {
	var event setu.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var err error
	switch event.Kind() {
	case setu.EventConsentStatus:
		err = h.consents.HandleConsentStatusEvent(r.Context(), event)
	case setu.EventSessionStatus:
		err = h.sessions.HandleSessionStatusEvent(r.Context(), event)
	default:
		log.Printf("webhook: unhandled event type %q (consent %s)", event.Type, event.ConsentID)
	}
	if err != nil {
		// Logged and still 200: a redelivery would hit the same error, and
		// the idempotent handlers make a later manual retry safe.
		log.Printf("webhook: %s: %v", event.Type, err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

type keycloakEvent struct {
	Type    string `json:"type"`
	UserID  string `json:"userId"`
	Details struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"details"`
}

// KeycloakWebhook mirrors identity-provider events into the local user table.
func (h *Handler) KeycloakWebhook(w http.ResponseWriter, r *http.Request) {
	var event keycloakEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var err error
	switch event.Type {
	case "REGISTER":
		err = h.userService.Register(r.Context(), services.RegisterInput{
			KeycloakUserID: event.UserID,
			FirstName:      event.Details.FirstName,
			LastName:       event.Details.LastName,
			Email:          event.Details.Email,
		})
	case "VERIFY_EMAIL":
		err = h.userService.MarkEmailVerified(r.Context(), event.UserID)
	default:
		log.Printf("webhook: ignoring keycloak event %q", event.Type)
	}
	if err != nil {
		log.Printf("webhook: keycloak %s: %v", event.Type, err)
		respondError(w, http.StatusInternalServerError, "event processing failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
