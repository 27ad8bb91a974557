package handlers

import (
	"errors"
	"net/http"

	"finagg/internal/middleware"
	"finagg/internal/notify"
)

// PusherAuth signs a private-channel subscription. The channel under
// authorization is the one named in the form body, since that is the value the
// signature covers; users can only subscribe to their own channel, any other
// channel name is rejected outright.
func (h *Handler) PusherAuth(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	channel := r.PostForm.Get("channel_name")
	if channel == "" {
		respondError(w, http.StatusBadRequest, "channel_name is required")
		return
	}
	response, err := h.channels.AuthorizeChannel(user.ID, channel, []byte(r.PostForm.Encode()))
	if errors.Is(err, notify.ErrChannelForbidden) {
		respondError(w, http.StatusForbidden, "channel access denied")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to authorize channel")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response)
}
