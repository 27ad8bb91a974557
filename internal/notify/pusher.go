// Package notify delivers user-facing real-time events over per-user private
// Pusher channels.
package notify

import (
	"errors"
	"fmt"

	"finagg/internal/config"

	"github.com/pusher/pusher-http-go/v5"
)

// Event names the ingestion pipeline emits.
const (
	EventSessionCompleted      = "session-completed"
	EventDataFetchingCompleted = "data-fetching-completed"
)

var ErrChannelForbidden = errors.New("unauthorized channel access")

type Emitter struct {
	client pusher.Client
}

func NewEmitter(cfg config.PusherConfig) *Emitter {
	return &Emitter{
		client: pusher.Client{
			AppID:   cfg.AppID,
			Key:     cfg.Key,
			Secret:  cfg.Secret,
			Cluster: cfg.Cluster,
			Secure:  true,
		},
	}
}

func ChannelForUser(userID int64) string {
	return fmt.Sprintf("private-user-%d", userID)
}

// Notify triggers a named event on the user's private channel. Callers in the
// ingestion path treat failures as best-effort: log and move on.
func (e *Emitter) Notify(userID int64, event string, payload any) error {
	return e.client.Trigger(ChannelForUser(userID), event, payload)
}

// AuthorizeChannel signs a private-channel subscription only when the
// requested channel is the authenticated user's own; every other channel name
// is a capability violation.
func (e *Emitter) AuthorizeChannel(userID int64, channel string, params []byte) ([]byte, error) {
	if channel != ChannelForUser(userID) {
		return nil, ErrChannelForbidden
	}
	return e.client.AuthorizePrivateChannel(params)
}
