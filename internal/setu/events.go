package setu

// EventKind is the closed set of webhook notifications the aggregator
// delivers. Unknown kinds reach the handler's default arm, which logs them so
// new notification types surface in production instead of vanishing.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventConsentStatus
	EventSessionStatus
)

const (
	eventTypeConsentStatus = "CONSENT_STATUS_UPDATE"
	eventTypeSessionStatus = "SESSION_STATUS_UPDATE"
)

// WebhookEvent is one aggregator notification. Deliveries are at-least-once
// and unordered; consumers treat every field as optional.
type WebhookEvent struct {
	Type          string      `json:"type"`
	ConsentID     string      `json:"consentId"`
	DataSessionID string      `json:"dataSessionId"`
	Data          EventData   `json:"data"`
	Error         *EventError `json:"error"`
}

type EventData struct {
	Status string `json:"status"`
}

type EventError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e WebhookEvent) Kind() EventKind {
	switch e.Type {
	case eventTypeConsentStatus:
		return EventConsentStatus
	case eventTypeSessionStatus:
		return EventSessionStatus
	}
	return EventUnknown
}
