package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finagg/internal/config"
	"finagg/internal/middleware"
	"finagg/internal/notify"
	"finagg/internal/store"
)

func pusherAuthRequest(t *testing.T, userID int64, query, body string) *httptest.ResponseRecorder {
	t.Helper()
	emitter := notify.NewEmitter(config.PusherConfig{AppID: "1", Key: "k", Secret: "secret"})
	handler := New(config.Config{}, nil, &stubUserService{}, &stubConsentService{}, &stubSessionService{}, nil, nil, nil, nil, emitter)

	target := "/pusher/auth"
	if query != "" {
		target += "?" + query
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(middleware.ContextWithUser(req.Context(), store.User{ID: userID}))
	rec := httptest.NewRecorder()
	handler.PusherAuth(rec, req)
	return rec
}

func TestPusherAuthSignsOwnChannel(t *testing.T) {
	rec := pusherAuthRequest(t, 42, "", "channel_name=private-user-42&socket_id=123.456")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Auth string `json:"auth"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("123.456:private-user-42"))
	want := "k:" + hex.EncodeToString(mac.Sum(nil))
	if resp.Auth != want {
		t.Fatalf("signature must cover the body channel, got %q want %q", resp.Auth, want)
	}
}

func TestPusherAuthRejectsForeignChannelInBody(t *testing.T) {
	rec := pusherAuthRequest(t, 42, "", "channel_name=private-user-999&socket_id=123.456")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("body naming another user's channel must be rejected, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPusherAuthIgnoresQueryChannel(t *testing.T) {
	// The signature covers the body channel, so the body is the only value
	// the guard may trust.
	rec := pusherAuthRequest(t, 42, "channel_name=private-user-42", "channel_name=private-user-999&socket_id=123.456")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("query channel must not stand in for the body channel, got %d", rec.Code)
	}
}

func TestPusherAuthRequiresChannelName(t *testing.T) {
	rec := pusherAuthRequest(t, 42, "", "socket_id=123.456")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing channel_name must be rejected, got %d", rec.Code)
	}
}

func TestPusherAuthRejectsMalformedBody(t *testing.T) {
	rec := pusherAuthRequest(t, 42, "", "%zz")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unparseable form body must be rejected, got %d", rec.Code)
	}
}
