package notify

import (
	"errors"
	"testing"

	"finagg/internal/config"
)

func TestChannelForUser(t *testing.T) {
	if got := ChannelForUser(42); got != "private-user-42" {
		t.Fatalf("unexpected channel: %s", got)
	}
}

func TestAuthorizeChannelRejectsForeignChannel(t *testing.T) {
	emitter := NewEmitter(config.PusherConfig{AppID: "1", Key: "k", Secret: "s", Cluster: "ap2"})
	_, err := emitter.AuthorizeChannel(42, "private-user-7", []byte("channel_name=private-user-7&socket_id=1.1"))
	if !errors.Is(err, ErrChannelForbidden) {
		t.Fatalf("expected ErrChannelForbidden, got %v", err)
	}
	_, err = emitter.AuthorizeChannel(42, "presence-lobby", nil)
	if !errors.Is(err, ErrChannelForbidden) {
		t.Fatalf("expected ErrChannelForbidden, got %v", err)
	}
}

func TestAuthorizeChannelOwnChannel(t *testing.T) {
	emitter := NewEmitter(config.PusherConfig{AppID: "1", Key: "key", Secret: "secret", Cluster: "ap2"})
	response, err := emitter.AuthorizeChannel(42, "private-user-42", []byte("channel_name=private-user-42&socket_id=81981.3166671"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response) == 0 {
		t.Fatal("expected a signed auth response")
	}
}
