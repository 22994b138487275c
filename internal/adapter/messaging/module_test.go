package messaging

import (
	"testing"

	"github.com/polkiloo/orderhub/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	cfg := &config.Config{MessagingURL: "https://example.com", MessagingPhoneID: "1", MessagingToken: "t", MessagingRPS: 5}
	client, err := newClient(clientParams{Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}
