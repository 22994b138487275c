package identity

import (
	"testing"

	"github.com/polkiloo/orderhub/internal/config"
)

func TestNewClientUsesConfig(t *testing.T) {
	client, err := newClient(clientParams{Config: &config.Config{IdentityURL: "https://id.example.com"}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client == nil {
		t.Fatal("expected client instance")
	}
}
