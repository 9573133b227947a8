package config

import (
	"testing"

	internalconfig "github.com/foxseedlab/tsunagin/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("AGENT_CREDENTIALS", "alice:secret:agent")
	t.Setenv("TRANSCRIBE_SOCKET_URL", "wss://stt.example/v1/listen")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if !cfg.AuthRequired {
		t.Fatal("expected auth required by default")
	}
	if cfg.BroadcastScope != internalconfig.BroadcastScopeManagers {
		t.Fatalf("unexpected broadcast scope: %s", cfg.BroadcastScope)
	}
	if cfg.TranscribeProvider != internalconfig.TranscribeProviderLiveSocket {
		t.Fatalf("unexpected provider: %s", cfg.TranscribeProvider)
	}
	if cfg.PendingFrameLimit != 512 {
		t.Fatalf("unexpected pending frame limit: %d", cfg.PendingFrameLimit)
	}
	if cfg.ProviderDialTimeoutSec != 15 {
		t.Fatalf("unexpected dial timeout: %d", cfg.ProviderDialTimeoutSec)
	}
}

func TestLoad_OverridesApplied(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "development")
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("BROADCAST_SCOPE", "all")
	t.Setenv("PENDING_FRAME_LIMIT", "64")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode")
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.AuthRequired {
		t.Fatal("expected auth disabled")
	}
	if cfg.BroadcastScope != internalconfig.BroadcastScopeAll {
		t.Fatalf("unexpected broadcast scope: %s", cfg.BroadcastScope)
	}
	if cfg.PendingFrameLimit != 64 {
		t.Fatalf("unexpected pending frame limit: %d", cfg.PendingFrameLimit)
	}
}

func TestLoad_ValidationFailureSurfaces(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BROADCAST_SCOPE", "everyone")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for unknown broadcast scope")
	}
}
