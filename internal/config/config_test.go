package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("Session.TTL = %v, want 24h", cfg.Session.TTL)
	}
	if len(cfg.LiveKit.ICEServers) != 1 {
		t.Fatalf("LiveKit.ICEServers = %v, want one default STUN entry", cfg.LiveKit.ICEServers)
	}
	if cfg.Server.RateLimit != 100 || cfg.Server.RateWindow != time.Minute {
		t.Fatalf("rate limit defaults = %d/%v, want 100/1m", cfg.Server.RateLimit, cfg.Server.RateWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("ICE_SERVERS", "stun:stun.example.com:3478, turn:turn.example.com:3478")
	t.Setenv("LIVEKIT_RECORDING_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("Session.TTL = %v, want 2h", cfg.Session.TTL)
	}
	if len(cfg.LiveKit.ICEServers) != 2 || cfg.LiveKit.ICEServers[1] != "turn:turn.example.com:3478" {
		t.Fatalf("LiveKit.ICEServers = %v, want two trimmed entries", cfg.LiveKit.ICEServers)
	}
	if !cfg.LiveKit.RecordingEnabled {
		t.Fatalf("LiveKit.RecordingEnabled = false, want true")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ENVIRONMENT",
		"SERVER_PORT",
		"SERVER_HOST",
		"SERVER_READ_TIMEOUT",
		"SERVER_WRITE_TIMEOUT",
		"SERVER_ALLOWED_ORIGINS",
		"SERVER_RATE_LIMIT",
		"SERVER_RATE_WINDOW",
		"DATABASE_DSN",
		"DATABASE_MAX_CONNECTIONS",
		"DATABASE_CONN_MAX_LIFETIME",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"JWT_SECRET",
		"JWT_ISSUER",
		"LIVEKIT_URL",
		"LIVEKIT_API_KEY",
		"LIVEKIT_API_SECRET",
		"LIVEKIT_TOKEN_TTL",
		"LIVEKIT_RECORDING_ENABLED",
		"ICE_SERVERS",
		"SESSION_TTL",
		"LOG_LEVEL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
