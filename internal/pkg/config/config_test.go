package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadContext_Defaults(t *testing.T) {
	cfg, err := LoadContext(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != StoreMongo || cfg.Mongo.Database != "chatapp" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 24*time.Hour || cfg.Redis.DedupTTL != time.Hour {
		t.Fatalf("unexpected durations: %s %s", cfg.TokenTTL, cfg.Redis.DedupTTL)
	}
	if cfg.WS.SendQueue != 64 || cfg.WS.PongWait != 60*time.Second {
		t.Fatalf("unexpected ws defaults: %+v", cfg.WS)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("redis should be enabled by default")
	}
}

func TestLoadContext_Overrides(t *testing.T) {
	cfg, err := LoadContext(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":         "s",
		"STORE_DRIVER":       "MEMORY",
		"WS_ALLOWED_ORIGINS": "http://a.test,http://b.test",
		"REDIS_ENABLED":      "false",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("expected memory driver, got %q", cfg.StoreDriver)
	}
	if len(cfg.WS.AllowedOrigins) != 2 || cfg.WS.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.WS.AllowedOrigins)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("redis should be disabled")
	}
}

func TestLoadContext_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"bad driver":     {"JWT_SECRET": "s", "STORE_DRIVER": "postgres"},
		"ping too slow":  {"JWT_SECRET": "s", "WS_PING_INTERVAL": "2m"},
	}
	for name, env := range cases {
		if _, err := LoadContext(context.Background(), envconfig.MapLookuper(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	_, err := LoadContext(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "s", "WS_SEND_QUEUE": "0"}))
	if err == nil || !strings.Contains(err.Error(), "WS_SEND_QUEUE") {
		t.Fatalf("expected send queue error, got %v", err)
	}
}
