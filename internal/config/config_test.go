package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CHECKOUT_RESET_DELAY", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("want default port 8080, got %q", cfg.Port)
	}
	if cfg.CheckoutResetDelay != 3*time.Second {
		t.Fatalf("want 3s reset delay, got %s", cfg.CheckoutResetDelay)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redis should be off by default, got %q", cfg.RedisAddr)
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("X_DELAY", "1500")
	if got := GetDuration("X_DELAY", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("millis: got %s", got)
	}
	t.Setenv("X_DELAY", "2m")
	if got := GetDuration("X_DELAY", time.Second); got != 2*time.Minute {
		t.Fatalf("duration string: got %s", got)
	}
	t.Setenv("X_DELAY", "soon")
	if got := GetDuration("X_DELAY", time.Second); got != time.Second {
		t.Fatalf("invalid should fall back, got %s", got)
	}
}

func TestGetBool(t *testing.T) {
	t.Setenv("X_FLAG", "true")
	if !GetBool("X_FLAG", false) {
		t.Fatal("expected true")
	}
	t.Setenv("X_FLAG", "nope")
	if GetBool("X_FLAG", false) {
		t.Fatal("invalid should fall back to default")
	}
}
