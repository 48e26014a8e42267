package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Pricing.Timezone != "Asia/Kathmandu" {
		t.Fatalf("want default timezone Asia/Kathmandu got %q", cfg.Pricing.Timezone)
	}
	if cfg.Reservation.TTL() != 30*time.Minute {
		t.Fatalf("want reservation ttl 30m got %s", cfg.Reservation.TTL())
	}
	if cfg.Pricing.Cache.PricingTTL() != 5*time.Minute {
		t.Fatalf("want pricing ttl 5m got %s", cfg.Pricing.Cache.PricingTTL())
	}
	if cfg.Cart.ShippingCost == "" {
		t.Fatalf("shipping cost default should be set")
	}
}

func TestDurationFallbacks(t *testing.T) {
	var reservation ReservationConfig
	if reservation.TTL() != 30*time.Minute {
		t.Fatalf("zero ttl should fall back to 30m, got %s", reservation.TTL())
	}
	if reservation.SweepInterval() != time.Minute {
		t.Fatalf("zero sweep interval should fall back to 1m, got %s", reservation.SweepInterval())
	}
	var cache PricingCacheConfig
	if cache.LocalTTL() != time.Minute || cache.EventsTTL() != 2*time.Minute {
		t.Fatalf("unexpected cache fallbacks: local=%s events=%s", cache.LocalTTL(), cache.EventsTTL())
	}
	var pricing PricingConfig
	if pricing.ExpiringSoonWindow() != 24*time.Hour {
		t.Fatalf("want 24h expiring window got %s", pricing.ExpiringSoonWindow())
	}
}

func TestLoadSecurityAndServerDefaults(t *testing.T) {
	cfg := Load()
	if cfg.AdminJWT.SecretKey == "" || cfg.AdminJWT.ExpireHours != 12 {
		t.Fatalf("unexpected admin jwt defaults: %+v", cfg.AdminJWT)
	}
	if cfg.Security.PriceRateLimit.MaxRequests != 300 || cfg.Security.CartRateLimit.WindowSeconds != 60 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.Security)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Fatalf("want addr 0.0.0.0:8080 got %s", cfg.Server.Addr())
	}
	if cfg.Server.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("want shutdown timeout 10s got %s", cfg.Server.ShutdownTimeout())
	}
	var server ServerConfig
	if server.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("zero shutdown timeout should fall back to 10s, got %s", server.ShutdownTimeout())
	}
}
