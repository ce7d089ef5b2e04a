package api

import (
	"testing"
	"time"
)

func TestDebugAddrStaysLocal(t *testing.T) {
	tests := []struct {
		name string
		cfg  ObservabilityConfig
		want string
	}{
		{"empty", ObservabilityConfig{}, defaultDebugAddr},
		{"loopback", ObservabilityConfig{ListenAddr: "127.0.0.1:7070"}, "127.0.0.1:7070"},
		{"localhost", ObservabilityConfig{ListenAddr: "localhost:6061"}, "localhost:6061"},
		{"ipv6 loopback", ObservabilityConfig{ListenAddr: "[::1]:6060"}, "[::1]:6060"},
		{"public forced", ObservabilityConfig{ListenAddr: "0.0.0.0:6060"}, defaultDebugAddr},
		{"public allowed", ObservabilityConfig{ListenAddr: "0.0.0.0:6060", AllowExternal: true}, "0.0.0.0:6060"},
		{"garbage", ObservabilityConfig{ListenAddr: "nope"}, defaultDebugAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := debugAddr(tt.cfg); got != tt.want {
				t.Errorf("debugAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenEqual(t *testing.T) {
	if !tokenEqual("abc", "abc") {
		t.Error("equal tokens should match")
	}
	if tokenEqual("abc", "abcd") || tokenEqual("", "x") {
		t.Error("different tokens should not match")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")
	if rl.Allow("10.0.0.1") {
		t.Error("second request within the burst window should be rejected")
	}

	now = now.Add(3 * time.Hour)
	rl.Allow("10.0.0.2")
	if removed := rl.cleanup(); removed != 1 {
		t.Errorf("Expected 1 stale limiter removed, got %d", removed)
	}
	if s := rl.Stats(); s.Allowed != 2 || s.Rejected != 1 {
		t.Errorf("Expected 2 allowed / 1 rejected, got %+v", s)
	}
}

func TestConnLimiter(t *testing.T) {
	cl := NewConnLimiter(2)
	if !cl.Allow("a") || !cl.Allow("a") {
		t.Fatal("first two connections should be allowed")
	}
	if cl.Allow("a") {
		t.Error("third connection should be rejected")
	}
	cl.Release("a")
	if cl.Count("a") != 1 || !cl.Allow("a") {
		t.Error("release should free a slot")
	}
}
