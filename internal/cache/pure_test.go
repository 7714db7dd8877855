package cache

import (
	"testing"
	"time"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"

	hash1 := hashIP(ip)
	hash2 := hashIP(ip)

	if hash1 != hash2 {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv4 localhost", "127.0.0.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashIP(tt.ip)
			// hashIP uses first 8 bytes of SHA256, encoded as 16 hex chars
			if len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip1  string
		ip2  string
	}{
		{"different IPv4", "192.168.1.1", "192.168.1.2"},
		{"different last octet", "10.0.0.1", "10.0.0.2"},
		{"IPv4 vs IPv6", "127.0.0.1", "::1"},
		{"public vs private", "8.8.8.8", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash1 := hashIP(tt.ip1)
			hash2 := hashIP(tt.ip2)

			if hash1 == hash2 {
				t.Errorf("Different IPs should produce different hashes: %q and %q both produced %s", tt.ip1, tt.ip2, hash1)
			}
		})
	}
}

func TestFixedWindowResult(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)

	tests := []struct {
		name          string
		count         int64
		limit         int64
		ttl           time.Duration
		wantAllowed   bool
		wantRemaining int64
		wantRetry     time.Duration
	}{
		{"first hit", 1, 5, time.Minute, true, 4, 0},
		{"at limit", 5, 5, 20 * time.Second, true, 0, 0},
		{"over limit", 6, 5, 20 * time.Second, false, 0, 20 * time.Second},
		{"far over limit", 40, 5, time.Second, false, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := fixedWindowResult(tt.count, tt.limit, tt.ttl, now)
			if res.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", res.Allowed, tt.wantAllowed)
			}
			if res.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", res.Remaining, tt.wantRemaining)
			}
			if res.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %s, want %s", res.RetryAfter, tt.wantRetry)
			}
			if !res.ResetAt.Equal(now.Add(tt.ttl)) {
				t.Errorf("ResetAt = %s, want %s", res.ResetAt, now.Add(tt.ttl))
			}
			if res.Limit != tt.limit {
				t.Errorf("Limit = %d, want %d", res.Limit, tt.limit)
			}
		})
	}
}

func TestAllowAll(t *testing.T) {
	t.Parallel()

	res := allowAll(5, time.Minute)
	if !res.Allowed || res.Remaining != 5 {
		t.Errorf("allowAll = %+v", res)
	}
}
