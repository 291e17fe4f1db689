package utils

import (
	"testing"
	"time"
)

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{}.withDefaults()
	if c.DialTimeout <= 0 || c.PingTimeout <= 0 {
		t.Fatalf("expected default timeouts, got %+v", c)
	}
	// The limiter fails open, so the per-command timeouts must stay well
	// under a request's latency budget.
	if c.ReadTimeout >= time.Second || c.WriteTimeout >= time.Second {
		t.Fatalf("per-command timeouts too loose for a fail-open limiter: %+v", c)
	}
	if c.PoolSize == 0 {
		t.Fatalf("expected default pool size")
	}

	explicit := RedisConfig{PoolSize: 3, ReadTimeout: 100 * time.Millisecond}.withDefaults()
	if explicit.PoolSize != 3 || explicit.ReadTimeout != 100*time.Millisecond {
		t.Fatalf("explicit values must not be overridden: %+v", explicit)
	}
}
