package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := Limiter{Client: client, Prefix: "rl:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 3

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "tenantA:user:u1", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("unexpected remaining after request %d: %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "tenantA:user:u1", window, max)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected request over the limit to be rejected")
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "tenantA:user:u1", window, max)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("expected request after the window to be allowed")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := Limiter{Client: client, Prefix: "rl:"}

	ctx := context.Background()
	window := time.Second
	max := 1

	allowed, _, _, err := limiter.Allow(ctx, "tenantA:user:u1", window, max)
	if err != nil || !allowed {
		t.Fatalf("first tenantA request: allowed=%v err=%v", allowed, err)
	}
	allowed, _, _, _ = limiter.Allow(ctx, "tenantA:user:u1", window, max)
	if allowed {
		t.Fatal("expected tenantA to be over its limit")
	}

	allowed, _, _, err = limiter.Allow(ctx, "tenantB:user:u1", window, max)
	if err != nil || !allowed {
		t.Fatalf("expected tenantB to have its own budget: allowed=%v err=%v", allowed, err)
	}
}

func TestLimiterDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, remaining, _, err := limiter.Allow(context.Background(), "k", time.Second, 5)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed || remaining != 5 {
		t.Fatalf("expected a nil client to allow everything, got allowed=%v remaining=%d", allowed, remaining)
	}
}
