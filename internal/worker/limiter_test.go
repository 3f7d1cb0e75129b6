package worker

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "user-1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "user-2"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow("user-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "user-1"); err == nil {
		t.Error("expected error waiting past the deadline")
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("user-1") {
		t.Error("first request should pass")
	}
	if limiter.Allow("user-1") {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("user-2") {
		t.Error("expected allow for another user")
	}
	if d := limiter.RetryAfter("user-1"); d <= 0 {
		t.Errorf("expected positive retry delay, got %v", d)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !limiter.Allow("user-1") {
			t.Fatalf("request %d rejected with limiting disabled", i)
		}
	}
}

func TestLimiter_PruneKeepsBusyBuckets(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	limiter.Allow("busy")
	limiter.getLimiter("idle")

	if n := limiter.Prune(); n != 1 {
		t.Errorf("expected 1 pruned bucket, got %d", n)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected 1 remaining bucket, got %d", limiter.Len())
	}
	if limiter.Allow("busy") {
		t.Error("pruning must not refill a drained bucket")
	}
}

func TestLimiter_PruneRefilled(t *testing.T) {
	limiter := NewLimiter(1000, 1)
	for i := 0; i < 50; i++ {
		limiter.Allow(fmt.Sprintf("user-%d", i))
	}
	time.Sleep(20 * time.Millisecond)

	if n := limiter.Prune(); n != 50 {
		t.Errorf("expected all 50 refilled buckets pruned, got %d", n)
	}
	if limiter.Len() != 0 {
		t.Errorf("expected empty limiter, got %d keys", limiter.Len())
	}
}

func TestLimiter_PruneDisabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	limiter.Allow("a")
	limiter.Allow("b")

	if n := limiter.Prune(); n != 2 {
		t.Errorf("expected 2 pruned buckets, got %d", n)
	}
}
