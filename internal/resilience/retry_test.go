package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venture-galaxy/matchmaker/internal/config"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterTransient(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return Transient("upload", errors.New("reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_StopsOnPermanent(t *testing.T) {
	var calls int
	perm := errors.New("550 permission denied")
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls, retries int
	cfg := fastRetry(4)
	cfg.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return Transient("upload", errors.New("timeout"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 4 || retries != 3 {
		t.Errorf("calls=%d retries=%d", calls, retries)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	var calls int
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		cancel()
		return Transient("upload", errors.New("reset"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal(t *testing.T) {
	var calls int
	url, err := DoVal(context.Background(), fastRetry(2), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", Transient("upload", errors.New("busy"))
		}
		return "https://files.example.com/a.xlsx", nil
	})
	if err != nil || url != "https://files.example.com/a.xlsx" {
		t.Fatalf("got %q, %v", url, err)
	}
}

func TestBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second})
	if d := backoff(0, cfg); d != time.Second {
		t.Errorf("attempt 0 = %s", d)
	}
	if d := backoff(10, cfg); d != 3*time.Second {
		t.Errorf("attempt 10 = %s", d)
	}
}

func TestUploadRetry(t *testing.T) {
	cfg := UploadRetry(config.ArtifactConfig{UploadAttempts: 5, UploadBackoffMs: 200})
	if cfg.MaxAttempts != 5 {
		t.Errorf("attempts = %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 200*time.Millisecond {
		t.Errorf("backoff = %s", cfg.InitialBackoff)
	}
	if cfg.OnRetry == nil {
		t.Error("expected retry logger")
	}
}
