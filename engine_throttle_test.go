package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newThrottledEngine(t *testing.T, cfg Config) (*Engine, *testStores) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	t.Cleanup(mr.Close)

	stores := &testStores{
		users:    newMockUserStore(),
		claims:   newMockClaimStore(),
		activity: newMockActivityStore(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(stores.users).
		WithClaimStore(stores.claims).
		WithLoginActivityStore(stores.activity).
		WithDeviceLocator(staticLocator{device: "test-device", ip: "203.0.113.9"}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, stores
}

func throttleConfig() Config {
	cfg := testConfig()
	cfg.Throttle.Enabled = true
	cfg.Throttle.MaxAttempts = 3
	cfg.Throttle.Cooldown = time.Minute
	return cfg
}

func TestThrottleBlocksAfterBudget(t *testing.T) {
	engine, stores := newThrottledEngine(t, throttleConfig())
	seedUser(t, engine, stores, User{Email: "alice@example.com", Username: "alice"}, "correct-horse-battery")

	for i := 0; i < 3; i++ {
		res, err := engine.SignIn(context.Background(), "alice@example.com", "not-the-password")
		if err != nil {
			t.Fatalf("SignIn attempt %d failed: %v", i, err)
		}
		if res.Status != SignInFailed {
			t.Fatalf("expected Failed, got %s", res.Status)
		}
	}

	_, err := engine.SignIn(context.Background(), "alice@example.com", "correct-horse-battery")
	if !errors.Is(err, ErrSignInThrottled) {
		t.Fatalf("expected ErrSignInThrottled after the budget, got %v", err)
	}

	count, err := engine.FailedAttempts(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 recorded failures, got %d", count)
	}
}

func TestThrottleCountsUnknownIdentifiers(t *testing.T) {
	cfg := throttleConfig()
	cfg.Throttle.PerIP = false
	engine, _ := newThrottledEngine(t, cfg)

	// Attempts against a nonexistent account spend the same budget as wrong
	// passwords, so the throttle cannot be used to tell which accounts exist.
	for i := 0; i < 3; i++ {
		res, err := engine.SignIn(context.Background(), "ghost@example.com", "not-the-password")
		if err != nil {
			t.Fatalf("SignIn attempt %d failed: %v", i, err)
		}
		if res.Status != SignInFailed {
			t.Fatalf("expected Failed, got %s", res.Status)
		}
	}

	count, err := engine.FailedAttempts(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 recorded failures, got %d", count)
	}

	if _, err := engine.SignIn(context.Background(), "ghost@example.com", "not-the-password"); !errors.Is(err, ErrSignInThrottled) {
		t.Fatalf("expected ErrSignInThrottled after the budget, got %v", err)
	}

	if _, err := engine.SignInWithTOTP(context.Background(), "ghost2@example.com", "not-the-password", "000000"); err != nil {
		t.Fatalf("SignInWithTOTP failed: %v", err)
	}
	count, err = engine.FailedAttempts(context.Background(), "ghost2@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the two-factor path to count the failure, got %d", count)
	}
}

func TestThrottleResetsOnSuccess(t *testing.T) {
	engine, stores := newThrottledEngine(t, throttleConfig())
	seedUser(t, engine, stores, User{Email: "alice@example.com", Username: "alice"}, "correct-horse-battery")

	for i := 0; i < 2; i++ {
		if _, err := engine.SignIn(context.Background(), "alice@example.com", "not-the-password"); err != nil {
			t.Fatalf("SignIn attempt %d failed: %v", i, err)
		}
	}

	res, err := engine.SignIn(context.Background(), "alice@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if res.Status != SignInSuccess {
		t.Fatalf("expected Success, got %s", res.Status)
	}

	count, err := engine.FailedAttempts(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FailedAttempts failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counters cleared on success, got %d", count)
	}
}

func TestAutoLockoutCommitsLockout(t *testing.T) {
	cfg := throttleConfig()
	cfg.Throttle.AutoLockout = true
	cfg.Throttle.LockoutDuration = 30 * time.Minute

	engine, stores := newThrottledEngine(t, cfg)
	user := seedUser(t, engine, stores, User{Email: "alice@example.com", Username: "alice"}, "correct-horse-battery")

	for i := 0; i < 3; i++ {
		res, err := engine.SignIn(context.Background(), "alice@example.com", "not-the-password")
		if err != nil {
			t.Fatalf("SignIn attempt %d failed: %v", i, err)
		}
		// The attempt that trips the throttle still reports Failed.
		if res.Status != SignInFailed {
			t.Fatalf("expected Failed, got %s", res.Status)
		}
	}

	locked := stores.users.get(user.ID)
	if !locked.LockoutEnabled {
		t.Fatal("expected an auto-committed lockout")
	}
	if locked.LockoutEnd.Before(time.Now().Add(29 * time.Minute)) {
		t.Fatalf("expected a ~30m lockout window, got end %v", locked.LockoutEnd)
	}
}

func TestThrottleUnavailableBackendFailsClosed(t *testing.T) {
	mr, rdb := newTestRedis(t)

	stores := &testStores{
		users:    newMockUserStore(),
		claims:   newMockClaimStore(),
		activity: newMockActivityStore(),
	}

	engine, err := New().
		WithConfig(throttleConfig()).
		WithRedis(rdb).
		WithUserStore(stores.users).
		WithClaimStore(stores.claims).
		WithLoginActivityStore(stores.activity).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	seedUser(t, engine, stores, User{Email: "alice@example.com", Username: "alice"}, "correct-horse-battery")

	// Killing the backend makes every throttle call fail; sign-in refuses to
	// proceed rather than silently skipping the check.
	mr.Close()

	_, err = engine.SignIn(context.Background(), "alice@example.com", "correct-horse-battery")
	if !errors.Is(err, ErrThrottleUnavailable) {
		t.Fatalf("expected ErrThrottleUnavailable, got %v", err)
	}
}
