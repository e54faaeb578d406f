package coupon

import (
	"testing"
	"time"
)

func int32p(v int32) *int32 { return &v }

func TestValidateMinimumOrderGate(t *testing.T) {
	rule := Rule{Active: true, MinOrderValue: 5000}
	now := time.Now()
	if err := rule.Validate(now, 4999); err != ErrMinimumOrderUnmet {
		t.Fatalf("expected minimum order error, got %v", err)
	}
	if err := rule.Validate(now, 5000); err != nil {
		t.Fatalf("expected success at threshold, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	end := now.Add(-time.Hour)

	if err := (Rule{Active: true, StartDate: &start}).Validate(now, 0); err != ErrNotStarted {
		t.Fatalf("expected not-started, got %v", err)
	}
	if err := (Rule{Active: true, EndDate: &end}).Validate(now, 0); err != ErrExpired {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestValidateUsageLimits(t *testing.T) {
	rule := Rule{Active: true, UsageLimit: int32p(10), UsedCount: 10}
	if err := rule.Validate(time.Now(), 0); err != ErrUsageLimitReached {
		t.Fatalf("expected usage limit error, got %v", err)
	}

	perUser := Rule{Active: true, PerUserLimit: int32p(1), PerUserUsed: 1}
	if err := perUser.Validate(time.Now(), 0); err != ErrPerUserLimitReached {
		t.Fatalf("expected per-user limit error, got %v", err)
	}

	// Default limit kicks in when no explicit per-user limit is set.
	defaulted := Rule{Active: true, DefaultLimit: 1, PerUserUsed: 1}
	if err := defaulted.Validate(time.Now(), 0); err != ErrPerUserLimitReached {
		t.Fatalf("expected default per-user limit error, got %v", err)
	}
}

func TestValidateInactive(t *testing.T) {
	if err := (Rule{}).Validate(time.Now(), 0); err != ErrInactive {
		t.Fatalf("expected inactive error, got %v", err)
	}
}
