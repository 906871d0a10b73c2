package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClaimStore_DedupesCompletedClaims(t *testing.T) {
	store := NewInMemoryClaimStore()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	claimID, accepted, err := store.Claim(context.Background(), "evt_1", time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !accepted {
		t.Fatalf("expected first claim to be accepted")
	}
	if err := store.Complete(context.Background(), claimID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, accepted, err = store.Claim(context.Background(), "evt_1", time.Minute)
	if err != nil {
		t.Fatalf("claim duplicate: %v", err)
	}
	if accepted {
		t.Fatalf("expected duplicate claim to be rejected while lease holds")
	}

	now = now.Add(2 * time.Minute)
	_, accepted, err = store.Claim(context.Background(), "evt_1", time.Minute)
	if err != nil {
		t.Fatalf("claim after lease expiry: %v", err)
	}
	if !accepted {
		t.Fatalf("expected claim to be reclaimable after lease expiry")
	}
}

func TestClaimStore_FailedClaimBecomesReclaimable(t *testing.T) {
	store := NewInMemoryClaimStore()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	claimID, accepted, err := store.Claim(context.Background(), "evt_2", time.Minute)
	if err != nil || !accepted {
		t.Fatalf("claim: accepted=%v err=%v", accepted, err)
	}
	if err := store.Fail(context.Background(), claimID, errors.New("handler failed"), time.Time{}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	// A provider redelivery may immediately reclaim the failed key.
	_, accepted, err = store.Claim(context.Background(), "evt_2", time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !accepted {
		t.Fatalf("expected failed claim to be reclaimable")
	}
}

func TestClaimStore_InFlightClaimBlocksConcurrentDelivery(t *testing.T) {
	store := NewInMemoryClaimStore()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return now }

	if _, accepted, err := store.Claim(context.Background(), "evt_3", time.Minute); err != nil || !accepted {
		t.Fatalf("claim: accepted=%v err=%v", accepted, err)
	}
	_, accepted, err := store.Claim(context.Background(), "evt_3", time.Minute)
	if err != nil {
		t.Fatalf("concurrent claim: %v", err)
	}
	if accepted {
		t.Fatalf("expected in-flight claim to block a concurrent delivery")
	}
}

func TestClaimStore_RequiresKey(t *testing.T) {
	store := NewInMemoryClaimStore()
	if _, _, err := store.Claim(context.Background(), "  ", time.Minute); err == nil {
		t.Fatalf("expected error for blank key")
	}
}
