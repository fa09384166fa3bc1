package utils

import (
	"context"
	"testing"
	"time"
)

func TestOrganizationLockWithoutRedis(t *testing.T) {
	release, err := OrganizationLock(context.Background(), "org-1", "intelligence", time.Minute, "utils", "TestOrganizationLockWithoutRedis")
	if err != nil {
		t.Fatalf("expected no error without redis, got %v", err)
	}
	if release == nil {
		t.Fatal("expected a no-op release func without redis")
	}
	release()
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"A100", "B200", "A100", "A100", "C300"})
	want := []string{"A100", "B200", "C300"}
	if len(got) != len(want) {
		t.Fatalf("expected %d elements, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	sku := "A100"
	if got := DereferencePtr(&sku); got != "A100" {
		t.Fatalf("expected A100, got %q", got)
	}
	if got := DereferencePtr[string](nil); got != "" {
		t.Fatalf("expected zero value for nil, got %q", got)
	}
	if got := DereferencePtr(nil, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for nil, got %q", got)
	}
}
