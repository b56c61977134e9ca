package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "remember:dev1", "teacher1", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := m.Get(ctx, "remember:dev1"); err != nil || v != "teacher1" {
		t.Fatalf("expected teacher1, got %q %v", v, err)
	}

	now = now.Add(time.Hour)
	if _, err := m.Get(ctx, "remember:dev1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired entry to be gone, got %v", err)
	}
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
}

func TestMemoryDeleteAndTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Set(ctx, "k", "v", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	_ = m.Set(ctx, "k", "v", time.Minute)
	_ = m.Delete(ctx, "k")
	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
