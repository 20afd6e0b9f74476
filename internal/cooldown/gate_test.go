package cooldown

import (
	"context"
	"errors"
	"testing"
	"time"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("store unavailable")
}

func (failingStore) Set(context.Context, string, time.Time, time.Duration) error {
	return errors.New("store unavailable")
}

func TestGate_NoRecordAllowsSend(t *testing.T) {
	gate := NewGate(NewMemoryStore(), time.Hour)

	ok, err := gate.CanSend(context.Background(), "5511987654321")
	if err != nil {
		t.Fatalf("CanSend returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected send to be allowed when no record exists")
	}
}

func TestGate_BlocksUntilWindowElapses(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	clock := base

	gate := NewGate(NewMemoryStore(), 2*time.Hour)
	gate.now = func() time.Time { return clock }

	if err := gate.RecordSend(ctx, "key", base); err != nil {
		t.Fatalf("RecordSend returned error: %v", err)
	}

	for _, offset := range []time.Duration{0, time.Minute, time.Hour, 2*time.Hour - time.Second} {
		clock = base.Add(offset)
		ok, err := gate.CanSend(ctx, "key")
		if err != nil {
			t.Fatalf("CanSend returned error: %v", err)
		}
		if ok {
			t.Fatalf("expected send to be blocked %v after record", offset)
		}
	}

	clock = base.Add(2 * time.Hour)
	ok, err := gate.CanSend(ctx, "key")
	if err != nil {
		t.Fatalf("CanSend returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected send to be allowed once the window elapsed")
	}
}

func TestGate_OtherRecipientsUnaffected(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(NewMemoryStore(), time.Hour)

	if err := gate.RecordSend(ctx, "a", time.Now()); err != nil {
		t.Fatalf("RecordSend returned error: %v", err)
	}

	ok, err := gate.CanSend(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("expected b to be allowed, got ok=%v err=%v", ok, err)
	}
}

func TestGate_StoreErrorIsReturned(t *testing.T) {
	gate := NewGate(failingStore{}, time.Hour)

	ok, err := gate.CanSend(context.Background(), "key")
	if err == nil {
		t.Fatalf("expected error from failing store")
	}
	if ok {
		t.Fatalf("expected ok=false on store error")
	}
}

func TestMemoryStore_KeepsLatest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	later := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	_ = store.Set(ctx, "key", later, time.Hour)
	_ = store.Set(ctx, "key", later.Add(-time.Hour), time.Hour)

	got, found, _ := store.Get(ctx, "key")
	if !found || !got.Equal(later) {
		t.Fatalf("expected %v, got %v (found=%v)", later, got, found)
	}
}
