package ids

import (
	"testing"
	"time"
)

func TestNewULID_MonotonicWithinMillisecond(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	prev := ""
	for i := 0; i < 100; i++ {
		id, err := NewULID(now)
		if err != nil {
			t.Fatalf("NewULID error: %v", err)
		}
		if len(id) != 26 {
			t.Fatalf("expected 26 chars, got %d", len(id))
		}
		if id <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, id)
		}
		prev = id
	}
}

func TestValid(t *testing.T) {
	id, err := NewULID(time.Time{})
	if err != nil {
		t.Fatalf("NewULID error: %v", err)
	}
	if !Valid(id) {
		t.Fatalf("expected %s to be valid", id)
	}
	for _, bad := range []string{"", "42", "not-a-ulid-not-a-ulid-xxxx", id + "0"} {
		if Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
