package memory

import (
	"context"
	"testing"
	"time"

	"cassa/internal/core"
)

func TestAppendReturnsSequentialRefs(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := core.Payment{
		Income:      true,
		Amount:      core.Money{Cents: 1000},
		Description: "contribution",
		Date:        core.NewDate(2026, time.March, 1),
		MemberID:    1,
	}

	ref1, err := s.Append(ctx, p)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	ref2, err := s.Append(ctx, p)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref1 != "mem:1" || ref2 != "mem:2" {
		t.Fatalf("refs = %q, %q; want mem:1, mem:2", ref1, ref2)
	}
	if got := len(s.Items()); got != 2 {
		t.Fatalf("Items() len = %d, want 2", got)
	}
}
