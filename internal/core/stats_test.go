package core

import (
	"testing"
	"time"
)

func TestBuildStatisticsWithoutFilter(t *testing.T) {
	stats := BuildStatistics(fixture(), Filter{})

	if stats.HasFilter {
		t.Fatal("HasFilter = true for zero filter")
	}
	if stats.Filtered != nil {
		t.Fatalf("Filtered = %+v, want nil", stats.Filtered)
	}
	if stats.Overview.CountAll() != 6 {
		t.Fatalf("Overview.CountAll() = %d, want 6", stats.Overview.CountAll())
	}
	if len(stats.Top5) != 6 {
		t.Fatalf("len(Top5) = %d, want all 6 ranked", len(stats.Top5))
	}
	if len(stats.Payments) != 6 {
		t.Fatalf("len(Payments) = %d, want 6", len(stats.Payments))
	}
}

func TestBuildStatisticsWithFilter(t *testing.T) {
	f := Filter{MemberID: 1}
	stats := BuildStatistics(fixture(), f)

	if !stats.HasFilter {
		t.Fatal("HasFilter = false for member filter")
	}
	if stats.Filtered == nil {
		t.Fatal("Filtered = nil, want summary of matches")
	}
	// The overview stays unfiltered even when a filter is active.
	if stats.Overview.CountAll() != 6 {
		t.Fatalf("Overview.CountAll() = %d, want 6", stats.Overview.CountAll())
	}
	if stats.Filtered.CountAll() != 3 {
		t.Fatalf("Filtered.CountAll() = %d, want 3", stats.Filtered.CountAll())
	}
	if stats.Filtered.SumIncome.Cents != 7000 {
		t.Fatalf("Filtered.SumIncome = %d, want 7000", stats.Filtered.SumIncome.Cents)
	}
	// The chart ranks only the filtered payments.
	if len(stats.Top5) != 3 {
		t.Fatalf("len(Top5) = %d, want 3", len(stats.Top5))
	}
}

func TestBuildStatisticsEmptyMatch(t *testing.T) {
	stats := BuildStatistics(fixture(), Filter{From: NewDate(2030, time.January, 1)})

	if stats.Filtered == nil || stats.Filtered.CountAll() != 0 {
		t.Fatalf("Filtered = %+v, want empty summary", stats.Filtered)
	}
	if len(stats.Top5) != 0 {
		t.Fatalf("len(Top5) = %d, want 0", len(stats.Top5))
	}
}
