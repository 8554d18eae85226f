package core

// Statistics is everything the dashboard needs in one value: the
// unfiltered overview, the summary of the current filter when one is
// active, and the chart ranking.
type Statistics struct {
	Overview  Summary
	Filtered  *Summary
	HasFilter bool
	Top5      []ChartEntry
	Payments  []Payment
}

// BuildStatistics computes the dashboard from a full payment snapshot.
// The overview always covers every payment; the filtered summary and the
// chart cover only what the filter keeps. It is a pure function so both
// the HTML page and the chart API share one code path.
func BuildStatistics(all []Payment, f Filter) Statistics {
	stats := Statistics{
		Overview:  Summarize(all),
		HasFilter: f.HasRange(),
	}
	matched := f.Apply(all)
	stats.Payments = matched
	stats.Top5 = TopMixed(matched, TopChartSize)
	if stats.HasFilter {
		fs := Summarize(matched)
		stats.Filtered = &fs
	}
	return stats
}
