package core

import (
	"encoding/json"
	"sort"
)

// TopChartSize is how many payments per direction the dashboard chart shows.
const TopChartSize = 5

// ChartEntry is one bar of the dashboard chart. Cents is signed: expense
// payments are negated so the chart shows them below the axis.
type ChartEntry struct {
	Label string
	Cents int64
}

// MarshalJSON emits {"label": ..., "value": ...} with value as an exact
// two-decimal number, so the chart never sees float artifacts.
func (e ChartEntry) MarshalJSON() ([]byte, error) {
	label, err := json.Marshal(e.Label)
	if err != nil {
		return nil, err
	}
	return []byte(`{"label":` + string(label) + `,"value":` + Money{Cents: e.Cents}.String() + `}`), nil
}

// TopMixed picks the n largest income payments and the n largest expense
// payments and concatenates them, income first. Ties on amount break by
// date descending, then id descending, so the ranking is stable across
// requests.
//
// Each label is "{member full name} – {description}". The sign flip for
// expenses happens here and nowhere else: stored amounts stay positive.
func TopMixed(ps []Payment, n int) []ChartEntry {
	var income, expense []Payment
	for _, p := range ps {
		if p.Income {
			income = append(income, p)
		} else {
			expense = append(expense, p)
		}
	}

	out := make([]ChartEntry, 0, 2*n)
	for _, group := range [][]Payment{topByAmount(income, n), topByAmount(expense, n)} {
		for _, p := range group {
			cents := p.Amount.Cents
			if !p.Income {
				cents = -cents
			}
			out = append(out, ChartEntry{
				Label: p.Member.FullName() + " – " + p.Description,
				Cents: cents,
			})
		}
	}
	return out
}

func topByAmount(ps []Payment, n int) []Payment {
	ranked := make([]Payment, len(ps))
	copy(ranked, ps)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Amount.Cents != ranked[j].Amount.Cents {
			return ranked[i].Amount.Cents > ranked[j].Amount.Cents
		}
		if !ranked[i].Date.Equal(ranked[j].Date) {
			return ranked[i].Date.After(ranked[j].Date)
		}
		return ranked[i].ID > ranked[j].ID
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
