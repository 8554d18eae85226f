package core

import (
	"sort"
	"strings"
)

// Filter narrows a payment list. Zero-valued fields are inactive, so the
// zero Filter matches everything. Income is a tri-state: nil matches
// both directions.
type Filter struct {
	Search   string
	MemberID int64
	Income   *bool
	From     Date
	To       Date
	Limit    int
}

// HasRange reports whether the filter narrows by date range or member.
// Only these fields decide whether the dashboard shows a separate
// filtered summary; search, direction and limit do not count.
func (f Filter) HasRange() bool {
	return !f.From.IsZero() || !f.To.IsZero() || f.MemberID != 0
}

type predicate func(Payment) bool

// predicates builds one predicate per active field. A payment matches the
// filter only when every predicate accepts it.
func (f Filter) predicates() []predicate {
	var preds []predicate
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		preds = append(preds, func(p Payment) bool {
			return strings.Contains(strings.ToLower(p.Description), s)
		})
	}
	if f.MemberID != 0 {
		id := f.MemberID
		preds = append(preds, func(p Payment) bool { return p.MemberID == id })
	}
	if f.Income != nil {
		want := *f.Income
		preds = append(preds, func(p Payment) bool { return p.Income == want })
	}
	if !f.From.IsZero() {
		from := f.From
		preds = append(preds, func(p Payment) bool { return !p.Date.Before(from) })
	}
	if !f.To.IsZero() {
		to := f.To
		preds = append(preds, func(p Payment) bool { return !p.Date.After(to) })
	}
	return preds
}

// Apply returns the payments matching every active field, ordered by date
// descending with id descending as tie-break, truncated to Limit when
// Limit is positive. The input slice is not modified.
//
// An unknown MemberID is not an error: no payment matches it, so the
// result is simply empty.
func (f Filter) Apply(all []Payment) []Payment {
	preds := f.predicates()
	out := make([]Payment, 0, len(all))
	for _, p := range all {
		ok := true
		for _, pred := range preds {
			if !pred(p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	sortPayments(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// sortPayments orders newest first; equal dates fall back to id
// descending so the order is deterministic.
func sortPayments(ps []Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].Date.Equal(ps[j].Date) {
			return ps[i].Date.After(ps[j].Date)
		}
		return ps[i].ID > ps[j].ID
	})
}
