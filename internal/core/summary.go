package core

// Summary aggregates a payment list into per-direction counts and sums.
type Summary struct {
	CountIncome  int
	CountExpense int
	SumIncome    Money
	SumExpense   Money
}

func (s Summary) CountAll() int { return s.CountIncome + s.CountExpense }

// Balance is income minus expenses. It can be negative.
func (s Summary) Balance() Money {
	return Money{Cents: s.SumIncome.Cents - s.SumExpense.Cents}
}

// Summarize folds a payment list into a Summary in one pass.
func Summarize(ps []Payment) Summary {
	var s Summary
	for _, p := range ps {
		if p.Income {
			s.CountIncome++
			s.SumIncome.Cents += p.Amount.Cents
		} else {
			s.CountExpense++
			s.SumExpense.Cents += p.Amount.Cents
		}
	}
	return s
}
