package http

import (
	"net/http"
	"strconv"
	"strings"

	"cassa/internal/core"
)

// Direction values accepted in the type parameter.
const (
	dirAll     = ""
	dirIncome  = "income"
	dirExpense = "expense"
)

// parseFilter reads the dashboard filter from query parameters. Invalid
// values become field errors and leave the corresponding filter field
// unset, so the page still renders with everything else applied.
func parseFilter(r *http.Request) (core.Filter, core.FieldErrors) {
	q := r.URL.Query()
	fe := core.FieldErrors{}
	var f core.Filter

	f.Search = sanitizeInput(q.Get("q"))

	if v := strings.TrimSpace(q.Get("memberId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			fe.Add("memberId", core.ErrMemberRequired)
		} else {
			f.MemberID = id
		}
	}

	switch strings.TrimSpace(q.Get("type")) {
	case dirAll, "all":
	case dirIncome:
		income := true
		f.Income = &income
	case dirExpense:
		income := false
		f.Income = &income
	default:
		fe.Add("type", core.ErrInvalidFilterType)
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			fe.Add("from", core.ErrInvalidDate)
		} else {
			f.From = d
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			fe.Add("to", core.ErrInvalidDate)
		} else {
			f.To = d
		}
	}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fe.Add("limit", core.ErrInvalidLimit)
		} else {
			// 0 keeps the list unbounded
			f.Limit = n
		}
	}

	return f, fe
}

// parsePaymentForm reads a payment from a submitted form. Parse failures
// become field errors; the service layer adds its own on top.
func parsePaymentForm(r *http.Request) (core.Payment, core.FieldErrors) {
	fe := core.FieldErrors{}
	var p core.Payment

	p.Income = r.PostFormValue("type") == dirIncome
	p.Description = sanitizeInput(r.PostFormValue("description"))

	if cents, err := core.ParseDecimalToCents(r.PostFormValue("amount")); err != nil {
		fe.Add("amount", err)
	} else {
		p.Amount = core.Money{Cents: cents}
	}

	if v := strings.TrimSpace(r.PostFormValue("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			fe.Add("date", core.ErrInvalidDate)
		} else {
			p.Date = d
		}
	}

	if v := strings.TrimSpace(r.PostFormValue("memberId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			fe.Add("memberId", core.ErrMemberRequired)
		} else {
			p.MemberID = id
		}
	}

	return p, fe
}

// parseMemberForm reads a member from a submitted form.
func parseMemberForm(r *http.Request) core.Member {
	return core.Member{
		FirstName: sanitizeInput(r.PostFormValue("firstName")),
		LastName:  sanitizeInput(r.PostFormValue("lastName")),
		Active:    r.PostFormValue("active") != "",
	}
}
