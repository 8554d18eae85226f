package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Sentinel validation errors. Handlers map these onto form field messages.
var (
	ErrInvalidAmount      = errors.New("amount must be a positive decimal number")
	ErrAmountTooLarge     = errors.New("amount exceeds the allowed maximum")
	ErrEmptyDescription   = errors.New("description is required")
	ErrDescriptionTooLong = errors.New("description must be at most 50 characters")
	ErrFutureDate         = errors.New("date cannot be in the future")
	ErrInvalidDate        = errors.New("date must be a valid calendar date")
	ErrMemberRequired     = errors.New("member is required")
	ErrMemberInactive     = errors.New("member is not active")
	ErrInvalidFilterType  = errors.New("type must be income, expense or all")
	ErrInvalidLimit       = errors.New("limit must be a non-negative number")
	ErrEmptyFirstName     = errors.New("first name is required")
	ErrEmptyLastName      = errors.New("last name is required")
	ErrNameTooLong        = errors.New("name must be at most 50 characters")
)

// Lookup and persistence errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrMemberHasPayments = errors.New("member still owns payments")
)

const maxDescriptionLen = 50
const maxNameLen = 50

// FieldErrors collects all validation failures of a single request,
// keyed by form field name, so the UI can report them at once.
type FieldErrors map[string]string

func (fe FieldErrors) Add(field string, err error) {
	if _, exists := fe[field]; exists {
		return
	}
	fe[field] = err.Error()
}

func (fe FieldErrors) Any() bool { return len(fe) > 0 }

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return strings.Join(parts, "; ")
}

// Date is a calendar date with no time-of-day component. The zero value
// means "not set".
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date in server local time.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses an ISO date (2006-01-02). Invalid calendar dates such
// as 2024-02-30 fail with ErrInvalidDate.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) String() string     { return d.t.Format(dateLayout) }
func (d Date) Time() time.Time    { return d.t }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// Member is a participant of the savings club. Inactive members keep
// their payment history but cannot receive new payments.
type Member struct {
	ID        int64
	FirstName string
	LastName  string
	ImagePath string
	Active    bool
}

func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Validate reports every invalid field at once.
func (m Member) Validate() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(m.FirstName) == "" {
		fe.Add("firstName", ErrEmptyFirstName)
	} else if len([]rune(m.FirstName)) > maxNameLen {
		fe.Add("firstName", ErrNameTooLong)
	}
	if strings.TrimSpace(m.LastName) == "" {
		fe.Add("lastName", ErrEmptyLastName)
	} else if len([]rune(m.LastName)) > maxNameLen {
		fe.Add("lastName", ErrNameTooLong)
	}
	return fe
}

// Payment is a single income or expense entry of the club ledger.
// Income reports money coming in; otherwise the payment is an expense.
// Amount is always positive; the direction lives in Income.
type Payment struct {
	ID          int64
	Income      bool
	Amount      Money
	Description string
	Date        Date
	MemberID    int64
	Member      Member
}

// Validate reports every invalid field at once. The member existence and
// activity checks live in the service layer, which owns the lookup.
func (p Payment) Validate() FieldErrors {
	fe := FieldErrors{}
	if err := p.Amount.Validate(); err != nil {
		fe.Add("amount", err)
	}
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		fe.Add("description", ErrEmptyDescription)
	} else if len([]rune(desc)) > maxDescriptionLen {
		fe.Add("description", ErrDescriptionTooLong)
	}
	if p.Date.IsZero() {
		fe.Add("date", ErrInvalidDate)
	} else if p.Date.After(Today()) {
		fe.Add("date", ErrFutureDate)
	}
	if p.MemberID == 0 {
		fe.Add("memberId", ErrMemberRequired)
	}
	return fe
}
