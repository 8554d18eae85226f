package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cassa/internal/core"
	"cassa/internal/log"
)

// fakeStore keeps members and payments in maps.
type fakeStore struct {
	members      map[int64]core.Member
	payments     map[int64]core.Payment
	nextPayment  int64
	failPayments bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:     make(map[int64]core.Member),
		payments:    make(map[int64]core.Payment),
		nextPayment: 1,
	}
}

func (f *fakeStore) CreateMember(_ context.Context, m core.Member) (core.Member, error) {
	m.ID = int64(len(f.members) + 1)
	f.members[m.ID] = m
	return m, nil
}

func (f *fakeStore) GetMember(_ context.Context, id int64) (core.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return core.Member{}, core.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) UpdateMember(_ context.Context, m core.Member) error {
	if _, ok := f.members[m.ID]; !ok {
		return core.ErrNotFound
	}
	f.members[m.ID] = m
	return nil
}

func (f *fakeStore) DeleteMember(_ context.Context, id int64) error {
	if _, ok := f.members[id]; !ok {
		return core.ErrNotFound
	}
	for _, p := range f.payments {
		if p.MemberID == id {
			return core.ErrMemberHasPayments
		}
	}
	delete(f.members, id)
	return nil
}

func (f *fakeStore) ListMembers(_ context.Context) ([]core.Member, error) {
	var out []core.Member
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) CreatePayment(_ context.Context, p core.Payment) (core.Payment, error) {
	if f.failPayments {
		return core.Payment{}, errors.New("disk full")
	}
	p.ID = f.nextPayment
	f.nextPayment++
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetPayment(_ context.Context, id int64) (core.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdatePayment(_ context.Context, p core.Payment) error {
	if _, ok := f.payments[p.ID]; !ok {
		return core.ErrNotFound
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePayment(_ context.Context, id int64) error {
	if _, ok := f.payments[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.payments, id)
	return nil
}

func (f *fakeStore) ListPayments(_ context.Context) ([]core.Payment, error) {
	var out []core.Payment
	for _, p := range f.payments {
		p.Member = f.members[p.MemberID]
		out = append(out, p)
	}
	return out, nil
}

// fakePublisher records published events and can fail on demand.
type fakePublisher struct {
	events []string
	fail   bool
}

func (f *fakePublisher) PublishLedgerEvent(_ context.Context, event string, _ int64) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, event)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func setup(t *testing.T) (*PaymentService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	pub := &fakePublisher{}
	return NewPaymentService(store, pub, testLogger()), store, pub
}

func activeMember(t *testing.T, store *fakeStore) core.Member {
	t.Helper()
	m, err := store.CreateMember(context.Background(), core.Member{
		FirstName: "Ada", LastName: "Rossi", Active: true,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	return m
}

func validPayment(memberID int64) core.Payment {
	return core.Payment{
		Income:      true,
		Amount:      core.Money{Cents: 2500},
		Description: "monthly contribution",
		Date:        core.Today(),
		MemberID:    memberID,
	}
}

func TestCreatePayment(t *testing.T) {
	svc, store, pub := setup(t)
	m := activeMember(t, store)

	created, err := svc.CreatePayment(context.Background(), validPayment(m.ID))
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreatePayment returned zero id")
	}
	if len(pub.events) != 1 || pub.events[0] != "payment.created" {
		t.Fatalf("events = %v, want [payment.created]", pub.events)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, store, _ := setup(t)
	m := activeMember(t, store)

	tests := []struct {
		name       string
		mutate     func(*core.Payment)
		wantFields []string
	}{
		{
			name:       "invalid amount",
			mutate:     func(p *core.Payment) { p.Amount = core.Money{} },
			wantFields: []string{"amount"},
		},
		{
			name:       "unknown member",
			mutate:     func(p *core.Payment) { p.MemberID = 99 },
			wantFields: []string{"memberId"},
		},
		{
			name: "future date and unknown member report together",
			mutate: func(p *core.Payment) {
				tomorrow := core.Today().Time().AddDate(0, 0, 1)
				p.Date = core.NewDate(tomorrow.Year(), tomorrow.Month(), tomorrow.Day())
				p.MemberID = 99
			},
			wantFields: []string{"date", "memberId"},
		},
		{
			name: "everything wrong reports all fields",
			mutate: func(p *core.Payment) {
				p.Amount = core.Money{}
				p.Description = ""
				p.MemberID = 0
			},
			wantFields: []string{"amount", "description", "memberId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayment(m.ID)
			tt.mutate(&p)

			_, err := svc.CreatePayment(context.Background(), p)
			var fe core.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("CreatePayment = %v, want FieldErrors", err)
			}
			if len(fe) != len(tt.wantFields) {
				t.Fatalf("FieldErrors = %v, want fields %v", fe, tt.wantFields)
			}
			for _, field := range tt.wantFields {
				if _, ok := fe[field]; !ok {
					t.Errorf("missing field error %q in %v", field, fe)
				}
			}
		})
	}
}

func TestCreatePaymentInactiveMember(t *testing.T) {
	svc, store, _ := setup(t)
	m, _ := store.CreateMember(context.Background(), core.Member{
		FirstName: "Bruno", LastName: "Verdi", Active: false,
	})

	_, err := svc.CreatePayment(context.Background(), validPayment(m.ID))
	var fe core.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("CreatePayment = %v, want FieldErrors", err)
	}
	if fe["memberId"] != core.ErrMemberInactive.Error() {
		t.Fatalf("memberId error = %q, want inactive member", fe["memberId"])
	}
}

func TestValidatePayment(t *testing.T) {
	svc, store, _ := setup(t)
	m := activeMember(t, store)
	inactive, _ := store.CreateMember(context.Background(), core.Member{
		FirstName: "Bruno", LastName: "Verdi", Active: false,
	})

	p := core.Payment{Income: true, Description: "dues", Date: core.Today(), MemberID: 99}
	fe := svc.ValidatePayment(context.Background(), p, true)
	if fe["amount"] != core.ErrInvalidAmount.Error() {
		t.Errorf("amount error = %q, want invalid amount", fe["amount"])
	}
	if fe["memberId"] != core.ErrMemberRequired.Error() {
		t.Errorf("memberId error = %q, want unknown member", fe["memberId"])
	}

	if fe := svc.ValidatePayment(context.Background(), validPayment(inactive.ID), true); fe["memberId"] != core.ErrMemberInactive.Error() {
		t.Errorf("memberId error on create = %q, want inactive member", fe["memberId"])
	}
	if fe := svc.ValidatePayment(context.Background(), validPayment(inactive.ID), false); fe.Any() {
		t.Errorf("edit validation = %v, want none", fe)
	}
	if fe := svc.ValidatePayment(context.Background(), validPayment(m.ID), true); fe.Any() {
		t.Errorf("validation of a good payment = %v, want none", fe)
	}
}

func TestUpdatePaymentAllowsInactiveMember(t *testing.T) {
	svc, store, pub := setup(t)
	m := activeMember(t, store)
	created, err := svc.CreatePayment(context.Background(), validPayment(m.ID))
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	// Deactivating the member must not lock their payment history
	m.Active = false
	store.members[m.ID] = m

	created.Description = "corrected"
	if err := svc.UpdatePayment(context.Background(), created); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if pub.events[len(pub.events)-1] != "payment.updated" {
		t.Fatalf("events = %v, want payment.updated last", pub.events)
	}
}

func TestCreatePaymentSurvivesBrokerOutage(t *testing.T) {
	svc, store, pub := setup(t)
	pub.fail = true
	m := activeMember(t, store)

	created, err := svc.CreatePayment(context.Background(), validPayment(m.ID))
	if err != nil {
		t.Fatalf("CreatePayment with failing broker: %v", err)
	}
	if _, err := svc.GetPayment(context.Background(), created.ID); err != nil {
		t.Fatalf("payment not persisted: %v", err)
	}
}

func TestCreatePaymentWithoutPublisher(t *testing.T) {
	store := newFakeStore()
	svc := NewPaymentService(store, nil, testLogger())
	m := activeMember(t, store)

	if _, err := svc.CreatePayment(context.Background(), validPayment(m.ID)); err != nil {
		t.Fatalf("CreatePayment without publisher: %v", err)
	}
}

func TestDeletePayment(t *testing.T) {
	svc, store, pub := setup(t)
	m := activeMember(t, store)
	created, _ := svc.CreatePayment(context.Background(), validPayment(m.ID))

	if err := svc.DeletePayment(context.Background(), created.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	if pub.events[len(pub.events)-1] != "payment.deleted" {
		t.Fatalf("events = %v, want payment.deleted last", pub.events)
	}
	if err := svc.DeletePayment(context.Background(), created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestDeleteMemberWithPayments(t *testing.T) {
	svc, store, _ := setup(t)
	m := activeMember(t, store)
	if _, err := svc.CreatePayment(context.Background(), validPayment(m.ID)); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if err := svc.DeleteMember(context.Background(), m.ID); !errors.Is(err, core.ErrMemberHasPayments) {
		t.Fatalf("DeleteMember = %v, want ErrMemberHasPayments", err)
	}
}

func TestCreateMemberValidation(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.CreateMember(context.Background(), core.Member{})
	var fe core.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("CreateMember = %v, want FieldErrors", err)
	}
	if len(fe) != 2 {
		t.Fatalf("FieldErrors = %v, want firstName and lastName", fe)
	}
}

func TestStatistics(t *testing.T) {
	svc, store, _ := setup(t)
	m := activeMember(t, store)

	p := validPayment(m.ID)
	if _, err := svc.CreatePayment(context.Background(), p); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	expense := validPayment(m.ID)
	expense.Income = false
	expense.Amount = core.Money{Cents: 500}
	expense.Date = core.NewDate(2026, time.January, 5)
	if _, err := svc.CreatePayment(context.Background(), expense); err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	stats, err := svc.Statistics(context.Background(), core.Filter{})
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.Overview.CountAll() != 2 {
		t.Fatalf("Overview.CountAll() = %d, want 2", stats.Overview.CountAll())
	}
	if stats.Overview.Balance().Cents != 2000 {
		t.Fatalf("Balance = %d, want 2000", stats.Overview.Balance().Cents)
	}

	filtered, err := svc.Statistics(context.Background(), core.Filter{Income: boolPtr(false)})
	if err != nil {
		t.Fatalf("Statistics filtered: %v", err)
	}
	if filtered.Filtered == nil || filtered.Filtered.CountExpense != 1 {
		t.Fatalf("Filtered = %+v, want one expense", filtered.Filtered)
	}
	// Overview is unaffected by the filter
	if filtered.Overview.CountAll() != 2 {
		t.Fatalf("Overview.CountAll() = %d, want 2", filtered.Overview.CountAll())
	}
}

func boolPtr(b bool) *bool { return &b }
