package storage

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

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	repo, err := NewSQLiteRepository(t.TempDir()+"/cassa.db", logger)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedMember(t *testing.T, repo *SQLiteRepository) core.Member {
	t.Helper()
	m, err := repo.CreateMember(context.Background(), core.Member{
		FirstName: "Ada",
		LastName:  "Rossi",
		Active:    true,
	})
	if err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	return m
}

func seedPayment(t *testing.T, repo *SQLiteRepository, memberID int64, cents int64) core.Payment {
	t.Helper()
	p, err := repo.CreatePayment(context.Background(), core.Payment{
		Income:      true,
		Amount:      core.Money{Cents: cents},
		Description: "contribution",
		Date:        core.NewDate(2026, time.March, 1),
		MemberID:    memberID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	return p
}

func TestMemberCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	m := seedMember(t, repo)
	if m.ID == 0 {
		t.Fatal("CreateMember returned zero id")
	}

	got, err := repo.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if got.FullName() != "Ada Rossi" || !got.Active {
		t.Fatalf("GetMember = %+v", got)
	}

	got.LastName = "Bianchi"
	got.Active = false
	if err := repo.UpdateMember(ctx, got); err != nil {
		t.Fatalf("UpdateMember: %v", err)
	}
	updated, err := repo.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMember after update: %v", err)
	}
	if updated.LastName != "Bianchi" || updated.Active {
		t.Fatalf("update not persisted: %+v", updated)
	}

	if err := repo.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if _, err := repo.GetMember(ctx, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetMember after delete = %v, want ErrNotFound", err)
	}
}

func TestGetMemberNotFound(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.GetMember(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetMember(42) = %v, want ErrNotFound", err)
	}
}

func TestDeleteMemberWithPayments(t *testing.T) {
	repo := testRepo(t)
	m := seedMember(t, repo)
	seedPayment(t, repo, m.ID, 1000)

	err := repo.DeleteMember(context.Background(), m.ID)
	if !errors.Is(err, core.ErrMemberHasPayments) {
		t.Fatalf("DeleteMember = %v, want ErrMemberHasPayments", err)
	}
	// The member must survive the refused delete
	if _, err := repo.GetMember(context.Background(), m.ID); err != nil {
		t.Fatalf("GetMember after refused delete: %v", err)
	}
}

func TestListMembersOrder(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	for _, m := range []core.Member{
		{FirstName: "Carla", LastName: "Verdi", Active: true},
		{FirstName: "Ada", LastName: "Bianchi", Active: true},
		{FirstName: "Bruno", LastName: "Bianchi", Active: true},
	} {
		if _, err := repo.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember: %v", err)
		}
	}

	members, err := repo.ListMembers(ctx)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	want := []string{"Ada Bianchi", "Bruno Bianchi", "Carla Verdi"}
	if len(members) != len(want) {
		t.Fatalf("ListMembers returned %d members, want %d", len(members), len(want))
	}
	for i, name := range want {
		if members[i].FullName() != name {
			t.Errorf("member %d = %q, want %q", i, members[i].FullName(), name)
		}
	}
}

func TestPaymentCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	m := seedMember(t, repo)
	p := seedPayment(t, repo, m.ID, 2500)

	got, err := repo.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if got.Amount.Cents != 2500 || !got.Income {
		t.Fatalf("GetPayment = %+v", got)
	}
	// The owning member comes joined in
	if got.Member.FullName() != "Ada Rossi" {
		t.Fatalf("GetPayment member = %+v", got.Member)
	}
	if got.Date.String() != "2026-03-01" {
		t.Fatalf("GetPayment date = %q", got.Date.String())
	}

	got.Amount.Cents = 9900
	got.Income = false
	if err := repo.UpdatePayment(ctx, got); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	updated, err := repo.GetPayment(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPayment after update: %v", err)
	}
	if updated.Amount.Cents != 9900 || updated.Income {
		t.Fatalf("update not persisted: %+v", updated)
	}

	if err := repo.DeletePayment(ctx, p.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	if _, err := repo.GetPayment(ctx, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetPayment after delete = %v, want ErrNotFound", err)
	}
	if err := repo.DeletePayment(ctx, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second DeletePayment = %v, want ErrNotFound", err)
	}
}

func TestListPaymentsNewestFirst(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	m := seedMember(t, repo)

	dates := []core.Date{
		core.NewDate(2026, time.March, 2),
		core.NewDate(2026, time.March, 5),
		core.NewDate(2026, time.March, 2),
	}
	for _, d := range dates {
		if _, err := repo.CreatePayment(ctx, core.Payment{
			Income: true, Amount: core.Money{Cents: 100},
			Description: "x", Date: d, MemberID: m.ID,
		}); err != nil {
			t.Fatalf("CreatePayment: %v", err)
		}
	}

	payments, err := repo.ListPayments(ctx)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	wantIDs := []int64{2, 3, 1}
	if len(payments) != len(wantIDs) {
		t.Fatalf("ListPayments returned %d payments, want %d", len(payments), len(wantIDs))
	}
	for i, id := range wantIDs {
		if payments[i].ID != id {
			t.Errorf("payment %d id = %d, want %d", i, payments[i].ID, id)
		}
	}
}

func TestLedgerSyncLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	m := seedMember(t, repo)
	p1 := seedPayment(t, repo, m.ID, 100)
	p2 := seedPayment(t, repo, m.ID, 200)

	pending, err := repo.GetPendingLedgerPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingLedgerPayments: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != p1.ID {
		t.Fatalf("pending = %+v, want p1 then p2", pending)
	}

	if err := repo.MarkLedgerSynced(ctx, p1.ID, "Ledger!A2"); err != nil {
		t.Fatalf("MarkLedgerSynced: %v", err)
	}
	if err := repo.MarkLedgerError(ctx, p2.ID, errors.New("quota exceeded")); err != nil {
		t.Fatalf("MarkLedgerError: %v", err)
	}

	pending, err = repo.GetPendingLedgerPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingLedgerPayments: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after sync = %+v, want empty", pending)
	}

	// An edit puts the payment back in the export queue
	p2.Description = "corrected"
	if err := repo.UpdatePayment(ctx, p2); err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	pending, err = repo.GetPendingLedgerPayments(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingLedgerPayments: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != p2.ID {
		t.Fatalf("pending after edit = %+v, want p2", pending)
	}
}

func TestGetPendingLedgerPaymentsLimit(t *testing.T) {
	repo := testRepo(t)
	m := seedMember(t, repo)
	for i := 0; i < 5; i++ {
		seedPayment(t, repo, m.ID, int64(100+i))
	}

	pending, err := repo.GetPendingLedgerPayments(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetPendingLedgerPayments: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len(pending) = %d, want 3", len(pending))
	}
}
