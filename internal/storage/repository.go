// Package storage persists members and payments in SQLite and tracks
// which payments still need to be written to the external ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cassa/internal/core"
	"cassa/internal/log"

	_ "modernc.org/sqlite"
)

// Ledger sync states stored in payments.sync_status.
const (
	SyncPending = "pending"
	SyncDone    = "done"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO members (first_name, last_name, image_path, active) VALUES (?, ?, ?, ?)`,
		m.FirstName, m.LastName, m.ImagePath, boolToInt(m.Active))
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Member{}, fmt.Errorf("create member id: %w", err)
	}
	m.ID = id

	r.logger.InfoContext(ctx, "member created",
		log.FieldOperation, log.OpCreate,
		log.FieldMemberID, m.ID)
	return m, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id int64) (core.Member, error) {
	var m core.Member
	var active int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, image_path, active FROM members WHERE id = ?`, id).
		Scan(&m.ID, &m.FirstName, &m.LastName, &m.ImagePath, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %d: %w", id, err)
	}
	m.Active = active != 0
	return m, nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET first_name = ?, last_name = ?, image_path = ?, active = ? WHERE id = ?`,
		m.FirstName, m.LastName, m.ImagePath, boolToInt(m.Active), m.ID)
	if err != nil {
		return fmt.Errorf("update member %d: %w", m.ID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "member updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldMemberID, m.ID)
	return nil
}

// DeleteMember refuses to delete a member who still owns payments.
func (r *SQLiteRepository) DeleteMember(ctx context.Context, id int64) error {
	var owned int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE member_id = ?`, id).Scan(&owned)
	if err != nil {
		return fmt.Errorf("count member %d payments: %w", id, err)
	}
	if owned > 0 {
		return core.ErrMemberHasPayments
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "member deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldMemberID, id)
	return nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, image_path, active FROM members ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		var active int
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.ImagePath, &active); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Active = active != 0
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (income, amount_cents, description, paid_on, member_id, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		boolToInt(p.Income), p.Amount.Cents, p.Description, p.Date.String(), p.MemberID, SyncPending)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment id: %w", err)
	}
	p.ID = id

	r.logger.InfoContext(ctx, "payment created",
		log.FieldOperation, log.OpCreate,
		log.FieldPaymentID, p.ID,
		log.FieldMemberID, p.MemberID,
		log.FieldAmountCents, p.Amount.Cents,
		log.FieldIncome, p.Income)
	return p, nil
}

const paymentColumns = `p.id, p.income, p.amount_cents, p.description, p.paid_on, p.member_id,
	m.id, m.first_name, m.last_name, m.image_path, m.active`

func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN members m ON m.id = p.member_id WHERE p.id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %d: %w", id, err)
	}
	return p, nil
}

// UpdatePayment rewrites the payment and resets its ledger sync status,
// so the worker picks the change up again.
func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET income = ?, amount_cents = ?, description = ?, paid_on = ?, member_id = ?,
		 sync_status = ?, sync_error = '' WHERE id = ?`,
		boolToInt(p.Income), p.Amount.Cents, p.Description, p.Date.String(), p.MemberID, SyncPending, p.ID)
	if err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "payment updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldPaymentID, p.ID,
		log.FieldAmountCents, p.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "payment deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldPaymentID, id)
	return nil
}

// ListPayments returns the full ledger with each payment's member joined
// in, newest first. Filtering happens in core over this snapshot.
func (r *SQLiteRepository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN members m ON m.id = p.member_id
		 ORDER BY p.paid_on DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetPendingLedgerPayments returns payments awaiting export, oldest first.
func (r *SQLiteRepository) GetPendingLedgerPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN members m ON m.id = p.member_id
		 WHERE p.sync_status = ? ORDER BY p.id LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *SQLiteRepository) MarkLedgerSynced(ctx context.Context, id int64, sheetRef string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = ?, sheet_ref = ?, sync_error = '', synced_at = ? WHERE id = ?`,
		SyncDone, sheetRef, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark payment %d synced: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "payment synced to ledger",
		log.FieldOperation, log.OpSync,
		log.FieldPaymentID, id,
		log.FieldSheetRef, sheetRef)
	return nil
}

func (r *SQLiteRepository) MarkLedgerError(ctx context.Context, id int64, syncErr error) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET sync_status = ?, sync_error = ? WHERE id = ?`,
		SyncError, syncErr.Error(), id)
	if err != nil {
		return fmt.Errorf("mark payment %d sync error: %w", id, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (core.Payment, error) {
	var p core.Payment
	var income, active int
	var paidOn string
	err := row.Scan(
		&p.ID, &income, &p.Amount.Cents, &p.Description, &paidOn, &p.MemberID,
		&p.Member.ID, &p.Member.FirstName, &p.Member.LastName, &p.Member.ImagePath, &active)
	if err != nil {
		return core.Payment{}, err
	}
	p.Income = income != 0
	p.Member.Active = active != 0
	p.Date, err = core.ParseDate(paidOn)
	if err != nil {
		return core.Payment{}, fmt.Errorf("parse stored date %q: %w", paidOn, err)
	}
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
