// Package worker exports payments from SQLite to the external ledger.
// It reacts to AMQP events and periodically sweeps the pending rows, so
// a lost message only delays an export instead of dropping it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/export"
	"cassa/internal/log"
	"cassa/internal/storage"
)

// LedgerStore is what the worker needs from persistence.
type LedgerStore interface {
	GetPayment(ctx context.Context, id int64) (core.Payment, error)
	GetPendingLedgerPayments(ctx context.Context, limit int) ([]core.Payment, error)
	MarkLedgerSynced(ctx context.Context, id int64, sheetRef string) error
	MarkLedgerError(ctx context.Context, id int64, syncErr error) error
}

var _ LedgerStore = (*storage.SQLiteRepository)(nil)

// LedgerWorker drives the export of payments to the external ledger.
type LedgerWorker struct {
	store     LedgerStore
	ledger    export.LedgerWriter
	batchSize int
	logger    *log.Logger
}

func NewLedgerWorker(store LedgerStore, ledger export.LedgerWriter, batchSize int, logger *log.Logger) *LedgerWorker {
	return &LedgerWorker{
		store:     store,
		ledger:    ledger,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event from AMQP. Deletes need no
// export work; created and updated payments are re-read from storage so
// the worker always writes the current state.
func (w *LedgerWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Event == amqp.EventPaymentDeleted {
		w.logger.InfoContext(ctx, "payment deleted, nothing to export",
			log.FieldPaymentID, msg.PaymentID)
		return nil
	}

	payment, err := w.store.GetPayment(ctx, msg.PaymentID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between event and processing
		w.logger.WarnContext(ctx, "payment vanished before export",
			log.FieldPaymentID, msg.PaymentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get payment %d: %w", msg.PaymentID, err)
	}

	return w.exportPayment(ctx, payment)
}

// ProcessPending exports payments the event stream missed. It is the
// backup path behind AMQP and the only path when no broker is configured.
func (w *LedgerWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingLedgerPayments(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending payments: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing pending payments", "count", len(pending))

	for _, payment := range pending {
		if err := w.exportPayment(ctx, payment); err != nil {
			w.logger.ErrorContext(ctx, "failed to export payment",
				log.FieldPaymentID, payment.ID,
				log.FieldError, err)
		}
	}
	return nil
}

// Run sweeps pending payments until the context ends. One sweep runs
// immediately so a restart drains the backlog without waiting a tick.
func (w *LedgerWorker) Run(ctx context.Context, interval time.Duration) error {
	w.logger.InfoContext(ctx, "ledger worker started",
		log.FieldOperation, log.OpStartup,
		"interval", interval.String(),
		"batch_size", w.batchSize)

	if err := w.ProcessPending(ctx); err != nil {
		w.logger.ErrorContext(ctx, "startup sweep failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "ledger worker stopping",
				log.FieldOperation, log.OpShutdown)
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "pending sweep failed", log.FieldError, err)
			}
		}
	}
}

func (w *LedgerWorker) exportPayment(ctx context.Context, payment core.Payment) error {
	ref, err := w.ledger.Append(ctx, payment)
	if err != nil {
		if markErr := w.store.MarkLedgerError(ctx, payment.ID, err); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to record sync error",
				log.FieldPaymentID, payment.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.store.MarkLedgerSynced(ctx, payment.ID, ref); err != nil {
		// The row was written; only the bookkeeping failed
		w.logger.ErrorContext(ctx, "failed to mark payment synced",
			log.FieldPaymentID, payment.ID,
			log.FieldError, err)
		return nil
	}

	w.logger.InfoContext(ctx, "payment exported",
		log.FieldOperation, log.OpSync,
		log.FieldPaymentID, payment.ID,
		log.FieldSheetRef, ref,
		log.FieldAmountCents, payment.Amount.Cents)
	return nil
}
