// Package services orchestrates domain operations across storage and
// the ledger event stream.
package services

import (
	"context"
	"errors"
	"fmt"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/log"
)

// Store is what the service needs from persistence.
type Store interface {
	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	GetMember(ctx context.Context, id int64) (core.Member, error)
	UpdateMember(ctx context.Context, m core.Member) error
	DeleteMember(ctx context.Context, id int64) error
	ListMembers(ctx context.Context) ([]core.Member, error)

	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	GetPayment(ctx context.Context, id int64) (core.Payment, error)
	UpdatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id int64) error
	ListPayments(ctx context.Context) ([]core.Payment, error)
}

// EventPublisher emits payment change events for the ledger worker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event string, paymentID int64) error
}

// PaymentService validates and persists payments and members, and
// notifies the ledger worker about payment changes. Publishing is best
// effort: a broker outage never fails the user's request, the worker
// catches up from the pending rows in the database.
type PaymentService struct {
	store  Store
	events EventPublisher
	logger *log.Logger
}

func NewPaymentService(store Store, events EventPublisher, logger *log.Logger) *PaymentService {
	return &PaymentService{
		store:  store,
		events: events,
		logger: logger.WithComponent(log.ComponentPayment),
	}
}

// validateWrite runs the domain checks plus the member lookup. The
// memberId field keeps at most one error; the lookup is skipped when
// the domain checks already flagged it. forCreate refuses inactive
// members, edits may keep them.
func (s *PaymentService) validateWrite(ctx context.Context, p core.Payment, forCreate bool) (core.FieldErrors, error) {
	fe := p.Validate()
	if _, already := fe["memberId"]; !already && p.MemberID != 0 {
		member, err := s.store.GetMember(ctx, p.MemberID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			fe.Add("memberId", core.ErrMemberRequired)
		case err != nil:
			return nil, fmt.Errorf("look up member %d: %w", p.MemberID, err)
		case forCreate && !member.Active:
			fe.Add("memberId", core.ErrMemberInactive)
		}
	}
	return fe, nil
}

// ValidatePayment reports every write-path problem without persisting,
// so the UI can show parse failures and business failures in a single
// response. A store failure during the member lookup is logged and the
// lookup skipped; the write path re-checks before persisting.
func (s *PaymentService) ValidatePayment(ctx context.Context, p core.Payment, forCreate bool) core.FieldErrors {
	fe, err := s.validateWrite(ctx, p, forCreate)
	if err != nil {
		s.logger.ErrorContext(ctx, "member lookup failed during validation", log.FieldError, err)
		return p.Validate()
	}
	return fe
}

// CreatePayment validates the payment and saves it. The member must
// exist and be active: payments to inactive members are refused at
// creation, while existing payments of an inactive member stay editable.
func (s *PaymentService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	fe, err := s.validateWrite(ctx, p, true)
	if err != nil {
		return core.Payment{}, err
	}
	if fe.Any() {
		return core.Payment{}, fe
	}

	created, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	s.publish(ctx, amqp.EventPaymentCreated, created.ID)
	return created, nil
}

// UpdatePayment validates and rewrites an existing payment. The member
// must exist but may be inactive.
func (s *PaymentService) UpdatePayment(ctx context.Context, p core.Payment) error {
	fe, err := s.validateWrite(ctx, p, false)
	if err != nil {
		return err
	}
	if fe.Any() {
		return fe
	}

	if err := s.store.UpdatePayment(ctx, p); err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}

	s.publish(ctx, amqp.EventPaymentUpdated, p.ID)
	return nil
}

func (s *PaymentService) DeletePayment(ctx context.Context, id int64) error {
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventPaymentDeleted, id)
	return nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// Statistics loads the full ledger snapshot and computes the dashboard
// for the given filter.
func (s *PaymentService) Statistics(ctx context.Context, f core.Filter) (core.Statistics, error) {
	all, err := s.store.ListPayments(ctx)
	if err != nil {
		return core.Statistics{}, fmt.Errorf("load payments: %w", err)
	}
	return core.BuildStatistics(all, f), nil
}

func (s *PaymentService) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if fe := m.Validate(); fe.Any() {
		return core.Member{}, fe
	}
	created, err := s.store.CreateMember(ctx, m)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	return created, nil
}

func (s *PaymentService) UpdateMember(ctx context.Context, m core.Member) error {
	if fe := m.Validate(); fe.Any() {
		return fe
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return fmt.Errorf("update member %d: %w", m.ID, err)
	}
	return nil
}

// DeleteMember removes a member without payments. A member who still
// owns payments is refused with core.ErrMemberHasPayments.
func (s *PaymentService) DeleteMember(ctx context.Context, id int64) error {
	return s.store.DeleteMember(ctx, id)
}

func (s *PaymentService) GetMember(ctx context.Context, id int64) (core.Member, error) {
	return s.store.GetMember(ctx, id)
}

func (s *PaymentService) ListMembers(ctx context.Context) ([]core.Member, error) {
	return s.store.ListMembers(ctx)
}

func (s *PaymentService) publish(ctx context.Context, event string, paymentID int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, event, paymentID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish ledger event",
			log.FieldError, err,
			"event", event,
			log.FieldPaymentID, paymentID)
	}
}
