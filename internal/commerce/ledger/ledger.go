// Package ledger owns the durable representation of orders. It is the sole
// writer of order records: creation is idempotent on the caller-supplied
// key, and every state change goes through a named transition that validates
// the current state against the allowed predecessor set before applying a
// conditional single-document write.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

// Ledger enforces the order state machine over an OrderRepository.
type Ledger struct {
	orders domain.OrderRepository
	now    func() time.Time
}

// New builds a Ledger. The repository is injected so tests can run against
// the in-memory store and production against SQLite.
func New(orders domain.OrderRepository) *Ledger {
	return &Ledger{orders: orders, now: time.Now}
}

// Create validates the line items, computes the total and persists a new
// order in state CREATED. If an order already exists for (userID, key) it is
// returned unchanged: a retried request never produces a second record.
func (l *Ledger) Create(ctx context.Context, userID, key string, items []domain.LineItem) (*domain.Order, error) {
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}

	if existing, err := l.orders.FindByIdempotencyKey(ctx, userID, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return nil, fmt.Errorf("ledger: lookup by idempotency key: %w", err)
	}

	now := l.now().UTC()
	order := &domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          items,
		Total:          domain.ComputeTotal(items),
		Status:         domain.OrderCreated,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := l.orders.Insert(ctx, order)
	if errors.Is(err, domain.ErrStorageConflict) {
		// Lost the race against a concurrent create with the same key.
		// The winner's record is the canonical one; re-read it.
		slog.InfoContext(ctx, "idempotent create converged on existing order",
			"user_id", userID, "idempotency_key", key)
		return l.orders.FindByIdempotencyKey(ctx, userID, key)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: insert order: %w", err)
	}
	return order, nil
}

// Get returns a single order by ID.
func (l *Ledger) Get(ctx context.Context, id string) (*domain.Order, error) {
	return l.orders.FindByID(ctx, id)
}

// MarkAwaitingPayment moves an order to AWAITING_PAYMENT. Valid from CREATED
// and, for a re-attempt after a failed intent, from PAYMENT_FAILED.
func (l *Ledger) MarkAwaitingPayment(ctx context.Context, id string) error {
	return l.transition(ctx, id, domain.OrderAwaitingPayment)
}

// MarkPaid moves an order to PAID. Valid only from AWAITING_PAYMENT.
func (l *Ledger) MarkPaid(ctx context.Context, id string) error {
	return l.transition(ctx, id, domain.OrderPaid)
}

// MarkPaymentFailed moves an order to PAYMENT_FAILED. Valid only from
// AWAITING_PAYMENT.
func (l *Ledger) MarkPaymentFailed(ctx context.Context, id string) error {
	return l.transition(ctx, id, domain.OrderPaymentFailed)
}

// MarkFulfilled moves an order to FULFILLED. Valid only from PAID.
func (l *Ledger) MarkFulfilled(ctx context.Context, id string) error {
	return l.transition(ctx, id, domain.OrderFulfilled)
}

// Cancel moves an order to CANCELLED. Valid from any non-terminal state;
// cancellation is a state, not erasure, so the record survives.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	return l.transition(ctx, id, domain.OrderCancelled)
}

// transition applies a single named transition. The pre-read produces the
// precise error; the conditional write is what actually guards against a
// concurrent transition sneaking in between read and write.
func (l *Ledger) transition(ctx context.Context, id string, to domain.OrderStatus) error {
	order, err := l.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanTransition(order.Status, to) {
		return fmt.Errorf("ledger: %s -> %s: %w", order.Status, to, domain.ErrInvalidTransition)
	}

	err = l.orders.UpdateStatus(ctx, id, domain.OrderPredecessors(to), to, l.now().UTC())
	if errors.Is(err, domain.ErrStorageConflict) {
		// Someone else transitioned the order between our read and write.
		current, readErr := l.orders.FindByID(ctx, id)
		if readErr == nil && current.Status == to {
			return nil // converged on the same state, idempotent success
		}
		return fmt.Errorf("ledger: transition to %s lost race: %w", to, domain.ErrStorageConflict)
	}
	if err != nil {
		return fmt.Errorf("ledger: transition to %s: %w", to, err)
	}

	slog.InfoContext(ctx, "order transitioned", "order_id", id, "from", order.Status, "to", to)
	return nil
}
