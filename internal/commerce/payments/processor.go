// Package payments owns payment intent records. The processor is the only
// writer: it creates intents with idempotency-key deduplication and the
// at-most-one-live-intent guarantee, and settles them from provider
// notifications with compare-and-transition writes so re-deliveries and
// near-simultaneous contradictory outcomes cannot corrupt state.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/commerce/ledger"
)

// Processor creates and reconciles payment intents against the order ledger.
type Processor struct {
	intents  domain.IntentRepository
	ledger   *ledger.Ledger
	provider Provider
	now      func() time.Time
}

// NewProcessor wires the processor to its storage, ledger and provider
// collaborators.
func NewProcessor(intents domain.IntentRepository, l *ledger.Ledger, provider Provider) *Processor {
	return &Processor{intents: intents, ledger: l, provider: provider, now: time.Now}
}

// CreateIntent opens a payment attempt for an order. Repeating the call with
// the same (orderID, key) returns the existing intent unchanged. A second
// live intent for the same order is rejected with ErrConflictingIntent.
// Creating the intent drives the order to AWAITING_PAYMENT: an order cannot
// be awaiting payment without a live intent, nor hold a live intent while
// still merely created.
func (p *Processor) CreateIntent(ctx context.Context, orderID, key string) (*domain.PaymentIntent, error) {
	order, err := p.ledger.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Payable() {
		return nil, fmt.Errorf("payments: order %s is %s: %w", orderID, order.Status, domain.ErrOrderNotPayable)
	}

	if existing, err := p.intents.FindByKey(ctx, orderID, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrIntentNotFound) {
		return nil, fmt.Errorf("payments: lookup by idempotency key: %w", err)
	}

	if live, err := p.intents.FindLiveByOrder(ctx, orderID); err == nil {
		return nil, fmt.Errorf("payments: intent %s is still live: %w", live.ID, domain.ErrConflictingIntent)
	} else if !errors.Is(err, domain.ErrIntentNotFound) {
		return nil, fmt.Errorf("payments: lookup live intent: %w", err)
	}

	ref, err := p.provider.CreateCharge(ctx, orderID, order.Total)
	if err != nil {
		return nil, fmt.Errorf("payments: provider charge: %w", err)
	}

	now := p.now().UTC()
	intent := &domain.PaymentIntent{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		Amount:         order.Total,
		ProviderRef:    ref,
		Status:         domain.IntentPending,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.intents.Insert(ctx, intent); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			// Lost a race. Same key: converge on the winner. Different key:
			// the winner holds the live slot, so this attempt conflicts.
			if winner, findErr := p.intents.FindByKey(ctx, orderID, key); findErr == nil {
				return winner, nil
			}
			return nil, fmt.Errorf("payments: live intent raced in first: %w", domain.ErrConflictingIntent)
		}
		return nil, fmt.Errorf("payments: insert intent: %w", err)
	}

	if order.Status != domain.OrderAwaitingPayment {
		if err := p.ledger.MarkAwaitingPayment(ctx, orderID); err != nil {
			return nil, fmt.Errorf("payments: drive order to awaiting payment: %w", err)
		}
	}

	slog.InfoContext(ctx, "payment intent created",
		"intent_id", intent.ID, "order_id", orderID, "amount", intent.Amount, "provider_ref", ref)
	return intent, nil
}

// Reconcile settles the intent identified by providerRef with the given
// outcome and drives the matching order transition. Safe under provider
// re-delivery: a repeated identical outcome is a no-op, a contradictory one
// returns ErrReconciliationConflict and leaves the first-settled state
// untouched. The settlement itself is a single conditional write: the
// transition applies only while the intent is still PENDING.
func (p *Processor) Reconcile(ctx context.Context, providerRef string, outcome domain.PaymentOutcome) error {
	target, ok := outcome.SettledStatus()
	if !ok {
		return fmt.Errorf("payments: outcome %q: %w", outcome, domain.ErrReconciliationConflict)
	}

	intent, err := p.intents.FindByProviderRef(ctx, providerRef)
	if errors.Is(err, domain.ErrIntentNotFound) {
		return fmt.Errorf("payments: provider ref %q: %w", providerRef, domain.ErrUnknownIntent)
	}
	if err != nil {
		return fmt.Errorf("payments: lookup by provider ref: %w", err)
	}

	if intent.Status.Terminal() {
		if intent.Status == target {
			slog.InfoContext(ctx, "duplicate reconciliation ignored",
				"intent_id", intent.ID, "provider_ref", providerRef, "outcome", outcome)
			return nil
		}
		slog.ErrorContext(ctx, "contradictory reconciliation outcome",
			"intent_id", intent.ID, "provider_ref", providerRef,
			"settled", intent.Status, "received", outcome)
		return fmt.Errorf("payments: intent %s already %s, received %s: %w",
			intent.ID, intent.Status, outcome, domain.ErrReconciliationConflict)
	}

	err = p.intents.UpdateStatusIf(ctx, intent.ID, domain.IntentPending, target, p.now().UTC())
	if errors.Is(err, domain.ErrStorageConflict) {
		// A near-simultaneous notification settled the intent first.
		settled, readErr := p.intents.FindByID(ctx, intent.ID)
		if readErr != nil {
			return fmt.Errorf("payments: re-read after settle race: %w", readErr)
		}
		if settled.Status == target {
			return nil
		}
		return fmt.Errorf("payments: intent %s settled %s, received %s: %w",
			intent.ID, settled.Status, outcome, domain.ErrReconciliationConflict)
	}
	if err != nil {
		return fmt.Errorf("payments: settle intent: %w", err)
	}

	slog.InfoContext(ctx, "payment intent settled",
		"intent_id", intent.ID, "order_id", intent.OrderID, "status", target)

	if target == domain.IntentSucceeded {
		if err := p.ledger.MarkPaid(ctx, intent.OrderID); err != nil {
			return fmt.Errorf("payments: mark order paid: %w", err)
		}
		return nil
	}
	if err := p.ledger.MarkPaymentFailed(ctx, intent.OrderID); err != nil {
		return fmt.Errorf("payments: mark order payment failed: %w", err)
	}
	return nil
}
