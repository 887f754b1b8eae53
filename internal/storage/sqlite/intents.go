package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

var _ domain.IntentRepository = (*IntentRepository)(nil)

// IntentRepository is the SQLite adapter for the payment intents collection.
type IntentRepository struct {
	db *sql.DB
}

// Insert persists a new intent. ErrStorageConflict covers both uniqueness
// failures: a duplicate (order_id, idempotency_key) and a second live intent
// for the order (the partial index ux_intents_live_order).
func (r *IntentRepository) Insert(ctx context.Context, pi *domain.PaymentIntent) error {
	const q = `
		INSERT INTO payment_intents
			(id, order_id, amount, provider_ref, status, idempotency_key, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		pi.ID,
		pi.OrderID,
		pi.Amount,
		pi.ProviderRef,
		string(pi.Status),
		pi.IdempotencyKey,
		formatTime(pi.CreatedAt),
		formatTime(pi.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrStorageConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert intent %q: %w", pi.ID, err)
	}
	return nil
}

// FindByID returns a single intent, or ErrIntentNotFound.
func (r *IntentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	const q = intentSelect + ` WHERE id = ?`
	return r.scanIntent(r.db.QueryRowContext(ctx, q, id))
}

// FindByKey returns the intent created under (orderID, key), or
// ErrIntentNotFound.
func (r *IntentRepository) FindByKey(ctx context.Context, orderID, key string) (*domain.PaymentIntent, error) {
	const q = intentSelect + ` WHERE order_id = ? AND idempotency_key = ?`
	return r.scanIntent(r.db.QueryRowContext(ctx, q, orderID, key))
}

// FindLiveByOrder returns the order's non-FAILED intent if one exists,
// or ErrIntentNotFound.
func (r *IntentRepository) FindLiveByOrder(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	const q = intentSelect + ` WHERE order_id = ? AND status != ?`
	return r.scanIntent(r.db.QueryRowContext(ctx, q, orderID, string(domain.IntentFailed)))
}

// FindByProviderRef returns the intent acknowledged under the provider
// reference, or ErrIntentNotFound.
func (r *IntentRepository) FindByProviderRef(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	const q = intentSelect + ` WHERE provider_ref = ?`
	return r.scanIntent(r.db.QueryRowContext(ctx, q, ref))
}

// UpdateStatusIf transitions the intent only while its current status still
// equals from. The losing side of a settle race gets ErrStorageConflict and
// re-reads instead of overwriting.
func (r *IntentRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.IntentStatus, at time.Time) error {
	const q = `UPDATE payment_intents SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	err := conditionalUpdate(ctx, r.db, q, string(to), formatTime(at), id, string(from))
	if err == domain.ErrStorageConflict {
		return err
	}
	if err != nil {
		return fmt.Errorf("sqlite: update intent %q status: %w", id, err)
	}
	return nil
}

const intentSelect = `
	SELECT id, order_id, amount, provider_ref, status, idempotency_key, created_at, updated_at
	FROM   payment_intents`

func (r *IntentRepository) scanIntent(row *sql.Row) (*domain.PaymentIntent, error) {
	var (
		pi        domain.PaymentIntent
		status    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&pi.ID, &pi.OrderID, &pi.Amount, &pi.ProviderRef, &status, &pi.IdempotencyKey, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan intent: %w", err)
	}

	pi.Status = domain.IntentStatus(status)
	if pi.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if pi.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &pi, nil
}
