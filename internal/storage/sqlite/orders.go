package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

var _ domain.OrderRepository = (*OrderRepository)(nil)

// OrderRepository is the SQLite adapter for the orders collection.
type OrderRepository struct {
	db *sql.DB
}

// Insert persists a new order. Returns ErrStorageConflict when another
// order already holds (user_id, idempotency_key).
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sqlite: marshal items for order %q: %w", o.ID, err)
	}

	const q = `
		INSERT INTO orders
			(id, user_id, idempotency_key, status, total, items, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, q,
		o.ID,
		o.UserID,
		o.IdempotencyKey,
		string(o.Status),
		o.Total,
		string(items),
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrStorageConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert order %q: %w", o.ID, err)
	}
	return nil
}

// FindByID returns a single order, or ErrOrderNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = orderSelect + ` WHERE id = ?`
	return r.scanOrder(r.db.QueryRowContext(ctx, q, id))
}

// FindByIdempotencyKey returns the order created under (userID, key), or
// ErrOrderNotFound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	const q = orderSelect + ` WHERE user_id = ? AND idempotency_key = ?`
	return r.scanOrder(r.db.QueryRowContext(ctx, q, userID, key))
}

// UpdateStatus sets the order's status and timestamp only if the current
// status is in the from set. A write that matches no row returns
// ErrStorageConflict, never a silent no-op.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	q := fmt.Sprintf(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status IN (%s)`,
		placeholders,
	)

	args := []any{string(to), formatTime(at), id}
	for _, s := range from {
		args = append(args, string(s))
	}

	err := conditionalUpdate(ctx, r.db, q, args...)
	if err == domain.ErrStorageConflict {
		return err
	}
	if err != nil {
		return fmt.Errorf("sqlite: update order %q status: %w", id, err)
	}
	return nil
}

const orderSelect = `
	SELECT id, user_id, idempotency_key, status, total, items, created_at, updated_at
	FROM   orders`

func (r *OrderRepository) scanOrder(row *sql.Row) (*domain.Order, error) {
	var (
		o         domain.Order
		status    string
		items     string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.IdempotencyKey, &status, &o.Total, &items, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan order: %w", err)
	}

	o.Status = domain.OrderStatus(status)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal items for order %q: %w", o.ID, err)
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
