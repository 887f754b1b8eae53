package domain

import (
	"context"
	"time"
)

// OrderRepository is the port for the orders collection. Implementations
// must back Insert with a uniqueness constraint on (user_id, idempotency_key)
// and UpdateStatus with a single-document conditional write: the status is
// changed only if the current status is in the from set: otherwise no row is
// touched and ErrStorageConflict is returned.
type OrderRepository interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, from []OrderStatus, to OrderStatus, at time.Time) error
}

// IntentRepository is the port for the payment intents collection.
// Implementations enforce two uniqueness constraints on Insert:
// (order_id, idempotency_key), and order_id scoped to live intents, so two
// racing creates cannot both persist a live intent. UpdateStatusIf is a
// conditional write keyed on the current status, the compare-and-transition
// primitive reconciliation relies on.
type IntentRepository interface {
	Insert(ctx context.Context, pi *PaymentIntent) error
	FindByID(ctx context.Context, id string) (*PaymentIntent, error)
	FindByKey(ctx context.Context, orderID, key string) (*PaymentIntent, error)
	FindLiveByOrder(ctx context.Context, orderID string) (*PaymentIntent, error)
	FindByProviderRef(ctx context.Context, ref string) (*PaymentIntent, error)
	UpdateStatusIf(ctx context.Context, id string, from, to IntentStatus, at time.Time) error
}

// UserRepository is the port for the users collection.
type UserRepository interface {
	Upsert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}
