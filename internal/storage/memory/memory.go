// Package memory provides in-process implementations of the commerce
// repository ports with the same conflict semantics as the SQLite adapters:
// unique (user, key) on orders, unique (order, key) plus at-most-one-live
// on intents, and conditional status updates. Intended for unit tests and
// local development only.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
)

var (
	_ domain.OrderRepository  = (*OrderRepository)(nil)
	_ domain.IntentRepository = (*IntentRepository)(nil)
	_ domain.UserRepository   = (*UserRepository)(nil)
)

// Store bundles the in-memory repositories.
type Store struct {
	Orders  *OrderRepository
	Intents *IntentRepository
	Users   *UserRepository
}

// NewStore returns a fresh in-memory store.
func NewStore() *Store {
	return &Store{
		Orders:  &OrderRepository{orders: make(map[string]*domain.Order)},
		Intents: &IntentRepository{intents: make(map[string]*domain.PaymentIntent)},
		Users:   &UserRepository{users: make(map[string]*domain.User)},
	}
}

// OrderRepository keeps orders in a map guarded by a mutex.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
			return domain.ErrStorageConflict
		}
	}
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			o.UpdatedAt = at
			return nil
		}
	}
	return domain.ErrStorageConflict
}

// IntentRepository keeps payment intents in a map guarded by a mutex.
type IntentRepository struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
}

func (r *IntentRepository) Insert(ctx context.Context, pi *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.intents {
		if existing.OrderID == pi.OrderID && existing.IdempotencyKey == pi.IdempotencyKey {
			return domain.ErrStorageConflict
		}
		if existing.OrderID == pi.OrderID && existing.Status.Live() && pi.Status.Live() {
			return domain.ErrStorageConflict
		}
		if existing.ProviderRef == pi.ProviderRef {
			return domain.ErrStorageConflict
		}
	}
	cp := *pi
	r.intents[pi.ID] = &cp
	return nil
}

func (r *IntentRepository) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pi, ok := r.intents[id]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	cp := *pi
	return &cp, nil
}

func (r *IntentRepository) FindByKey(ctx context.Context, orderID, key string) (*domain.PaymentIntent, error) {
	return r.findOne(func(pi *domain.PaymentIntent) bool {
		return pi.OrderID == orderID && pi.IdempotencyKey == key
	})
}

func (r *IntentRepository) FindLiveByOrder(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	return r.findOne(func(pi *domain.PaymentIntent) bool {
		return pi.OrderID == orderID && pi.Status.Live()
	})
}

func (r *IntentRepository) FindByProviderRef(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	return r.findOne(func(pi *domain.PaymentIntent) bool {
		return pi.ProviderRef == ref
	})
}

func (r *IntentRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.IntentStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pi, ok := r.intents[id]
	if !ok {
		return domain.ErrIntentNotFound
	}
	if pi.Status != from {
		return domain.ErrStorageConflict
	}
	pi.Status = to
	pi.UpdatedAt = at
	return nil
}

func (r *IntentRepository) findOne(match func(*domain.PaymentIntent) bool) (*domain.PaymentIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pi := range r.intents {
		if match(pi) {
			cp := *pi
			return &cp, nil
		}
	}
	return nil, domain.ErrIntentNotFound
}

// UserRepository keeps users in a map keyed by username.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (r *UserRepository) Upsert(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[u.Username]; ok {
		existing.DisplayName = u.DisplayName
		return nil
	}
	cp := *u
	r.users[u.Username] = &cp
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
