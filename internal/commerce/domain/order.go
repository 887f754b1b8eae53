// Package domain defines the commerce core's entities, state machines and
// repository ports. Every mutation of an Order or PaymentIntent goes through
// the named transition operations in the ledger and payments packages; the
// types here only describe what a valid record looks like.
package domain

import "time"

// LineItem is a single position on an order. Immutable after creation:
// the ledger never exposes an operation that touches items on a stored order.
type LineItem struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // minor units (cents)
}

// Subtotal returns quantity times unit price in minor units.
func (i LineItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// Order represents a purchase intent. Total always equals the sum of the
// line item subtotals; only Status and UpdatedAt change after creation.
type Order struct {
	ID             string
	UserID         string
	Items          []LineItem
	Total          int64
	Status         OrderStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderCreated         OrderStatus = "CREATED"
	OrderAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderPaid            OrderStatus = "PAID"
	OrderPaymentFailed   OrderStatus = "PAYMENT_FAILED"
	OrderFulfilled       OrderStatus = "FULFILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
)

// orderPredecessors is the allowed-predecessor table for the order state
// machine. A transition to state S is legal only when the current state is
// listed under S. FULFILLED and CANCELLED have no outgoing edges; PAID's only
// outgoing edge is fulfilment.
var orderPredecessors = map[OrderStatus][]OrderStatus{
	OrderAwaitingPayment: {OrderCreated, OrderPaymentFailed},
	OrderPaid:            {OrderAwaitingPayment},
	OrderPaymentFailed:   {OrderAwaitingPayment},
	OrderFulfilled:       {OrderPaid},
	OrderCancelled:       {OrderCreated, OrderAwaitingPayment, OrderPaymentFailed},
}

// OrderPredecessors returns the states from which a transition to target is
// allowed. The returned slice must not be mutated.
func OrderPredecessors(target OrderStatus) []OrderStatus {
	return orderPredecessors[target]
}

// CanTransition reports whether an order in state from may move to state to.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderPredecessors[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Payable reports whether a new payment intent may be opened against an
// order in this state.
func (s OrderStatus) Payable() bool {
	return s == OrderCreated || s == OrderAwaitingPayment || s == OrderPaymentFailed
}

// ComputeTotal sums the line item subtotals.
func ComputeTotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// ValidateItems rejects empty orders and non-positive quantities before
// anything is persisted.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
