package domain

import "time"

// PaymentIntent is one attempt to collect funds for an order. The amount is
// fixed to the order total at creation time. ProviderRef is assigned when
// the payment provider acknowledges the charge and is the join key for
// webhook reconciliation.
type PaymentIntent struct {
	ID             string
	OrderID        string
	Amount         int64
	ProviderRef    string
	Status         IntentStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IntentStatus is the lifecycle state of a payment intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "PENDING"
	IntentSucceeded IntentStatus = "SUCCEEDED"
	IntentFailed    IntentStatus = "FAILED"
)

// Live reports whether the intent still blocks the creation of another
// intent for the same order. Only a FAILED intent may be superseded.
func (s IntentStatus) Live() bool {
	return s != IntentFailed
}

// Terminal reports whether the intent has settled. A settled intent never
// transitions again; re-delivered notifications with the same outcome are
// no-ops and contradictory ones are a reconciliation conflict.
func (s IntentStatus) Terminal() bool {
	return s == IntentSucceeded || s == IntentFailed
}

// PaymentOutcome is the result carried by a provider notification.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
)

// SettledStatus maps a provider outcome to the intent state it settles into.
func (o PaymentOutcome) SettledStatus() (IntentStatus, bool) {
	switch o {
	case OutcomeSucceeded:
		return IntentSucceeded, true
	case OutcomeFailed:
		return IntentFailed, true
	}
	return "", false
}
