package domain

import "errors"

// Error taxonomy of the commerce core. Callers match with errors.Is; the
// HTTP layer maps each sentinel to a status code.
var (
	// ErrUnauthenticated means the session token is missing, unknown or expired.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized means the resolved identity does not own the record
	// it is trying to read or mutate.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition means the order is not in an allowed predecessor
	// state for the requested transition.
	ErrInvalidTransition = errors.New("invalid order state transition")

	ErrEmptyOrder      = errors.New("order has no line items")
	ErrInvalidQuantity = errors.New("line item quantity must be positive")

	ErrOrderNotFound  = errors.New("order not found")
	ErrIntentNotFound = errors.New("payment intent not found")
	ErrUserNotFound   = errors.New("user not found")

	// ErrOrderNotPayable means the order state admits no new payment intent.
	ErrOrderNotPayable = errors.New("order is not payable")

	// ErrConflictingIntent means another live intent already exists for the order.
	ErrConflictingIntent = errors.New("conflicting live payment intent")

	// ErrUnknownIntent means a provider notification referenced no known intent.
	ErrUnknownIntent = errors.New("unknown payment intent reference")

	// ErrReconciliationConflict means the provider delivered contradictory
	// outcomes for the same intent. Never auto-resolved; the intent keeps
	// its first-settled state and the conflict is surfaced for review.
	ErrReconciliationConflict = errors.New("conflicting reconciliation outcome")

	// ErrInvalidWebhookSignature means a provider notification failed
	// signature verification and was dropped before reaching the processor.
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrStorageConflict means a uniqueness constraint or state precondition
	// failed at the storage layer. Retryable: the caller re-reads the
	// winning record when that is semantically an idempotent success.
	ErrStorageConflict = errors.New("storage conflict")
)
