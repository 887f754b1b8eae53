package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/storage/memory"
)

func newTestLedger() (*Ledger, *memory.Store) {
	store := memory.NewStore()
	return New(store.Orders), store
}

func twoSKUs() []domain.LineItem {
	return []domain.LineItem{
		{SKU: "A", Quantity: 2, UnitPrice: 500},
		{SKU: "B", Quantity: 1, UnitPrice: 250},
	}
}

func TestCreateComputesTotal(t *testing.T) {
	l, _ := newTestLedger()

	order, err := l.Create(context.Background(), "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	assert.Equal(t, int64(1250), order.Total)
	assert.Equal(t, domain.OrderCreated, order.Status)
	assert.Equal(t, "user-1", order.UserID)
	assert.Len(t, order.Items, 2)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	l, _ := newTestLedger()

	_, err := l.Create(context.Background(), "user-1", "k1", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	_, err = l.Create(context.Background(), "user-1", "k1", []domain.LineItem{
		{SKU: "A", Quantity: 0, UnitPrice: 100},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = l.Create(context.Background(), "user-1", "k1", []domain.LineItem{
		{SKU: "A", Quantity: -3, UnitPrice: 100},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestCreateIsIdempotent(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	first, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	second, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Total, second.Total)
}

func TestCreateSameKeyDifferentUsers(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	a, err := l.Create(ctx, "user-a", "k1", twoSKUs())
	require.NoError(t, err)
	b, err := l.Create(ctx, "user-b", "k1", twoSKUs())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestHappyPathTransitions(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	order, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	require.NoError(t, l.MarkAwaitingPayment(ctx, order.ID))
	require.NoError(t, l.MarkPaid(ctx, order.ID))
	require.NoError(t, l.MarkFulfilled(ctx, order.ID))

	got, err := l.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderFulfilled, got.Status)
}

func TestPaymentFailureReattempt(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	order, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	require.NoError(t, l.MarkAwaitingPayment(ctx, order.ID))
	require.NoError(t, l.MarkPaymentFailed(ctx, order.ID))

	// Re-attempt: a failed order may go back to awaiting payment.
	require.NoError(t, l.MarkAwaitingPayment(ctx, order.ID))

	got, err := l.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, got.Status)
}

func TestAbandonAfterPaymentFailure(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	order, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	require.NoError(t, l.MarkAwaitingPayment(ctx, order.ID))
	require.NoError(t, l.MarkPaymentFailed(ctx, order.ID))
	require.NoError(t, l.Cancel(ctx, order.ID))

	got, err := l.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	order, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	// CREATED cannot jump straight to PAID, FULFILLED or PAYMENT_FAILED.
	assert.ErrorIs(t, l.MarkPaid(ctx, order.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, l.MarkFulfilled(ctx, order.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, l.MarkPaymentFailed(ctx, order.ID), domain.ErrInvalidTransition)
}

func TestTerminalStatesAreClosed(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	cancelled, err := l.Create(ctx, "user-1", "k-cancelled", twoSKUs())
	require.NoError(t, err)
	require.NoError(t, l.Cancel(ctx, cancelled.ID))

	assert.ErrorIs(t, l.MarkAwaitingPayment(ctx, cancelled.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, l.MarkPaid(ctx, cancelled.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, l.Cancel(ctx, cancelled.ID), domain.ErrInvalidTransition)

	fulfilled, err := l.Create(ctx, "user-1", "k-fulfilled", twoSKUs())
	require.NoError(t, err)
	require.NoError(t, l.MarkAwaitingPayment(ctx, fulfilled.ID))
	require.NoError(t, l.MarkPaid(ctx, fulfilled.ID))
	require.NoError(t, l.MarkFulfilled(ctx, fulfilled.ID))

	assert.ErrorIs(t, l.Cancel(ctx, fulfilled.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, l.MarkPaymentFailed(ctx, fulfilled.ID), domain.ErrInvalidTransition)
}

func TestPaidOrderCannotBeCancelled(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	order, err := l.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)
	require.NoError(t, l.MarkAwaitingPayment(ctx, order.ID))
	require.NoError(t, l.MarkPaid(ctx, order.ID))

	assert.ErrorIs(t, l.Cancel(ctx, order.ID), domain.ErrInvalidTransition)
}

func TestTransitionUnknownOrder(t *testing.T) {
	l, _ := newTestLedger()

	err := l.MarkAwaitingPayment(context.Background(), "no-such-order")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// racingOrderRepo simulates a concurrent create: the idempotency lookup
// misses, then the insert hits the uniqueness constraint because the other
// request already persisted the order.
type racingOrderRepo struct {
	domain.OrderRepository
	missedOnce bool
}

func (r *racingOrderRepo) FindByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	if !r.missedOnce {
		r.missedOnce = true
		return nil, domain.ErrOrderNotFound
	}
	return r.OrderRepository.FindByIdempotencyKey(ctx, userID, key)
}

func TestCreateRaceLoserRereadsWinner(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	winner, err := New(store.Orders).Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)

	// The loser misses the lookup, collides on insert and must converge on
	// the winner's record instead of erroring.
	loser := New(&racingOrderRepo{OrderRepository: store.Orders})
	got, err := loser.Create(ctx, "user-1", "k1", twoSKUs())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestTotalMatchesItemSubtotals(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	items := []domain.LineItem{
		{SKU: "A", Quantity: 3, UnitPrice: 199},
		{SKU: "B", Quantity: 7, UnitPrice: 1},
		{SKU: "C", Quantity: 1, UnitPrice: 100000},
	}
	order, err := l.Create(ctx, "user-1", "k1", items)
	require.NoError(t, err)

	var want int64
	for _, it := range order.Items {
		want += it.Subtotal()
	}
	assert.Equal(t, want, order.Total)
}
