package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/commerce/ledger"
	"github.com/jcmexdev/commerce-core/internal/storage/memory"
)

type fixture struct {
	ledger    *ledger.Ledger
	processor *Processor
	store     *memory.Store
}

func newFixture() *fixture {
	store := memory.NewStore()
	l := ledger.New(store.Orders)
	return &fixture{
		ledger:    l,
		processor: NewProcessor(store.Intents, l, NewFakeProvider()),
		store:     store,
	}
}

func (f *fixture) createOrder(t *testing.T, key string) *domain.Order {
	t.Helper()
	order, err := f.ledger.Create(context.Background(), "user-1", key, []domain.LineItem{
		{SKU: "A", Quantity: 2, UnitPrice: 500},
	})
	require.NoError(t, err)
	return order
}

func TestCreateIntentDrivesOrderToAwaitingPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	assert.Equal(t, int64(1000), intent.Amount)
	assert.Equal(t, domain.IntentPending, intent.Status)
	assert.NotEmpty(t, intent.ProviderRef)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, got.Status)
}

func TestCreateIntentIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	first, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)
	second, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ProviderRef, second.ProviderRef)
}

func TestCreateIntentRejectsSecondLiveIntent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	_, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	_, err = f.processor.CreateIntent(ctx, order.ID, "i2")
	assert.ErrorIs(t, err, domain.ErrConflictingIntent)
}

func TestFailedIntentCanBeSuperseded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	first, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)
	require.NoError(t, f.processor.Reconcile(ctx, first.ProviderRef, domain.OutcomeFailed))

	second, err := f.processor.CreateIntent(ctx, order.ID, "i2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, got.Status)
}

func TestCreateIntentOrderNotPayable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)
	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeSucceeded))

	_, err = f.processor.CreateIntent(ctx, order.ID, "i2")
	assert.ErrorIs(t, err, domain.ErrOrderNotPayable)
}

func TestCreateIntentCancelledOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")
	require.NoError(t, f.ledger.Cancel(ctx, order.ID))

	_, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	assert.ErrorIs(t, err, domain.ErrOrderNotPayable)
}

func TestCreateIntentUnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.processor.CreateIntent(context.Background(), "no-such-order", "i1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestReconcileSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeSucceeded))

	settled, err := f.store.Intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, settled.Status)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestReconcileFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeFailed))

	settled, err := f.store.Intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentFailed, settled.Status)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentFailed, got.Status)
}

func TestReconcileDuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeSucceeded))
	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeSucceeded))

	settled, err := f.store.Intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, settled.Status)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestReconcileConflictingOutcome(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	require.NoError(t, f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeSucceeded))
	err = f.processor.Reconcile(ctx, intent.ProviderRef, domain.OutcomeFailed)
	assert.ErrorIs(t, err, domain.ErrReconciliationConflict)

	// First-settled state wins.
	settled, err := f.store.Intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, settled.Status)

	got, err := f.ledger.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestReconcileUnknownReference(t *testing.T) {
	f := newFixture()

	err := f.processor.Reconcile(context.Background(), "ch_unknown", domain.OutcomeSucceeded)
	assert.ErrorIs(t, err, domain.ErrUnknownIntent)
}

func TestReconcileRejectsUnknownOutcome(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createOrder(t, "k1")

	intent, err := f.processor.CreateIntent(ctx, order.ID, "i1")
	require.NoError(t, err)

	err = f.processor.Reconcile(ctx, intent.ProviderRef, domain.PaymentOutcome("refunded"))
	assert.ErrorIs(t, err, domain.ErrReconciliationConflict)

	pending, err := f.store.Intents.FindByID(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentPending, pending.Status)
}
