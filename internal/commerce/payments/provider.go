package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Provider is the port to the out-of-process payment provider. CreateCharge
// registers a charge for the amount and returns the provider-assigned
// reference that later webhook notifications will carry.
type Provider interface {
	CreateCharge(ctx context.Context, orderID string, amount int64) (string, error)
}

// Ensure fakeProvider implements the port at compile time.
var _ Provider = (*fakeProvider)(nil)

// fakeProvider is an in-memory payment provider for local development and
// tests. It acknowledges every charge immediately; settlement is driven by
// posting a signed notification to the webhook endpoint, exactly as a real
// provider would.
type fakeProvider struct {
	mu      sync.Mutex
	charges map[string]fakeCharge
}

type fakeCharge struct {
	orderID string
	amount  int64
}

// NewFakeProvider returns an in-memory Provider for development/testing.
func NewFakeProvider() Provider {
	return &fakeProvider{charges: make(map[string]fakeCharge)}
}

func (p *fakeProvider) CreateCharge(ctx context.Context, orderID string, amount int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := "ch_" + uuid.NewString()
	p.charges[ref] = fakeCharge{orderID: orderID, amount: amount}
	return ref, nil
}
