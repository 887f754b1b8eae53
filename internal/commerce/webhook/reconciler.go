// Package webhook translates inbound payment-provider notifications into
// reconciliation calls. It is stateless: verify the signature, extract the
// provider reference and outcome, forward to the processor. An unverifiable
// notification is rejected before it can reach the processor. Ordering and
// duplication of deliveries are tolerated downstream, not here.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/commerce/payments"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the request body.
const SignatureHeader = "X-Webhook-Signature"

// Notification is the provider's wire format for an asynchronous payment
// outcome.
type Notification struct {
	ProviderRef string `json:"provider_ref"`
	Outcome     string `json:"outcome"`
	EventID     string `json:"event_id,omitempty"`
}

// Reconciler verifies and forwards provider notifications.
type Reconciler struct {
	secret    []byte
	processor *payments.Processor
}

// NewReconciler builds a Reconciler with the shared webhook secret.
func NewReconciler(secret string, processor *payments.Processor) *Reconciler {
	return &Reconciler{secret: []byte(secret), processor: processor}
}

// Handle verifies the signature over the raw body, decodes the notification
// and forwards it to the processor. Fails closed: a bad signature returns
// ErrInvalidWebhookSignature and nothing else runs.
func (r *Reconciler) Handle(ctx context.Context, body []byte, signature string) error {
	if !Verify(r.secret, body, signature) {
		return domain.ErrInvalidWebhookSignature
	}

	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("webhook: decode notification: %w", err)
	}
	if n.ProviderRef == "" || n.Outcome == "" {
		return fmt.Errorf("webhook: notification missing provider_ref or outcome")
	}

	return r.processor.Reconcile(ctx, n.ProviderRef, domain.PaymentOutcome(n.Outcome))
}

// Sign computes the hex HMAC-SHA256 digest of body under secret. The fake
// provider and tests use it to produce notifications Verify accepts.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature in constant time.
func Verify(secret, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
