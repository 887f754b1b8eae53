package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/commerce-core/internal/commerce/domain"
	"github.com/jcmexdev/commerce-core/internal/commerce/ledger"
	"github.com/jcmexdev/commerce-core/internal/commerce/payments"
	"github.com/jcmexdev/commerce-core/internal/commerce/session"
	"github.com/jcmexdev/commerce-core/internal/commerce/webhook"
	"github.com/jcmexdev/commerce-core/internal/httpx/middlewares"
)

// SessionCookie is the cookie carrying the session token. The Authorization
// bearer header is accepted as a fallback for non-browser clients.
const SessionCookie = "session_token"

// Handler exposes the commerce endpoints. It orchestrates the resolver,
// ledger, processor and reconciler per request and performs no business
// logic itself.
type Handler struct {
	resolver   *session.Resolver
	accounts   *session.Manager
	ledger     *ledger.Ledger
	processor  *payments.Processor
	reconciler *webhook.Reconciler
	sessionTTL time.Duration
}

// NewHandler wires the handler to its collaborators.
func NewHandler(
	resolver *session.Resolver,
	accounts *session.Manager,
	l *ledger.Ledger,
	processor *payments.Processor,
	reconciler *webhook.Reconciler,
	sessionTTL time.Duration,
) *Handler {
	return &Handler{
		resolver:   resolver,
		accounts:   accounts,
		ledger:     l,
		processor:  processor,
		reconciler: reconciler,
		sessionTTL: sessionTTL,
	}
}

// Hello is a trivial liveness endpoint.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello, World!"})
}

// SignIn verifies the credential, creates a session and sets the cookie.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	token, user, err := h.accounts.SignIn(r.Context(), req.Username, req.Credential)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, SignInResponse{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	})
}

// SignOut destroys the caller's session and clears the cookie.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if err := h.accounts.SignOut(r.Context(), token); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// CreateOrder records a purchase intent for the authenticated caller.
// The idempotency key comes from the X-Idempotency-Key header or, failing
// that, the request body; a repeated request returns the original order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	key := middlewares.IdempotencyKey(r.Context())
	if key == "" {
		key = req.IdempotencyKey
	}
	if key == "" {
		writeError(w, http.StatusBadRequest, "idempotency_key_required", "supply X-Idempotency-Key or idempotency_key")
		return
	}

	items := make([]domain.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.LineItem{SKU: it.SKU, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}

	slog.InfoContext(r.Context(), "creating order",
		"request_id", middlewares.RequestID(r.Context()), "user_id", identity.UserID)

	order, err := h.ledger.Create(r.Context(), identity.UserID, key, items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// GetOrder returns a single order owned by the caller.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	order, err := h.ownedOrder(r, identity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// CreatePaymentIntent opens a payment attempt against an order the caller
// owns. Ownership is checked here, before any mutating call reaches the
// processor.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), sessionToken(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	order, err := h.ownedOrder(r, identity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	var req CreateIntentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}

	key := middlewares.IdempotencyKey(r.Context())
	if key == "" {
		key = req.IdempotencyKey
	}
	if key == "" {
		writeError(w, http.StatusBadRequest, "idempotency_key_required", "supply X-Idempotency-Key or idempotency_key")
		return
	}

	intent, err := h.processor.CreateIntent(r.Context(), order.ID, key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapIntentToResponse(intent))
}

// PaymentWebhook receives provider notifications. Once the signature
// verifies, business outcomes that need no provider retry (duplicate
// delivery, unknown reference, contradictory outcome) still answer 200 so
// the provider stops redelivering; the conflict is logged for review.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable_body", err.Error())
		return
	}

	err = h.reconciler.Handle(r.Context(), body, r.Header.Get(webhook.SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case errors.Is(err, domain.ErrInvalidWebhookSignature):
		writeError(w, http.StatusUnauthorized, "invalid_signature", "")
	case errors.Is(err, domain.ErrUnknownIntent):
		slog.WarnContext(r.Context(), "webhook for unknown intent", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, domain.ErrReconciliationConflict):
		// Surfaced for operator review, never bounced back to the provider.
		slog.ErrorContext(r.Context(), "reconciliation conflict", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "conflict_recorded"})
	default:
		writeError(w, http.StatusBadRequest, "invalid_notification", err.Error())
	}
}

// ownedOrder loads the order from the URL and enforces that the caller owns it.
func (h *Handler) ownedOrder(r *http.Request, identity domain.Identity) (*domain.Order, error) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		return nil, domain.ErrOrderNotFound
	}
	order, err := h.ledger.Get(r.Context(), orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != identity.UserID {
		return nil, domain.ErrUnauthorized
	}
	return order, nil
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "error", err)
	}
	writeError(w, status, code, err.Error())
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid_order"
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrIntentNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrOrderNotPayable):
		return http.StatusConflict, "order_not_payable"
	case errors.Is(err, domain.ErrConflictingIntent):
		return http.StatusConflict, "conflicting_intent"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrStorageConflict):
		return http.StatusConflict, "storage_conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// sessionToken extracts the token from the session cookie, falling back to
// an Authorization bearer header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
