package httpx

import "github.com/jcmexdev/commerce-core/internal/commerce/domain"

type SignInRequest struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
}

type SignInResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type CreateOrderRequest struct {
	Items          []LineItemDTO `json:"items"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

type LineItemDTO struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderResponse struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Status    string        `json:"status"`
	Total     int64         `json:"total"`
	Items     []LineItemDTO `json:"items"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
}

type CreateIntentRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type IntentResponse struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	ProviderRef string `json:"provider_ref"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	items := make([]LineItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = LineItemDTO{SKU: it.SKU, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return OrderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    string(o.Status),
		Total:     o.Total,
		Items:     items,
		CreatedAt: formatTimestamp(o.CreatedAt),
		UpdatedAt: formatTimestamp(o.UpdatedAt),
	}
}

func mapIntentToResponse(pi *domain.PaymentIntent) IntentResponse {
	return IntentResponse{
		ID:          pi.ID,
		OrderID:     pi.OrderID,
		Amount:      pi.Amount,
		Status:      string(pi.Status),
		ProviderRef: pi.ProviderRef,
		CreatedAt:   formatTimestamp(pi.CreatedAt),
		UpdatedAt:   formatTimestamp(pi.UpdatedAt),
	}
}
