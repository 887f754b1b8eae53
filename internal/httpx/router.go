package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/commerce-core/internal/httpx/middlewares"
)

// NewRouter assembles the commerce API routes with the ambient middleware
// stack and wraps the whole mux in otelhttp so every request gets a span.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.RequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", handler.Hello)

	r.Route("/user", func(r chi.Router) {
		r.Post("/signin", handler.SignIn)
		r.Post("/signout", handler.SignOut)
	})

	r.Post("/orders", handler.CreateOrder)
	r.Get("/orders/{id}", handler.GetOrder)
	r.Post("/orders/{id}/payment-intent", handler.CreatePaymentIntent)

	r.Post("/payments/webhook", handler.PaymentWebhook)

	return otelhttp.NewHandler(r, "commerce-api")
}
