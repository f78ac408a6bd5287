package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"donation-api/internal/http/handlers"
	"donation-api/internal/middleware"
)

// Options configures the cross-cutting middleware.
type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	TrustedProxyHops   int
	CountryLookup      middleware.CountryLookup
	Logger             zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP(opts.TrustedProxyHops),
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.SecureHeaders,
		middleware.CORS(opts.AllowedOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	limit := middleware.RateLimit(opts.RateLimitPerMinute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.Health)
		r.Get("/ready", app.Ready)

		r.Route("/donations", func(r chi.Router) {
			r.Get("/", app.DonationsList)
			r.With(limit, middleware.Country(opts.CountryLookup)).Post("/", app.DonationsCreate)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(limit)
			r.Post("/create-payment-intent", app.CreatePaymentIntent)
			r.Post("/confirm-payment", app.ConfirmPayment)
		})

		r.Route("/paypal", func(r chi.Router) {
			r.Use(limit)
			r.Post("/create-order", app.PayPalCreateOrder)
			r.Post("/capture-order", app.PayPalCaptureOrder)
		})
	})

	return r
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
