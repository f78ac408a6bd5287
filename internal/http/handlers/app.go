package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"donation-api/internal/domain"
	"donation-api/internal/infra"
	"donation-api/internal/middleware"
	"donation-api/internal/payment"
	"donation-api/internal/service"
)

const maxBodyBytes = 64 << 10

// DonationService creates and lists donations.
type DonationService interface {
	Create(ctx context.Context, in service.CreateDonationInput) (domain.Donation, error)
	List(ctx context.Context) ([]domain.Donation, error)
}

// PaymentService starts and finalizes checkouts.
type PaymentService interface {
	Initiate(ctx context.Context, amount decimal.Decimal, currency string, gateway payment.Gateway) (payment.Session, error)
	Finalize(ctx context.Context, gateway payment.Gateway, reference string) (payment.Result, error)
}

// ReadinessProbe reports whether the donation store is connected.
type ReadinessProbe interface {
	Ready() bool
}

// Deps wires an App.
type Deps struct {
	Donations    DonationService
	Payments     PaymentService
	Store        ReadinessProbe
	Logger       *infra.Logger
	CardCurrency string
}

type App struct {
	Donations    DonationService
	Payments     PaymentService
	Store        ReadinessProbe
	Logger       *infra.Logger
	CardCurrency string
	StartedAt    time.Time
	now          func() time.Time
}

func NewApp(deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	cardCurrency := deps.CardCurrency
	if cardCurrency == "" {
		cardCurrency = "usd"
	}
	return &App{
		Donations:    deps.Donations,
		Payments:     deps.Payments,
		Store:        deps.Store,
		Logger:       logger,
		CardCurrency: cardCurrency,
		StartedAt:    time.Now(),
		now:          time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}

// decode reads a bounded JSON body into dst.
func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

// fail maps an error onto the HTTP status and {error} body. Provider and
// store details are logged, never returned; internalMsg is what the client sees.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var verr *domain.ValidationError
	var gwErr *payment.GatewayError
	switch {
	case errors.As(err, &verr):
		a.json(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, domain.ErrPaymentNotVerified):
		a.error(w, http.StatusPaymentRequired, "Payment could not be verified.")
	case errors.Is(err, domain.ErrPaymentMismatch):
		a.error(w, http.StatusPaymentRequired, "Payment amount does not match the donation.")
	case errors.Is(err, domain.ErrDuplicatePayment):
		a.error(w, http.StatusConflict, "This payment has already been recorded.")
	case errors.Is(err, domain.ErrStoreUnavailable):
		a.error(w, http.StatusServiceUnavailable, "Donation store is not available yet, please retry.")
	case errors.Is(err, payment.ErrInvalidAmount):
		a.error(w, http.StatusBadRequest, "Invalid amount provided.")
	case errors.Is(err, payment.ErrUnsupportedCurrency):
		a.error(w, http.StatusBadRequest, "Unsupported currency.")
	case errors.Is(err, payment.ErrUnsupportedGateway):
		a.error(w, http.StatusBadRequest, "Unsupported payment gateway.")
	case errors.Is(err, payment.ErrMissingReference):
		a.error(w, http.StatusBadRequest, "Payment reference is required.")
	case errors.Is(err, payment.ErrInvalidReference):
		a.error(w, http.StatusBadRequest, "Unknown payment reference.")
	default:
		event := a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path)
		if errors.As(err, &gwErr) {
			event = event.Str("gateway", gwErr.Gateway.String()).Str("op", gwErr.Op)
		}
		event.Msg(internalMsg)
		a.error(w, http.StatusInternalServerError, internalMsg)
	}
}
