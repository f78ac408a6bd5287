package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"donation-api/internal/infra"
	"donation-api/internal/payment"
)

// Options configures the Stripe-backed card adapter.
type Options struct {
	SecretKey      string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// Adapter creates and inspects Stripe payment intents. Card confirmation
// happens in the browser; the server only ever reads the intent back.
type Adapter struct {
	intents    intentAPI
	configured bool
	logger     *infra.Logger
}

// NewAdapter builds an adapter with its own Stripe backend so the global
// stripe.Key is never touched.
func NewAdapter(opts Options) *Adapter {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	cfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.URL = stripe.String(base)
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	key := strings.TrimSpace(opts.SecretKey)
	return &Adapter{
		intents:    &paymentintent.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, cfg), Key: key},
		configured: key != "",
		logger:     logger,
	}
}

// HasCredentials reports whether the adapter can perform remote calls.
func (a *Adapter) HasCredentials() bool {
	return a.configured
}

// Initiate creates a payment intent for the amount in minor units and returns
// its client secret as the session token.
func (a *Adapter) Initiate(ctx context.Context, money payment.Money) (payment.Session, error) {
	units := money.MinorUnits()
	if units <= 0 {
		return payment.Session{}, fmt.Errorf("%w: %s is below one minor unit", payment.ErrInvalidAmount, money)
	}
	if !a.configured {
		return payment.Session{}, payment.ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(units),
		Currency: stripe.String(strings.ToLower(money.Code())),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	pi, err := a.intents.New(params)
	if err != nil {
		return payment.Session{}, describe(err)
	}
	a.logger.Debug().Str("intent", pi.ID).Int64("amount", units).Str("currency", string(pi.Currency)).Msg("card: payment intent created")
	return payment.Session{
		Gateway:   payment.GatewayCard,
		Money:     money,
		Token:     pi.ClientSecret,
		Reference: pi.ID,
		Status:    payment.SessionInitiated,
	}, nil
}

// Finalize reads the intent back from Stripe; the browser already confirmed it.
func (a *Adapter) Finalize(ctx context.Context, reference string) (payment.Result, error) {
	return a.Lookup(ctx, reference)
}

// Lookup retrieves the intent named by reference, which may be the intent id
// or its client secret.
func (a *Adapter) Lookup(ctx context.Context, reference string) (payment.Result, error) {
	id, err := IntentID(reference)
	if err != nil {
		return payment.Result{}, err
	}
	if !a.configured {
		return payment.Result{}, payment.ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := a.intents.Get(id, params)
	if err != nil {
		return payment.Result{}, describe(err)
	}
	return toResult(pi)
}

// IntentID extracts the payment intent id from an id or a client secret.
func IntentID(reference string) (string, error) {
	ref := strings.TrimSpace(reference)
	if i := strings.Index(ref, "_secret_"); i > 0 {
		ref = ref[:i]
	}
	if !strings.HasPrefix(ref, "pi_") || len(ref) <= len("pi_") {
		return "", fmt.Errorf("%w: %q is not a payment intent", payment.ErrInvalidReference, reference)
	}
	return ref, nil
}

func toResult(pi *stripe.PaymentIntent) (payment.Result, error) {
	res := payment.Result{
		Gateway:       payment.GatewayCard,
		TransactionID: pi.ID,
		Status:        string(pi.Status),
		Success:       pi.Status == stripe.PaymentIntentStatusSucceeded,
	}
	if res.Success && pi.AmountReceived > 0 {
		settled, err := payment.FromMinorUnits(pi.AmountReceived, string(pi.Currency))
		if err != nil {
			return payment.Result{}, fmt.Errorf("card: settled amount: %w", err)
		}
		res.Settled = settled
	}
	if pi.LastResponse != nil && len(pi.LastResponse.RawJSON) > 0 {
		res.Payload = json.RawMessage(pi.LastResponse.RawJSON)
	} else if raw, err := json.Marshal(pi); err == nil {
		res.Payload = raw
	}
	return res, nil
}

func describe(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("card: %w", err)
	}
	switch serr.Code {
	case stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", payment.ErrInvalidReference, serr.Msg)
	case stripe.ErrorCodeAmountTooSmall, stripe.ErrorCodeAmountTooLarge:
		return fmt.Errorf("%w: %s", payment.ErrInvalidAmount, serr.Msg)
	}
	return fmt.Errorf("card: stripe %s (status %d, code %s, request %s): %w", serr.Type, serr.HTTPStatusCode, serr.Code, serr.RequestID, err)
}

var _ payment.Adapter = (*Adapter)(nil)
