package card

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"

	"donation-api/internal/payment"
)

type fakeIntents struct {
	newCalls int
	getCalls int
	params   *stripe.PaymentIntentParams
	intent   *stripe.PaymentIntent
	err      error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.newCalls++
	f.params = params
	return f.intent, f.err
}

func (f *fakeIntents) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func usd(t *testing.T, amount string) payment.Money {
	t.Helper()
	m, err := payment.NewMoney(decimal.RequireFromString(amount), "usd")
	if err != nil {
		t.Fatalf("NewMoney: %v", err)
	}
	return m
}

func TestInitiateSubCentAmountMakesNoCall(t *testing.T) {
	fake := &fakeIntents{}
	a := &Adapter{intents: fake, configured: true, logger: NewAdapter(Options{}).logger}

	// 0.004 USD is 0.4 cents and rounds to 0 minor units.
	_, err := a.Initiate(context.Background(), usd(t, "0.004"))
	if !errors.Is(err, payment.ErrInvalidAmount) {
		t.Fatalf("error = %v, want ErrInvalidAmount", err)
	}
	if fake.newCalls != 0 {
		t.Fatalf("stripe called %d times", fake.newCalls)
	}
}

func TestInitiateRequiresCredentials(t *testing.T) {
	a := NewAdapter(Options{})
	if a.HasCredentials() {
		t.Fatalf("adapter without key must report no credentials")
	}
	if _, err := a.Initiate(context.Background(), usd(t, "5")); !errors.Is(err, payment.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	if _, err := a.Lookup(context.Background(), "pi_123"); !errors.Is(err, payment.ErrNotConfigured) {
		t.Fatalf("lookup error = %v, want ErrNotConfigured", err)
	}
}

func TestInitiateBuildsMinorUnitParams(t *testing.T) {
	fake := &fakeIntents{intent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x", Currency: "usd"}}
	a := &Adapter{intents: fake, configured: true, logger: NewAdapter(Options{}).logger}

	session, err := a.Initiate(context.Background(), usd(t, "0.285"))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if *fake.params.Amount != 29 || *fake.params.Currency != "usd" {
		t.Fatalf("params amount=%d currency=%s", *fake.params.Amount, *fake.params.Currency)
	}
	if fake.params.Context == nil {
		t.Fatalf("request context not propagated")
	}
	if session.Token != "pi_1_secret_x" || session.Reference != "pi_1" || session.Status != payment.SessionInitiated {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestIntentID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "pi_3Mtw", want: "pi_3Mtw"},
		{in: " pi_3Mtw_secret_YrKJUKribcBjcG8HVhfZluoGH ", want: "pi_3Mtw"},
		{in: "", wantErr: true},
		{in: "pi_", wantErr: true},
		{in: "ch_123", wantErr: true},
		{in: "garbage_secret_x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := IntentID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, payment.ErrInvalidReference) {
				t.Fatalf("IntentID(%q) error = %v, want ErrInvalidReference", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("IntentID(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestLookupMalformedReferenceMakesNoCall(t *testing.T) {
	fake := &fakeIntents{}
	a := &Adapter{intents: fake, configured: true, logger: NewAdapter(Options{}).logger}
	if _, err := a.Finalize(context.Background(), "not-a-token"); !errors.Is(err, payment.ErrInvalidReference) {
		t.Fatalf("error = %v, want ErrInvalidReference", err)
	}
	if fake.getCalls != 0 {
		t.Fatalf("stripe called %d times", fake.getCalls)
	}
}

func newStripeServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("amount") != "2500" || r.PostForm.Get("currency") != "usd" {
				t.Errorf("unexpected form %v", r.PostForm)
			}
			if r.PostForm.Get("automatic_payment_methods[enabled]") != "true" {
				t.Errorf("automatic payment methods not enabled: %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"id":"pi_abc","object":"payment_intent","amount":2500,"currency":"usd","client_secret":"pi_abc_secret_123","status":"requires_payment_method"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_abc":
			_, _ = w.Write([]byte(`{"id":"pi_abc","object":"payment_intent","amount":2500,"amount_received":2500,"currency":"usd","status":"succeeded"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payment_intents/pi_pending":
			_, _ = w.Write([]byte(`{"id":"pi_pending","object":"payment_intent","amount":2500,"amount_received":0,"currency":"usd","status":"requires_payment_method"}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payment_intents/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
		}
	}))
}

func TestAdapterAgainstStripeAPI(t *testing.T) {
	var calls atomic.Int32
	srv := newStripeServer(t, &calls)
	defer srv.Close()

	a := NewAdapter(Options{SecretKey: "sk_test_123", BaseURL: srv.URL, HTTPClient: srv.Client()})

	session, err := a.Initiate(context.Background(), usd(t, "25.00"))
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if session.Token != "pi_abc_secret_123" || session.Reference != "pi_abc" {
		t.Fatalf("unexpected session %+v", session)
	}

	// The client secret is accepted as a reference as well.
	res, err := a.Finalize(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !res.Success || res.Status != "succeeded" || res.TransactionID != "pi_abc" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.Settled.Covers(decimal.RequireFromString("25")) {
		t.Fatalf("settled = %s, want 25.00 USD", res.Settled)
	}
	if len(res.Payload) == 0 {
		t.Fatalf("expected raw payload")
	}

	pending, err := a.Lookup(context.Background(), "pi_pending")
	if err != nil {
		t.Fatalf("Lookup pending: %v", err)
	}
	if pending.Success || !pending.Settled.IsZero() {
		t.Fatalf("pending intent must not report success: %+v", pending)
	}

	if _, err := a.Lookup(context.Background(), "pi_expired"); !errors.Is(err, payment.ErrInvalidReference) {
		t.Fatalf("missing intent error = %v, want ErrInvalidReference", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("stripe calls = %d, want 4", calls.Load())
	}
}
