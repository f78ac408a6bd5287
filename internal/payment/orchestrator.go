package payment

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"donation-api/internal/infra"
)

// Orchestrator dispatches checkout calls to the adapter of the selected
// gateway. It holds no per-checkout state and never touches persistence.
type Orchestrator struct {
	adapters map[Gateway]Adapter
	logger   *infra.Logger
}

// NewOrchestrator registers one adapter per gateway. A nil logger discards output.
func NewOrchestrator(adapters map[Gateway]Adapter, logger *infra.Logger) *Orchestrator {
	registered := make(map[Gateway]Adapter, len(adapters))
	for g, a := range adapters {
		if g.Valid() && a != nil {
			registered[g] = a
		}
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{adapters: registered, logger: logger}
}

// Initiate validates the amount and currency, then asks the gateway for a
// session token for the client.
func (o *Orchestrator) Initiate(ctx context.Context, amount decimal.Decimal, currencyCode string, gateway Gateway) (Session, error) {
	money, err := NewMoney(amount, currencyCode)
	if err != nil {
		return Session{}, err
	}
	adapter, err := o.adapter(gateway)
	if err != nil {
		return Session{}, err
	}
	session, err := adapter.Initiate(ctx, money)
	if err != nil {
		if IsInputError(err) {
			return Session{}, err
		}
		o.logger.Error().Err(err).Str("gateway", gateway.String()).Str("amount", money.String()).Msg("payment: initiate failed")
		return Session{}, gatewayError(gateway, "initiate", err)
	}
	o.logger.Debug().Str("gateway", gateway.String()).Str("reference", session.Reference).Str("amount", money.String()).Msg("payment: session initiated")
	return session, nil
}

// Finalize completes a checkout server side: capture for PayPal, intent
// retrieval for cards. A result with Success=false is not an error.
func (o *Orchestrator) Finalize(ctx context.Context, gateway Gateway, reference string) (Result, error) {
	return o.call(ctx, gateway, reference, "finalize", Adapter.Finalize)
}

// Verify looks up the current state of a payment without changing it.
func (o *Orchestrator) Verify(ctx context.Context, gateway Gateway, reference string) (Result, error) {
	return o.call(ctx, gateway, reference, "verify", Adapter.Lookup)
}

func (o *Orchestrator) call(ctx context.Context, gateway Gateway, reference, op string, fn func(Adapter, context.Context, string) (Result, error)) (Result, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Result{}, ErrMissingReference
	}
	adapter, err := o.adapter(gateway)
	if err != nil {
		return Result{}, err
	}
	result, err := fn(adapter, ctx, reference)
	if err != nil {
		if IsInputError(err) {
			return Result{}, err
		}
		o.logger.Error().Err(err).Str("gateway", gateway.String()).Str("reference", reference).Msgf("payment: %s failed", op)
		return Result{}, gatewayError(gateway, op, err)
	}
	result.Gateway = gateway
	o.logger.Debug().
		Str("gateway", gateway.String()).
		Str("reference", reference).
		Str("status", result.Status).
		Bool("success", result.Success).
		Msgf("payment: %s", op)
	return result, nil
}

func (o *Orchestrator) adapter(gateway Gateway) (Adapter, error) {
	adapter, ok := o.adapters[gateway]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, gateway)
	}
	return adapter, nil
}
