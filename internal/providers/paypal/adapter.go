package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"donation-api/internal/payment"
)

const statusCompleted = "COMPLETED"

// Adapter maps the PayPal create/capture order flow onto payment.Adapter.
type Adapter struct {
	client *Client
}

func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// Initiate creates an order; its id is both the client token and the reference.
func (a *Adapter) Initiate(ctx context.Context, money payment.Money) (payment.Session, error) {
	if !a.client.HasCredentials() {
		return payment.Session{}, payment.ErrNotConfigured
	}
	order, err := a.client.CreateOrder(ctx, Amount{CurrencyCode: money.Code(), Value: money.Value()})
	if err != nil {
		return payment.Session{}, err
	}
	if order.ID == "" {
		return payment.Session{}, errors.New("paypal: order created without id")
	}
	return payment.Session{
		Gateway:   payment.GatewayPayPal,
		Money:     money,
		Token:     order.ID,
		Reference: order.ID,
		Status:    payment.SessionInitiated,
	}, nil
}

// Finalize captures the order. Orders the payer never approved fail with a 422 APIError.
func (a *Adapter) Finalize(ctx context.Context, orderID string) (payment.Result, error) {
	if !a.client.HasCredentials() {
		return payment.Result{}, payment.ErrNotConfigured
	}
	order, err := a.client.CaptureOrder(ctx, orderID)
	if err != nil {
		return payment.Result{}, classify(err)
	}
	return toResult(order)
}

// Lookup reads the order and reports success only once it has been captured.
func (a *Adapter) Lookup(ctx context.Context, orderID string) (payment.Result, error) {
	if !a.client.HasCredentials() {
		return payment.Result{}, payment.ErrNotConfigured
	}
	order, err := a.client.GetOrder(ctx, orderID)
	if err != nil {
		return payment.Result{}, classify(err)
	}
	return toResult(order)
}

func toResult(order *Order) (payment.Result, error) {
	res := payment.Result{
		Gateway:       payment.GatewayPayPal,
		TransactionID: order.ID,
		Status:        order.Status,
		Success:       order.Status == statusCompleted,
		Payload:       order.Raw,
	}
	var amount *Amount
	if capture := order.FirstCapture(); capture != nil {
		res.TransactionID = capture.ID
		res.Success = res.Success && capture.Status == statusCompleted
		amount = capture.Amount
	} else if len(order.PurchaseUnits) > 0 {
		amount = order.PurchaseUnits[0].Amount
	}
	if res.Success && amount != nil {
		value, err := decimal.NewFromString(amount.Value)
		if err != nil {
			return payment.Result{}, fmt.Errorf("paypal: settled amount %q: %w", amount.Value, err)
		}
		settled, err := payment.NewMoney(value, amount.CurrencyCode)
		if err != nil {
			return payment.Result{}, fmt.Errorf("paypal: settled amount: %w", err)
		}
		res.Settled = settled
	}
	return res, nil
}

func classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", payment.ErrInvalidReference, err)
	}
	return err
}

var _ payment.Adapter = (*Adapter)(nil)
