package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"donation-api/internal/payment"
)

type paymentIntentRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type confirmPaymentRequest struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// CreatePaymentIntent starts a card checkout and hands the client secret to the browser.
func (a *App) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, http.StatusBadRequest, "Invalid amount provided.")
		return
	}
	session, err := a.Payments.Initiate(r.Context(), amount, a.CardCurrency, payment.GatewayCard)
	if err != nil {
		a.fail(w, r, err, "Failed to create payment intent")
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"clientSecret":    session.Token,
		"paymentIntentId": session.Reference,
	})
}

// ConfirmPayment checks server side whether the card payment the browser
// confirmed has succeeded.
func (a *App) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !a.decode(w, r, &req) {
		return
	}
	ref := strings.TrimSpace(req.PaymentIntentID)
	if ref == "" {
		ref = strings.TrimSpace(req.ClientSecret)
	}
	if ref == "" {
		a.error(w, http.StatusBadRequest, "clientSecret or paymentIntentId is required.")
		return
	}
	result, err := a.Payments.Finalize(r.Context(), payment.GatewayCard, ref)
	if err != nil {
		a.fail(w, r, err, "Failed to confirm payment")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success":         result.Success,
		"status":          result.Status,
		"paymentIntentId": result.TransactionID,
	})
}
