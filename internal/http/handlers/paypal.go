package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"donation-api/internal/payment"
)

type createOrderRequest struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
}

type captureOrderRequest struct {
	OrderID string `json:"orderID"`
}

func (a *App) PayPalCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !a.decode(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, http.StatusBadRequest, "Invalid amount provided.")
		return
	}
	session, err := a.Payments.Initiate(r.Context(), amount, req.Currency, payment.GatewayPayPal)
	if err != nil {
		a.fail(w, r, err, "Failed to create PayPal order")
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"orderID": session.Token})
}

// PayPalCaptureOrder captures an approved order and relays PayPal's capture response.
func (a *App) PayPalCaptureOrder(w http.ResponseWriter, r *http.Request) {
	var req captureOrderRequest
	if !a.decode(w, r, &req) {
		return
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		a.error(w, http.StatusBadRequest, "orderID is required.")
		return
	}
	result, err := a.Payments.Finalize(r.Context(), payment.GatewayPayPal, orderID)
	if err != nil {
		a.fail(w, r, err, "Failed to capture PayPal order")
		return
	}
	if len(result.Payload) > 0 {
		a.json(w, http.StatusOK, result.Payload)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": result.TransactionID, "status": result.Status})
}
