package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"donation-api/internal/domain"
	"donation-api/internal/middleware"
	"donation-api/internal/service"
)

type donationRequest struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Amount          json.RawMessage `json:"amount"`
	TransactionHash string          `json:"transactionHash"`
	Gateway         string          `json:"gateway"`
}

type donationResponse struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Amount          json.Number `json:"amount"`
	TransactionHash string      `json:"transactionHash,omitempty"`
	Gateway         string      `json:"gateway,omitempty"`
	Country         string      `json:"country,omitempty"`
	Date            time.Time   `json:"date"`
}

func toDonationResponse(d domain.Donation) donationResponse {
	return donationResponse{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		Amount:          json.Number(d.Amount.String()),
		TransactionHash: d.TransactionHash,
		Gateway:         d.Gateway,
		Country:         d.Country,
		Date:            d.CreatedAt,
	}
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if !a.decode(w, r, &req) {
		return
	}
	// An unparsable amount is left at zero and reported by field validation.
	amount, _ := parseAmount(req.Amount)
	donation, err := a.Donations.Create(r.Context(), service.CreateDonationInput{
		Name:            req.Name,
		Email:           req.Email,
		Amount:          amount,
		TransactionHash: req.TransactionHash,
		Gateway:         req.Gateway,
		Country:         middleware.CountryFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err, "Failed to save donation")
		return
	}
	a.json(w, http.StatusCreated, toDonationResponse(donation))
}

func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	donations, err := a.Donations.List(r.Context())
	if err != nil {
		a.fail(w, r, err, "Failed to load donations")
		return
	}
	items := make([]donationResponse, 0, len(donations))
	for _, d := range donations {
		items = append(items, toDonationResponse(d))
	}
	a.json(w, http.StatusOK, items)
}
