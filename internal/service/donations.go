package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"donation-api/internal/domain"
	"donation-api/internal/infra"
	"donation-api/internal/payment"
)

const receiptTimeout = 30 * time.Second

// PaymentVerifier confirms server side that a payment reference settled.
type PaymentVerifier interface {
	Verify(ctx context.Context, gateway payment.Gateway, reference string) (payment.Result, error)
}

// ReceiptSender notifies a donor once the donation is stored.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, donation domain.Donation) error
}

// CreateDonationInput is the donor-supplied part of a donation.
type CreateDonationInput struct {
	Name            string
	Email           string
	Amount          decimal.Decimal
	TransactionHash string
	Gateway         string
	Country         string
}

// DonationServiceOptions wires the service. Currency is the ISO code donations
// are recorded in; payments settled in any other currency are refused. Empty
// selects payment.DefaultCurrency.
type DonationServiceOptions struct {
	Store                  domain.DonationRepository
	Payments               PaymentVerifier
	Receipts               ReceiptSender
	RequireVerifiedPayment bool
	Currency               string
	Logger                 *infra.Logger
}

// DonationService records a donation only after its payment checks out.
type DonationService struct {
	store           domain.DonationRepository
	payments        PaymentVerifier
	receipts        ReceiptSender
	requireVerified bool
	currency        string
	logger          *infra.Logger
	async           func(func())
}

func NewDonationService(opts DonationServiceOptions) *DonationService {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	currency := payment.DefaultCurrency
	if unit, err := payment.ParseCurrency(opts.Currency); err == nil {
		currency = unit.String()
	} else {
		logger.Warn().Str("currency", opts.Currency).Msg("donations: unknown currency, using default")
	}
	return &DonationService{
		store:           opts.Store,
		payments:        opts.Payments,
		receipts:        opts.Receipts,
		requireVerified: opts.RequireVerifiedPayment,
		currency:        currency,
		logger:          logger,
		async:           func(fn func()) { go fn() },
	}
}

// Create validates the input, verifies the payment reference with the
// provider, and stores the donation.
func (s *DonationService) Create(ctx context.Context, in CreateDonationInput) (domain.Donation, error) {
	d := domain.Donation{
		Name:            in.Name,
		Email:           in.Email,
		Amount:          in.Amount,
		TransactionHash: in.TransactionHash,
		Gateway:         in.Gateway,
		Country:         in.Country,
	}
	d.Normalize()

	gateway, err := s.validate(&d)
	if err != nil {
		return domain.Donation{}, err
	}

	if d.TransactionHash != "" {
		txID, err := s.verify(ctx, gateway, d)
		if err != nil {
			return domain.Donation{}, err
		}
		d.TransactionHash = txID
	}

	stored, err := s.store.Create(ctx, d)
	if err != nil {
		return domain.Donation{}, err
	}
	s.logger.Info().
		Str("donation_id", stored.ID).
		Str("amount", stored.Amount.String()).
		Str("gateway", stored.Gateway).
		Str("transaction", stored.TransactionHash).
		Msg("donation recorded")
	s.sendReceipt(ctx, stored)
	return stored, nil
}

// List returns all donations in insertion order.
func (s *DonationService) List(ctx context.Context) ([]domain.Donation, error) {
	return s.store.List(ctx)
}

func (s *DonationService) validate(d *domain.Donation) (payment.Gateway, error) {
	var verr domain.ValidationError
	if err := d.Validate(); err != nil {
		var fieldErr *domain.ValidationError
		if !errors.As(err, &fieldErr) {
			return 0, err
		}
		verr.Fields = append(verr.Fields, fieldErr.Fields...)
	}

	var gateway payment.Gateway
	if d.Gateway != "" {
		g, err := payment.ParseGateway(d.Gateway)
		if err != nil {
			verr.Add("gateway", "must be card or paypal")
		} else {
			gateway = g
			d.Gateway = g.String()
		}
		if d.TransactionHash == "" {
			verr.Add("transactionHash", "is required with a gateway")
		}
	} else if d.TransactionHash == "" && s.requireVerified {
		verr.Add("transactionHash", "is required")
		verr.Add("gateway", "is required")
	}
	return gateway, verr.OrNil()
}

// verify returns the provider transaction id that identifies the payment.
func (s *DonationService) verify(ctx context.Context, gateway payment.Gateway, d domain.Donation) (string, error) {
	if s.payments == nil {
		return "", fmt.Errorf("%w: no payment verifier configured", domain.ErrPaymentNotVerified)
	}
	res, err := s.payments.Verify(ctx, gateway, d.TransactionHash)
	if err != nil {
		if payment.IsInputError(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrPaymentNotVerified, err)
		}
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: %s payment %s is %s", domain.ErrPaymentNotVerified, gateway, d.TransactionHash, res.Status)
	}
	if !res.Settled.IsZero() && (res.Settled.Code() != s.currency || !res.Settled.Covers(d.Amount)) {
		return "", fmt.Errorf("%w: settled %s, donation %s %s", domain.ErrPaymentMismatch, res.Settled, d.Amount, s.currency)
	}
	if res.TransactionID != "" {
		return res.TransactionID, nil
	}
	return d.TransactionHash, nil
}

func (s *DonationService) sendReceipt(ctx context.Context, d domain.Donation) {
	if s.receipts == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
		defer cancel()
		if err := s.receipts.SendReceipt(ctx, d); err != nil {
			s.logger.Warn().Err(err).Str("donation_id", d.ID).Msg("donation receipt not sent")
		}
	})
}
