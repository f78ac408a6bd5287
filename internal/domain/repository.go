package domain

import "context"

// DonationRepository handles donation persistence.
type DonationRepository interface {
	// Create validates the record, assigns its ID and CreatedAt, and stores it.
	Create(ctx context.Context, donation Donation) (Donation, error)
	// List returns every record in insertion order.
	List(ctx context.Context) ([]Donation, error)
}
