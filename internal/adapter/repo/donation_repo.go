package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"donation-api/internal/domain"
	"donation-api/internal/infra"
	"donation-api/internal/sqlinline"
)

const (
	pgUniqueViolation = "23505"
	paymentRefIndex   = "donations_payment_reference_key"
)

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(sql infra.SQLExecutor) *DonationRepositoryPG {
	return &DonationRepositoryPG{sql: sql}
}

// Create inserts a new donation record. Amounts travel as text so NUMERIC keeps every digit.
func (r *DonationRepositoryPG) Create(ctx context.Context, donation domain.Donation) (domain.Donation, error) {
	donation.Normalize()
	if err := donation.Validate(); err != nil {
		return domain.Donation{}, err
	}
	donation.ID = uuid.NewString()

	err := r.sql.QueryRow(ctx, sqlinline.QInsertDonation,
		donation.ID,
		donation.Name,
		donation.Email,
		donation.Amount.String(),
		donation.TransactionHash,
		donation.Gateway,
		donation.Country,
	).Scan(&donation.CreatedAt)
	if err != nil {
		return domain.Donation{}, classify("insert donation", err)
	}
	return donation, nil
}

// List returns every donation ordered by insertion.
func (r *DonationRepositoryPG) List(ctx context.Context) ([]domain.Donation, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListDonations)
	if err != nil {
		return nil, classify("list donations", err)
	}
	defer rows.Close()

	items := make([]domain.Donation, 0)
	for rows.Next() {
		var (
			d      domain.Donation
			amount string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &amount, &d.TransactionHash, &d.Gateway, &d.Country, &d.CreatedAt); err != nil {
			return nil, classify("scan donation", err)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: parse amount %q: %v", domain.ErrPersistence, amount, err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate donations", err)
	}
	return items, nil
}

func classify(op string, err error) error {
	if errors.Is(err, infra.ErrNotReady) {
		return fmt.Errorf("%s: %w", op, domain.ErrStoreUnavailable)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == paymentRefIndex {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicatePayment)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistence, err)
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
