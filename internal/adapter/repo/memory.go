package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"donation-api/internal/domain"
)

// DonationRepositoryMemory keeps donations in process memory. It backs tests
// and local development without a database.
type DonationRepositoryMemory struct {
	mu    sync.Mutex
	items []domain.Donation
	refs  map[string]struct{}
	now   func() time.Time
}

func NewMemoryDonationRepository() *DonationRepositoryMemory {
	return &DonationRepositoryMemory{refs: make(map[string]struct{}), now: time.Now}
}

func (r *DonationRepositoryMemory) Create(_ context.Context, donation domain.Donation) (domain.Donation, error) {
	donation.Normalize()
	if err := donation.Validate(); err != nil {
		return domain.Donation{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ref string
	if donation.TransactionHash != "" {
		ref = donation.Gateway + ":" + donation.TransactionHash
		if _, ok := r.refs[ref]; ok {
			return domain.Donation{}, domain.ErrDuplicatePayment
		}
	}
	donation.ID = uuid.NewString()
	donation.CreatedAt = r.now().UTC()
	r.items = append(r.items, donation)
	if ref != "" {
		r.refs[ref] = struct{}{}
	}
	return donation, nil
}

func (r *DonationRepositoryMemory) List(context.Context) ([]domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Donation, len(r.items))
	copy(out, r.items)
	return out, nil
}

var _ domain.DonationRepository = (*DonationRepositoryMemory)(nil)
