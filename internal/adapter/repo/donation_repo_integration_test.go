//go:build integration

package repo

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"donation-api/internal/domain"
	"donation-api/internal/infra"
)

func TestDonationRepositoryPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("donations"),
		tcpostgres.WithUsername("donor"),
		tcpostgres.WithPassword("secret"),
		tcpostgres.BasicWaitStrategies(),
	)
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}()
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	logger := zerolog.New(io.Discard)
	if err := infra.Migrate(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run must be a no-op.
	if err := infra.Migrate(ctx, dsn, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	conn := infra.NewConnector(func(ctx context.Context) (*pgxpool.Pool, error) {
		return infra.NewDBPool(ctx, dsn)
	}, infra.RetryPolicy{Initial: 100 * time.Millisecond, Attempts: 5}, logger)
	if err := conn.Run(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	store := NewDonationRepository(conn)
	amount := decimal.RequireFromString("1234.5678")
	first, err := store.Create(ctx, domain.Donation{Name: "Ada", Email: "ada@example.org", Amount: amount, TransactionHash: "pi_123", Gateway: "card", Country: "de"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(ctx, domain.Donation{Name: "Grace", Email: "grace@example.org", Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := store.Create(ctx, domain.Donation{Name: "Eve", Email: "eve@example.org", Amount: decimal.NewFromInt(1), TransactionHash: "pi_123", Gateway: "card"}); !errors.Is(err, domain.ErrDuplicatePayment) {
		t.Fatalf("duplicate reference error = %v, want ErrDuplicatePayment", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("unexpected list %+v", list)
	}
	if !list[0].Amount.Equal(amount) {
		t.Fatalf("amount = %s, want %s", list[0].Amount, amount)
	}
	if list[0].Country != "DE" || list[0].Gateway != "card" || list[1].TransactionHash != "" {
		t.Fatalf("optional columns not round-tripped: %+v", list)
	}
}
