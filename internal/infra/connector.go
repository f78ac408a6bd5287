package infra

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotReady is returned by the Connector while no database connection exists yet.
var ErrNotReady = errors.New("database not ready")

// ConnectFunc opens a ready-to-use pool.
type ConnectFunc func(ctx context.Context) (*pgxpool.Pool, error)

// RetryPolicy governs reconnect attempts. Attempts <= 0 retries until the context ends.
type RetryPolicy struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

// Next returns the delay that follows prev: double it, capped at Max.
func (p RetryPolicy) Next(prev time.Duration) time.Duration {
	if prev <= 0 {
		return p.Initial
	}
	next := prev * 2
	if p.Max > 0 && next > p.Max {
		return p.Max
	}
	return next
}

// Connector owns the database connection lifecycle. Until Run succeeds it
// serves ErrNotReady so the HTTP layer can answer instead of blocking.
type Connector struct {
	connect ConnectFunc
	policy  RetryPolicy
	logger  Logger
	runner  atomic.Pointer[SQLRunner]
	wait    func(ctx context.Context, d time.Duration) error
}

func NewConnector(connect ConnectFunc, policy RetryPolicy, logger Logger) *Connector {
	return &Connector{connect: connect, policy: policy, logger: logger, wait: sleepContext}
}

// Run keeps trying to connect with exponential backoff. It returns nil once
// connected, ctx.Err() when cancelled, or the last error when attempts run out.
func (c *Connector) Run(ctx context.Context) error {
	var delay time.Duration
	for attempt := 1; ; attempt++ {
		pool, err := c.connect(ctx)
		if err == nil {
			c.runner.Store(NewSQLRunner(pool, c.logger))
			c.logger.Info().Int("attempt", attempt).Msg("database connected")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.policy.Attempts > 0 && attempt >= c.policy.Attempts {
			c.logger.Error().Err(err).Int("attempt", attempt).Msg("database connect failed, giving up")
			return fmt.Errorf("connect database after %d attempts: %w", attempt, err)
		}
		delay = c.policy.Next(delay)
		c.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("database connect failed")
		if err := c.wait(ctx, delay); err != nil {
			return err
		}
	}
}

// Ready reports whether a connection pool is available.
func (c *Connector) Ready() bool {
	return c.runner.Load() != nil
}

// Close releases the pool, if any.
func (c *Connector) Close() {
	if r := c.runner.Load(); r != nil && r.Pool != nil {
		r.Pool.Close()
	}
}

func (c *Connector) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	r := c.runner.Load()
	if r == nil {
		return pgconn.CommandTag{}, ErrNotReady
	}
	return r.Exec(ctx, query, args...)
}

func (c *Connector) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	r := c.runner.Load()
	if r == nil {
		return errorRow{err: ErrNotReady}
	}
	return r.QueryRow(ctx, query, args...)
}

func (c *Connector) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	r := c.runner.Load()
	if r == nil {
		return nil, ErrNotReady
	}
	return r.Query(ctx, query, args...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ SQLExecutor = (*Connector)(nil)
