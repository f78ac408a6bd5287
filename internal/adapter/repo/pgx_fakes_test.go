package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"donation-api/internal/sqlinline"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// donationTable mimics the donations table closely enough for the repository:
// text in, text out, and the partial unique index on payment references.
type donationTable struct {
	rows     [][]any
	refs     map[string]bool
	clock    time.Time
	queryErr error
	execErr  error
}

func newDonationTable() *donationTable {
	return &donationTable{refs: map[string]bool{}, clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (d *donationTable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("exec not expected")
}

func (d *donationTable) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if query != sqlinline.QInsertDonation {
		return simpleRow{scan: func(...any) error { return fmt.Errorf("unexpected query: %s", query) }}
	}
	if d.execErr != nil {
		return simpleRow{scan: func(...any) error { return d.execErr }}
	}
	if len(args) != 7 {
		return simpleRow{scan: func(...any) error { return fmt.Errorf("unexpected args count: %d", len(args)) }}
	}
	return simpleRow{scan: func(dest ...any) error {
		ref, gateway := args[4].(string), args[5].(string)
		if ref != "" {
			key := gateway + ":" + ref
			if d.refs[key] {
				return &pgconn.PgError{Code: "23505", ConstraintName: "donations_payment_reference_key"}
			}
			d.refs[key] = true
		}
		d.clock = d.clock.Add(time.Second)
		d.rows = append(d.rows, []any{args[0], args[1], args[2], args[3], ref, gateway, args[6], d.clock})
		*(dest[0].(*time.Time)) = d.clock
		return nil
	}}
}

func (d *donationTable) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	if query != sqlinline.QListDonations {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	if len(args) != 0 {
		return nil, fmt.Errorf("unexpected args count: %d", len(args))
	}
	return &donationRowsIterator{rows: d.rows}, nil
}

type donationRowsIterator struct {
	testRowsBase
	rows [][]any
	idx  int
}

func (d *donationRowsIterator) Next() bool {
	if d.idx >= len(d.rows) {
		return false
	}
	d.idx++
	return true
}

func (d *donationRowsIterator) Scan(dest ...any) error {
	if d.idx == 0 || d.idx > len(d.rows) {
		return pgx.ErrNoRows
	}
	row := d.rows[d.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("unexpected scan args: %d", len(dest))
	}
	for i, v := range row {
		switch p := dest[i].(type) {
		case *string:
			*p = v.(string)
		case *time.Time:
			*p = v.(time.Time)
		default:
			return fmt.Errorf("unsupported scan target %T", dest[i])
		}
	}
	return nil
}

func (d *donationRowsIterator) Err() error { return nil }

func (d *donationRowsIterator) Close() {}
