package payment

import (
	"context"
	"encoding/json"
)

// SessionStatus tracks a single checkout attempt.
type SessionStatus string

const (
	SessionInitiated SessionStatus = "initiated"
	SessionFinalized SessionStatus = "finalized"
	SessionFailed    SessionStatus = "failed"
)

// Session is the transient state of one checkout attempt. It is handed back to
// the caller, who threads Token/Reference into the following calls; nothing is
// kept server side.
type Session struct {
	Gateway   Gateway
	Money     Money
	Token     string // client secret (card) or order id (PayPal)
	Reference string // payment intent id (card) or order id (PayPal)
	Status    SessionStatus
}

// Result is a provider's answer to a finalize or lookup call.
type Result struct {
	Gateway       Gateway
	TransactionID string
	Success       bool
	Status        string // provider status, e.g. "succeeded" or "COMPLETED"
	Settled       Money  // zero when the provider did not report an amount
	Payload       json.RawMessage
}

// SessionStatus maps the result onto the checkout lifecycle.
func (r Result) SessionStatus() SessionStatus {
	if r.Success {
		return SessionFinalized
	}
	return SessionFailed
}

// Adapter normalizes one provider onto "get a token for the client" plus
// "finalize or inspect server side".
type Adapter interface {
	Initiate(ctx context.Context, money Money) (Session, error)
	Finalize(ctx context.Context, reference string) (Result, error)
	Lookup(ctx context.Context, reference string) (Result, error)
}
