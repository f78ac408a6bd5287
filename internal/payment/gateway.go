package payment

import (
	"fmt"
	"strings"
)

// Gateway identifies a payment provider integration.
type Gateway int

const (
	// GatewayCard is the card processor (Stripe payment intents).
	GatewayCard Gateway = iota + 1
	// GatewayPayPal is the wallet/order processor (PayPal orders).
	GatewayPayPal
)

// ParseGateway maps a client supplied name onto a Gateway.
func ParseGateway(name string) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "card", "stripe":
		return GatewayCard, nil
	case "paypal", "wallet":
		return GatewayPayPal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedGateway, name)
}

func (g Gateway) String() string {
	switch g {
	case GatewayCard:
		return "card"
	case GatewayPayPal:
		return "paypal"
	}
	return fmt.Sprintf("gateway(%d)", int(g))
}

// Valid reports whether g is one of the known variants.
func (g Gateway) Valid() bool {
	return g == GatewayCard || g == GatewayPayPal
}

func (g Gateway) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGateway, int(g))
	}
	return []byte(g.String()), nil
}

func (g *Gateway) UnmarshalText(text []byte) error {
	parsed, err := ParseGateway(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
