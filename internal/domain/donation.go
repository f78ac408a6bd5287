package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Donation represents a supporter contribution record. Records are written
// once and never updated.
type Donation struct {
	ID              string
	Name            string
	Email           string
	Amount          decimal.Decimal
	TransactionHash string
	Gateway         string
	Country         string
	CreatedAt       time.Time
}

// Normalize trims the free-text fields in place.
func (d *Donation) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.TransactionHash = strings.TrimSpace(d.TransactionHash)
	d.Gateway = strings.ToLower(strings.TrimSpace(d.Gateway))
	d.Country = strings.ToUpper(strings.TrimSpace(d.Country))
}

// Validate reports every missing or malformed field at once.
func (d Donation) Validate() error {
	var verr ValidationError
	if strings.TrimSpace(d.Name) == "" {
		verr.Add("name", "is required")
	}
	switch email := strings.TrimSpace(d.Email); {
	case email == "":
		verr.Add("email", "is required")
	case !emailRegex.MatchString(email):
		verr.Add("email", "is not a valid email address")
	}
	if !d.Amount.IsPositive() {
		verr.Add("amount", "must be a number greater than 0 and at most 99999999.99")
	}
	if d.TransactionHash != "" && d.Gateway == "" {
		verr.Add("gateway", "is required with a transaction reference")
	}
	return verr.OrNil()
}
