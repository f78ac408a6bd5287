package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"donation-api/internal/domain"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// ReceiptMailer emails a thank-you receipt to the donor.
type ReceiptMailer struct {
	addr string
	auth smtp.Auth
	from string
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewReceiptMailer(cfg SMTPConfig) *ReceiptMailer {
	return &ReceiptMailer{
		addr: net.JoinHostPort(cfg.Host, cfg.Port),
		auth: smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host),
		from: cfg.From,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

// SendReceipt mails the receipt. The context only gates the start of the
// send; net/smtp has no cancellation.
func (m *ReceiptMailer) SendReceipt(ctx context.Context, d domain.Donation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := BuildReceipt(m.from, d)
	if err := m.send(e, m.addr, m.auth); err != nil {
		return fmt.Errorf("send receipt to %s: %w", d.Email, err)
	}
	return nil
}

// BuildReceipt renders the receipt message for a stored donation.
func BuildReceipt(from string, d domain.Donation) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{d.Email}
	e.Subject = "Thank you for your donation"

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", d.Name)
	fmt.Fprintf(&body, "We received your donation of %s.\n\n", d.Amount.StringFixed(2))
	fmt.Fprintf(&body, "Donation ID: %s\n", d.ID)
	if d.TransactionHash != "" {
		fmt.Fprintf(&body, "Payment reference: %s (%s)\n", d.TransactionHash, d.Gateway)
	}
	fmt.Fprintf(&body, "Date: %s\n\nThank you for your support.\n", d.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	e.Text = []byte(body.String())
	return e
}
