// Package mail sends transactional email through SendGrid. Delivery is
// best-effort everywhere it is used: fulfillment logs failures and moves on.
package mail

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type sendgridMailer struct {
	apiKey   string
	from     string
	fromName string
	logger   *log.Logger
}

func NewSendgrid(apiKey, from, fromName string, logger *log.Logger) Mailer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &sendgridMailer{apiKey: apiKey, from: from, fromName: fromName, logger: logger}
}

func (m *sendgridMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.apiKey == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient address empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		subject,
		sgmail.NewEmail("", to),
		"",
		html,
	)

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		m.logger.Printf("mail: send to=%s status=%d body=%s", to, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid status %d", resp.StatusCode)
	}
	m.logger.Printf("mail: sent to=%s subject=%q status=%d", to, subject, resp.StatusCode)
	return nil
}
