package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers messages through the SendGrid v3 API
type SendGridSender struct {
	key    string
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridSender creates a SendGrid sender
func NewSendGridSender(apiKey, fromName, fromEmail string, logger zerolog.Logger) *SendGridSender {
	return &SendGridSender{
		key:    apiKey,
		from:   sgmail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextBody),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)
	return m
}

// Send implements Sender
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("to", msg.ToEmail).Msg("SendGrid request failed")
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("SendGrid rejected message")
		return fmt.Errorf("failed to send email: sendgrid status %d", res.StatusCode)
	}
	return nil
}
