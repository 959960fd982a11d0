package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them.
// Used in development when no provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Warn().
		Str("toEmail", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("Email provider not configured - message logged instead of sent")
	return nil
}
