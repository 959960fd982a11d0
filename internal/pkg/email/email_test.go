package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestSendOTPEmail(t *testing.T) {
	rec := &recordingSender{}
	svc := NewEmailService(rec, "Test School", "http://localhost:8080/")

	err := svc.SendOTPEmail(context.Background(), "ana@example.com", "Ana", "123456", PurposeEmailVerification, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	msg := rec.sent[0]
	assert.Equal(t, "ana@example.com", msg.ToEmail)
	assert.Contains(t, msg.Subject, "Verify Your Email")
	assert.Contains(t, msg.HTMLBody, "123456")
	assert.Contains(t, msg.TextBody, "10 minutes")
}

func TestSendOTPEmail_PasswordReset(t *testing.T) {
	rec := &recordingSender{}
	svc := NewEmailService(rec, "", "")

	require.NoError(t, svc.SendOTPEmail(context.Background(), "a@b.co", "A", "999999", PurposePasswordReset, 15*time.Minute))
	assert.Contains(t, rec.sent[0].Subject, "Password Reset")
	assert.Contains(t, rec.sent[0].Subject, "School Portal")
}

func TestSendTemporaryPasswordEmail_PropagatesError(t *testing.T) {
	rec := &recordingSender{err: errors.New("smtp down")}
	svc := NewEmailService(rec, "Test School", "")

	err := svc.SendTemporaryPasswordEmail(context.Background(), "a@b.co", "A", "Secret123")
	assert.EqualError(t, err, "smtp down")
}

func TestSendGridPrepare(t *testing.T) {
	s := NewSendGridSender("key", "School", "noreply@school.test", zerolog.Nop())
	m := s.prepare(Message{ToEmail: "a@b.co", ToName: "A", Subject: "Hi", TextBody: "t", HTMLBody: "<p>h</p>"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "Hi", m.Personalizations[0].Subject)
	assert.Equal(t, "a@b.co", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "noreply@school.test", m.From.Address)
	assert.Len(t, m.Content, 2)
}
