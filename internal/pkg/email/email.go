package email

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Purpose labels used in outgoing one-time password e-mails
const (
	PurposeEmailVerification = "EMAIL_VERIFICATION"
	PurposePasswordReset     = "PASSWORD_RESET"
)

// Message is a single outgoing e-mail
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a message through a concrete provider
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendOTPEmail(ctx context.Context, toEmail, toName, code, purpose string, ttl time.Duration) error
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
	SendTemporaryPasswordEmail(ctx context.Context, toEmail, toName, password string) error
}

// EmailServiceImpl renders school portal messages and hands them to a Sender
type EmailServiceImpl struct {
	sender  Sender
	appName string
	baseURL string
}

// NewEmailService creates a new EmailService
func NewEmailService(sender Sender, appName, baseURL string) EmailService {
	if appName == "" {
		appName = "School Portal"
	}
	return &EmailServiceImpl{
		sender:  sender,
		appName: appName,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SendOTPEmail sends a one-time code for verification or password reset
func (s *EmailServiceImpl) SendOTPEmail(ctx context.Context, toEmail, toName, code, purpose string, ttl time.Duration) error {
	var subject, intro string
	switch purpose {
	case PurposePasswordReset:
		subject = fmt.Sprintf("Password Reset Code - %s", s.appName)
		intro = "We received a request to reset your password. Use the code below to choose a new one."
	default:
		subject = fmt.Sprintf("Verify Your Email Address - %s", s.appName)
		intro = "Thank you for registering. Use the code below to verify your email address."
	}
	minutes := int(ttl.Minutes())

	html := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">%s</h2>
				<p>Hello %s,</p>
				<p>%s</p>
				<div style="text-align: center; margin: 30px 0; font-size: 28px; letter-spacing: 6px;">
					<strong>%s</strong>
				</div>
				<p>This code will expire in %d minutes.</p>
				<p>If you did not request this, please ignore this email.</p>
				<p>Best regards,<br>The %s Team</p>
			</div>
		</body>
		</html>
	`, s.appName, toName, intro, code, minutes, s.appName)
	text := fmt.Sprintf("Hello %s,\n\n%s\n\nCode: %s\n\nThis code will expire in %d minutes.\n", toName, intro, code, minutes)

	return s.sender.Send(ctx, Message{
		ToEmail:  toEmail,
		ToName:   toName,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	})
}

// SendWelcomeEmail sends a welcome email to a newly verified user
func (s *EmailServiceImpl) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	subject := fmt.Sprintf("Welcome to %s - Your Account is Active", s.appName)
	html := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Welcome to %s!</h2>
				<p>Hello %s,</p>
				<p>Your email has been verified. You can now sign in at <a href="%s">%s</a> and submit your application.</p>
				<p>Best regards,<br>The %s Team</p>
			</div>
		</body>
		</html>
	`, s.appName, toName, s.baseURL, s.baseURL, s.appName)
	text := fmt.Sprintf("Hello %s,\n\nYour email has been verified. You can now sign in at %s.\n", toName, s.baseURL)

	return s.sender.Send(ctx, Message{
		ToEmail:  toEmail,
		ToName:   toName,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	})
}

// SendTemporaryPasswordEmail delivers an administrator-issued password
func (s *EmailServiceImpl) SendTemporaryPasswordEmail(ctx context.Context, toEmail, toName, password string) error {
	subject := fmt.Sprintf("Your Temporary Password - %s", s.appName)
	html := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<p>Hello %s,</p>
				<p>An administrator has reset your password. Your temporary password is:</p>
				<p style="font-size: 20px;"><strong>%s</strong></p>
				<p>Please sign in and change it right away.</p>
				<p>Best regards,<br>The %s Team</p>
			</div>
		</body>
		</html>
	`, toName, password, s.appName)
	text := fmt.Sprintf("Hello %s,\n\nAn administrator has reset your password.\nTemporary password: %s\n\nPlease sign in and change it right away.\n", toName, password)

	return s.sender.Send(ctx, Message{
		ToEmail:  toEmail,
		ToName:   toName,
		Subject:  subject,
		HTMLBody: html,
		TextBody: text,
	})
}
