// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

/*
Package mailer delivers transactional email over SMTP.

Only the password-reset flow sends mail today. Delivery is best-effort:
the auth service never fails a reset request because the mail relay is
down — the token still exists and operators can surface it from logs in
development environments.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer is the outbound email contract consumed by the auth service.
type Mailer interface {
	// SendPasswordReset emails a single-use reset link to the recipient.
	SendPasswordReset(ctx context.Context, recipient, resetLink string) error
}

// SMTPMailer implements [Mailer] against a plain SMTP relay with AUTH.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger
}

// NewSMTPMailer constructs an [SMTPMailer].
func NewSMTPMailer(host string, port int, username, password, from string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger,
	}
}

// SendPasswordReset emails a reset link. The message body is deliberately
// plain text; template rendering belongs to the (out-of-process) email
// template system.
func (mailer *SMTPMailer) SendPasswordReset(ctx context.Context, recipient, resetLink string) error {
	subject := "Reset your Pulse password"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Open the link below within one hour to choose a new password:\r\n\r\n%s\r\n\r\n"+
			"If you did not request this, you can safely ignore this email.\r\n",
		resetLink,
	)

	message := strings.Join([]string{
		"From: " + mailer.from,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", mailer.host, mailer.port)
	auth := smtp.PlainAuth("", mailer.username, mailer.password, mailer.host)

	// net/smtp has no context support; run the dial in a goroutine so the
	// caller's deadline is still honored.
	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(addr, auth, mailer.from, []string{recipient}, []byte(message))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mailer: send failed: %w", err)
		}
	}

	mailer.logger.Info("password_reset_email_sent", slog.String("recipient", recipient))
	return nil
}

// NopMailer is the no-op [Mailer] used when SMTP is not configured.
type NopMailer struct {
	logger *slog.Logger
}

// NewNopMailer constructs a [NopMailer].
func NewNopMailer(logger *slog.Logger) *NopMailer {
	return &NopMailer{logger: logger}
}

// SendPasswordReset logs instead of sending. Useful in development where the
// reset link is copied straight from the log output.
func (mailer *NopMailer) SendPasswordReset(ctx context.Context, recipient, resetLink string) error {
	mailer.logger.Info("password_reset_email_skipped",
		slog.String("recipient", recipient),
		slog.String("reset_link", resetLink),
	)
	return nil
}
