// Package email implements the outbound mailer contract. Delivery is
// asynchronous and best-effort: auth flows never wait on, or learn about,
// a failed send.
package email

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Sender performs the actual delivery of a single message.
type Sender interface {
	Send(to, subject, body string) error
}

// AsyncMailer satisfies ports.Mailer by handing each message to a goroutine
// and logging failures.
type AsyncMailer struct {
	sender  Sender
	baseURL string
	log     zerolog.Logger
}

func NewAsyncMailer(sender Sender, baseURL string, log zerolog.Logger) *AsyncMailer {
	return &AsyncMailer{sender: sender, baseURL: baseURL, log: log}
}

func (m *AsyncMailer) SendMagicLink(email, token, tenantID string) {
	m.dispatch(email, "Your sign-in link",
		fmt.Sprintf("Sign in: %s/magic-link?token=%s", m.baseURL, token))
}

func (m *AsyncMailer) SendPasswordReset(email, token, tenantID string) {
	m.dispatch(email, "Reset your password",
		fmt.Sprintf("Reset your password: %s/reset-password?token=%s", m.baseURL, token))
}

func (m *AsyncMailer) SendVerification(email, token, tenantID string) {
	m.dispatch(email, "Verify your email",
		fmt.Sprintf("Verify your email: %s/verify-email?token=%s", m.baseURL, token))
}

func (m *AsyncMailer) dispatch(to, subject, body string) {
	go func() {
		if err := m.sender.Send(to, subject, body); err != nil {
			m.log.Error().Err(err).Str("subject", subject).Msg("email delivery failed")
		}
	}()
}

// LogSender is the development Sender: it logs the message instead of
// delivering it. Swap in an SMTP or provider-backed Sender in production.
type LogSender struct {
	Log zerolog.Logger
}

func (s LogSender) Send(to, subject, body string) error {
	s.Log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("outbound email (log sender)")
	return nil
}
