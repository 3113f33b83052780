package mailer

import (
	"fmt"
	"net/smtp"
)

// SMTP sends plain-text mail over authenticated SMTP. An unconfigured
// host makes every Send fail, which the reset flow degrades into its
// fallback URL instead of surfacing.
type SMTP struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTP creates a mailer.
func NewSMTP(host, port, user, pass, from string) *SMTP {
	return &SMTP{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers one message, single attempt.
func (m *SMTP) Send(to, subject, body string) error {
	if m.host == "" || m.user == "" || m.pass == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := "From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n"

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(msg))
}
