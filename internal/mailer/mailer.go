// Package mailer sends notification e-mail through an SMTP relay.
// Delivery is best-effort: the queue consumers log failures and move
// on, and nothing on the booking path ever waits for mail.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer holds SMTP relay settings. A Mailer with an empty user is
// disabled and drops messages silently, which keeps local development
// working without a relay account.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// New returns a Mailer for the given relay.
func New(host, port, user, pass, from string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Enabled reports whether the mailer has relay credentials.
func (m *Mailer) Enabled() bool { return m.user != "" }

// Send delivers a single HTML message. Recipients with an empty
// address are skipped.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.Enabled() {
		return nil
	}
	if to == "" {
		return nil
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(msg.String()))
}
