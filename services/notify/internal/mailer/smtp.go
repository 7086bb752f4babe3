package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SMTPMailer delivers plain-text mail over SMTP. With no user it sends
// unauthenticated, which is what Mailpit on :1025 expects.
type SMTPMailer struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host string, port int, from, user, pass string) *SMTPMailer {
	host = strings.TrimSpace(host)
	m := &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		from: strings.TrimSpace(from),
	}
	if user = strings.TrimSpace(user); user != "" {
		m.auth = smtp.PlainAuth("", user, strings.TrimSpace(pass), host)
	}
	return m
}

func (s *SMTPMailer) Send(ctx context.Context, e Email) (string, error) {
	to := strings.TrimSpace(e.ToEmail)
	if to == "" {
		return "", ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, s.message(id, e)); err != nil {
		return "", fmt.Errorf("smtp send to %s: %w", s.addr, err)
	}
	return id, nil
}

func (s *SMTPMailer) message(id string, e Email) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.TrimSpace(e.ToEmail))
	fmt.Fprintf(&buf, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", id, s.host)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(e.Text, "\n", "\r\n"))
	buf.WriteString("\r\n")
	return buf.Bytes()
}
