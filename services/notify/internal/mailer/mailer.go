package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mailersend/mailersend-go"

	"github.com/diagnosis/venue-bookings/pkg/config"
	"github.com/diagnosis/venue-bookings/pkg/logger"
)

var ErrNoRecipient = errors.New("empty recipient email")

type Email struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, e Email) (string, error)
}

// New picks a sender from config: DevMailer in dev mode, then MailerSend when
// an API key is set, then SMTP when a host is set, else DevMailer.
func New(cfg config.EmailConfig) Sender {
	switch {
	case cfg.DevMode:
		return &DevMailer{}
	case cfg.MailerSendKey != "":
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.FromEmail)
	case cfg.SMTPHost != "":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.FromEmail, cfg.SMTPUser, cfg.SMTPPass)
	default:
		return &DevMailer{}
	}
}

type MailerSend struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	return &MailerSend{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
}

func (m *MailerSend) Send(ctx context.Context, e Email) (string, error) {
	if strings.TrimSpace(e.ToEmail) == "" {
		return "", ErrNoRecipient
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: e.ToName, Email: e.ToEmail}})
	msg.SetSubject(e.Subject)
	if strings.TrimSpace(e.Text) != "" {
		msg.SetText(e.Text)
	}
	if strings.TrimSpace(e.HTML) != "" {
		msg.SetHTML(e.HTML)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("mailersend send: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return res.Header.Get("X-Message-Id"), nil
}

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func (d *DevMailer) Send(ctx context.Context, e Email) (string, error) {
	if strings.TrimSpace(e.ToEmail) == "" {
		return "", ErrNoRecipient
	}
	id := "dev-" + uuid.NewString()
	logger.InfoContext(ctx, "Dev email",
		"message_id", id,
		"to", e.ToEmail,
		"subject", e.Subject,
		"text", e.Text,
	)
	return id, nil
}
