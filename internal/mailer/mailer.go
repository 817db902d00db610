// Package mailer sends follow-up emails to suppliers over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wedealize/sourcing-engine/internal/config"
)

// Sender delivers one message and returns a provider message ID usable for
// later correlation.
type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error)
}

// SMTPSender sends mail through a plain SMTP relay with STARTTLS.
type SMTPSender struct {
	cfg config.MailerConfig
}

// NewSMTPSender creates a Sender backed by the configured relay.
func NewSMTPSender(cfg config.MailerConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers a multipart/alternative message. The returned message ID is
// generated locally; SMTP gives no delivery receipt to correlate on.
func (s *SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error) {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", eris.Wrapf(err, "mailer: dial %s", addr)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return "", eris.Wrap(err, "mailer: smtp handshake")
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return "", eris.Wrap(err, "mailer: starttls")
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return "", eris.Wrap(err, "mailer: auth")
		}
	}

	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), s.cfg.Host)

	if err := client.Mail(s.cfg.From); err != nil {
		return "", eris.Wrap(err, "mailer: mail from")
	}
	if err := client.Rcpt(to); err != nil {
		return "", eris.Wrapf(err, "mailer: rcpt %s", to)
	}

	w, err := client.Data()
	if err != nil {
		return "", eris.Wrap(err, "mailer: data")
	}
	if _, err := w.Write(buildMessage(s.cfg, to, subject, textBody, htmlBody, messageID)); err != nil {
		w.Close()
		return "", eris.Wrap(err, "mailer: write body")
	}
	if err := w.Close(); err != nil {
		return "", eris.Wrap(err, "mailer: finish body")
	}
	if err := client.Quit(); err != nil {
		return "", eris.Wrap(err, "mailer: quit")
	}

	zap.L().Info("mailer: message sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("message_id", messageID),
	)
	return messageID, nil
}

const altBoundary = "=-sourcing-alt-boundary"

func buildMessage(cfg config.MailerConfig, to, subject, textBody, htmlBody, messageID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", cfg.SenderName), cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(textBody)
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", altBoundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", altBoundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", altBoundary)
	return []byte(b.String())
}
