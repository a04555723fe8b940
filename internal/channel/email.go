package channel

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"
)

// smtpTimeout bounds one delivery when the caller sets no deadline.
const smtpTimeout = 30 * time.Second

// SMTPConfig holds the SMTP server settings for outbound mail.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	TLS      bool
}

// EmailSender delivers messages as plain-text email.
type EmailSender struct {
	cfg     SMTPConfig
	subject string

	// send transmits a composed message; replaced in tests.
	send func(ctx context.Context, cfg SMTPConfig, from, to string, body []byte) error
}

// NewEmailSender creates an EmailSender. Subject is used for every message.
func NewEmailSender(cfg SMTPConfig, subject string) *EmailSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailSender{cfg: cfg, subject: subject, send: sendSMTP}
}

// Send composes and sends a message to address. It implements Sender.
func (s *EmailSender) Send(ctx context.Context, address, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := composeEmail(s.cfg.From, address, s.subject, text, time.Now())
	if err != nil {
		return err
	}
	from, err := mail.ParseAddress(s.cfg.From)
	if err != nil {
		return fmt.Errorf("parsing sender %q: %w", s.cfg.From, err)
	}
	to, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parsing recipient %q: %w", address, err)
	}
	return s.send(ctx, s.cfg, from.Address, to.Address, body)
}

// composeEmail renders a single-part text/plain message.
func composeEmail(from, to, subject, text string, date time.Time) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("parsing sender %q: %w", from, err)
	}
	toAddr, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", to, err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{fromAddr})
	h.SetAddressList("To", []*mail.Address{toAddr})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "UTF-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}

// sendSMTP delivers one message. With cfg.TLS the connection is TLS from
// the start; otherwise STARTTLS is used when the server offers it. Login is
// skipped when no username is configured.
func sendSMTP(ctx context.Context, cfg SMTPConfig, from, to string, body []byte) error {
	conn, err := dialSMTP(ctx, cfg)
	if err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("setting SMTP deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("greeting from %s: %w", cfg.Host, err)
	}
	defer client.Close()

	if !cfg.TLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("SMTP STARTTLS: %w", err)
			}
		}
	}
	if cfg.Username != "" {
		// PlainAuth refuses to send the password over plaintext to a remote host.
		if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("SMTP auth as %s: %w", cfg.Username, err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM %s: %w", from, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing message to %s: %w", to, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing message to %s: %w", to, err)
	}
	return client.Quit()
}

func dialSMTP(ctx context.Context, cfg SMTPConfig) (net.Conn, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	d := &net.Dialer{Timeout: smtpTimeout}

	var conn net.Conn
	var err error
	if cfg.TLS {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dialing SMTP %s: %w", addr, err)
	}
	return conn, nil
}
