// Package dispatch mails the rendered report over SMTP.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"teater-impact-report/internal/window"
)

const (
	DefaultHost    = "smtp.gmail.com"
	DefaultPort    = 465
	defaultTimeout = 30 * time.Second
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Cc       []string
	// SSL selects implicit TLS; otherwise STARTTLS is required.
	SSL     bool
	Timeout time.Duration
}

// Message is one report email.
type Message struct {
	Subject        string
	HTML           string
	Attachment     []byte
	AttachmentName string
	ContentType    string
}

// Subject is the mail subject for the report covering w.
func Subject(w window.Window) string {
	return "Daily TEATER Usage Report - " + w.ReportDate()
}

type Sender struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, errors.New("dispatch: sender address is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("dispatch: at least one recipient is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, logger: logger.With("component", "dispatch")}, nil
}

// Build assembles the MIME message without sending it.
func (s *Sender) Build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(s.cfg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if len(s.cfg.Cc) > 0 {
		if err := m.Cc(s.cfg.Cc...); err != nil {
			return nil, fmt.Errorf("cc address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if len(msg.Attachment) > 0 {
		var opts []mail.FileOption
		if msg.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(msg.ContentType)))
		}
		if err := m.AttachReader(msg.AttachmentName, bytes.NewReader(msg.Attachment), opts...); err != nil {
			return nil, fmt.Errorf("attach %s: %w", msg.AttachmentName, err)
		}
	}
	return m, nil
}

// Send makes a single delivery attempt.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	m, err := s.Build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send via %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	s.logger.Info("report mailed", "to", strings.Join(s.cfg.To, ","), "cc", len(s.cfg.Cc), "subject", msg.Subject)
	return nil
}
