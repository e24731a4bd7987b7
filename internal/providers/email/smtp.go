package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/smallbiznis/stagevote/internal/config"
)

type smtpProvider struct {
	addr string
	auth smtp.Auth
	from string
	log  *zap.Logger
}

// NewSMTP builds a provider backed by plain SMTP with optional auth.
func NewSMTP(cfg config.EmailConfig, log *zap.Logger) Provider {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &smtpProvider{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.SMTPFrom,
		log:  log.Named("email.smtp"),
	}
}

func (p *smtpProvider) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", p.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(p.addr, p.auth, p.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type noopProvider struct {
	log *zap.Logger
}

// NewNoop logs instead of sending. Used when no SMTP host is configured.
func NewNoop(log *zap.Logger) Provider {
	return &noopProvider{log: log.Named("email.noop")}
}

func (p *noopProvider) Send(_ context.Context, msg Message) error {
	p.log.Info("email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
