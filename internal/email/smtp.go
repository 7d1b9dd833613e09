package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/orderdesk/orderdesk-api/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail over SMTP via gomail. Each Send opens its own
// connection; volume is low enough that pooling is not worth the state.
type SMTPSender struct {
	config SMTPConfig
	dialer *gomail.Dialer
	log    *logger.Logger
}

func NewSMTPSender(config SMTPConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		log:    log,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	s.log.Debug("mail sent", "to", to, "subject", subject)
	return nil
}
