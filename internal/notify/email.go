package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/logger"
)

// SMTPSink mails notifications that carry a recipient. The desk copy goes to
// the configured address.
type SMTPSink struct {
	host     string
	port     int
	username string
	password string
	from     string
	desk     string
}

func NewSMTPSink(host string, port int, username, password, from, desk string) *SMTPSink {
	return &SMTPSink{host: host, port: port, username: username, password: password, from: from, desk: desk}
}

func (s *SMTPSink) Name() string { return "smtp" }

func (s *SMTPSink) Notify(ctx context.Context, n domain.Notification) error {
	to := recipients(n, s.desk)
	if len(to) == 0 {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/plain", n.Message)

	logger.ExternalServiceCall("smtp", "send", "type", n.Type)
	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	err := d.DialAndSend(m)
	logger.ExternalServiceResult("smtp", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

// SendGridSink sends the same mail through the SendGrid API.
type SendGridSink struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	desk      string
}

func NewSendGridSink(apiKey, fromEmail, fromName, desk string) *SendGridSink {
	return &SendGridSink{client: sendgrid.NewSendClient(apiKey), fromEmail: fromEmail, fromName: fromName, desk: desk}
}

func (s *SendGridSink) Name() string { return "sendgrid" }

func (s *SendGridSink) Notify(ctx context.Context, n domain.Notification) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	for _, to := range recipients(n, s.desk) {
		message := mail.NewSingleEmail(from, n.Title, mail.NewEmail("", to), n.Message, "")
		logger.ExternalServiceCall("sendgrid", "send", "type", n.Type)
		response, err := s.client.SendWithContext(ctx, message)
		logger.ExternalServiceResult("sendgrid", "send", err)
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		if response.StatusCode >= 400 {
			return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		}
	}
	return nil
}

func recipients(n domain.Notification, desk string) []string {
	var to []string
	if n.Recipient != "" {
		to = append(to, n.Recipient)
	}
	if desk != "" && desk != n.Recipient {
		to = append(to, desk)
	}
	return to
}
