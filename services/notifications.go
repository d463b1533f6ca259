package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type Notification struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SendgridNotifier delivers notifications as email.
type SendgridNotifier struct {
	client     *sendgrid.Client
	senderMail string
	senderName string
	logger     *zap.Logger
}

func NewSendgridNotifier(apiKey, senderMail, senderName string, logger *zap.Logger) *SendgridNotifier {
	return &SendgridNotifier{
		client:     sendgrid.NewSendClient(apiKey),
		senderMail: senderMail,
		senderName: senderName,
		logger:     logger,
	}
}

func (s *SendgridNotifier) Notify(ctx context.Context, n Notification) error {
	if n.ToEmail == "" {
		return nil
	}
	from := mail.NewEmail(s.senderName, s.senderMail)
	to := mail.NewEmail(n.ToName, n.ToEmail)
	html := n.HTML
	if html == "" {
		html = "<p>" + n.Text + "</p>"
	}
	message := mail.NewSingleEmail(from, n.Subject, to, n.Text, html)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return errors.Wrap(err, "send email")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("send email: status %d", resp.StatusCode)
	}
	s.logger.Info("email sent", zap.String("subject", n.Subject), zap.Int("status", resp.StatusCode))
	return nil
}

// LogNotifier only logs. Used when no sendgrid key is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Logger.Info("notification", zap.String("to", n.ToName), zap.String("subject", n.Subject))
	return nil
}
