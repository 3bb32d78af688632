// Package mailer sends transactional email through SendGrid.
package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Config holds SendGrid credentials and sender identity.
type Config struct {
	Enabled   bool
	APIKey    string
	FromName  string
	FromEmail string
}

// Mailer delivers notification email. When disabled it logs and drops
// messages so callers never need to special-case local development.
type Mailer struct {
	cfg    Config
	from   *sgmail.Email
	logger *zap.Logger
}

// New constructs a Mailer.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		cfg:    cfg,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// SendReviewDecision notifies an instructor that a course review concluded.
func (m *Mailer) SendReviewDecision(ctx context.Context, email, fullName, courseTitle string, approved bool, comment string) error {
	subject := fmt.Sprintf("Your course %q was approved", courseTitle)
	body := fmt.Sprintf("Hi %s,\n\nGood news: your course %q passed review and is now live in the catalog.\n", fullName, courseTitle)
	if !approved {
		subject = fmt.Sprintf("Your course %q needs changes", courseTitle)
		body = fmt.Sprintf("Hi %s,\n\nYour course %q was reviewed and changes were requested.\n", fullName, courseTitle)
		if comment != "" {
			body += fmt.Sprintf("\nReviewer comment:\n%s\n", comment)
		}
		body += "\nUpdate the course and resubmit it for review.\n"
	}
	return m.send(ctx, email, fullName, subject, body)
}

func (m *Mailer) send(ctx context.Context, email, fullName, subject, body string) error {
	if !m.cfg.Enabled || m.cfg.APIKey == "" {
		m.logger.Info("mail delivery disabled, dropping message",
			zap.String("to", email),
			zap.String("subject", subject))
		return nil
	}

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(fullName, email))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(m.cfg.APIKey, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send mail: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
