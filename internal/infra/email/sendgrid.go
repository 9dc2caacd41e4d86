package email

import (
	"context"
	"fmt"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var _ notification.EmailGateway = (*SendGridGateway)(nil)

// mailClient is the subset of the SendGrid client used here.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridGateway sends emails through the SendGrid v3 mail API.
type SendGridGateway struct {
	client mailClient
	from   Sender
}

// NewSendGridGateway creates a new SendGrid email gateway.
func NewSendGridGateway(apiKey string, from Sender) *SendGridGateway {
	return &SendGridGateway{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
	}
}

// buildMessage assembles the v3 payload. Link and open tracking are off so order
// links reach the customer unrewritten.
func (g *SendGridGateway) buildMessage(msg *notification.EmailMessage) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(g.from.Name, g.from.Address))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)

	// text/plain must precede text/html
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	m.AddContent(mail.NewContent("text/html", msg.HTML))

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	tracking := mail.NewTrackingSettings()
	tracking.SetClickTracking(mail.NewClickTrackingSetting().SetEnable(false).SetEnableText(false))
	tracking.SetOpenTracking(mail.NewOpenTrackingSetting().SetEnable(false))
	m.SetTrackingSettings(tracking)

	return m
}

// SendEmail delivers an email and returns the SendGrid message ID.
func (g *SendGridGateway) SendEmail(ctx context.Context, msg *notification.EmailMessage) (string, error) {
	resp, err := g.client.SendWithContext(ctx, g.buildMessage(msg))
	if err != nil {
		return "", fmt.Errorf("sendgrid request: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", common.NewProviderError("sendgrid", fmt.Sprint(resp.StatusCode), truncate(resp.Body, 200))
	}

	return firstHeader(resp.Headers, "X-Message-Id"), nil
}

func firstHeader(headers map[string][]string, name string) string {
	if v := headers[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
