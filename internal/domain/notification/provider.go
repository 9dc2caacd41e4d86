package notification

import (
	"context"
	"errors"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ErrTokenInvalid is returned by a PushGateway when the destination token is
// unregistered or malformed and should be removed from the user.
var ErrTokenInvalid = errors.New("push token invalid or unregistered")

// PushMessage is the rendered short-form content for a push delivery.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
	Badge int
	Sound string
}

// SMSMessage is a single text message. To must already be E.164.
type SMSMessage struct {
	To   string
	Body string
}

// EmailMessage is the rendered long-form content for an email delivery.
type EmailMessage struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// PushGateway delivers to one push destination and returns the vendor message ID.
// Implementations live in infra/push/.
type PushGateway interface {
	SendPush(ctx context.Context, dest PushDestination, msg *PushMessage) (string, error)
}

// SMSGateway delivers a text message and returns the provider message ID.
// Implementations live in infra/sms/.
type SMSGateway interface {
	SendSMS(ctx context.Context, msg *SMSMessage) (string, error)
}

// EmailGateway delivers an email and returns the provider message ID.
// Implementations live in infra/email/.
type EmailGateway interface {
	SendEmail(ctx context.Context, msg *EmailMessage) (string, error)
}

// TemplateRenderer renders the long-form HTML body for an email.
// Implementations live in infra/template/.
type TemplateRenderer interface {
	RenderEmail(view *EmailView) (string, error)
}
