package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultSendTimeout bounds a single channel send when none is configured.
const DefaultSendTimeout = 10 * time.Second

// Channels wraps the vendor gateways so that every send yields a ChannelResult.
// Nothing escapes a send: errors, timeouts and panics all become failure results.
// There is no retry; a failed send is final for the invocation.
type Channels struct {
	push     PushGateway
	sms      SMSGateway
	email    EmailGateway
	receipts ReceiptStore
	timeout  time.Duration
}

// NewChannels creates the channel senders. Any gateway may be nil, in which case
// sends on that channel fail with "not configured".
func NewChannels(push PushGateway, sms SMSGateway, email EmailGateway, receipts ReceiptStore, timeout time.Duration) *Channels {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Channels{
		push:     push,
		sms:      sms,
		email:    email,
		receipts: receipts,
		timeout:  timeout,
	}
}

func failure(method Channel, err error) ChannelResult {
	return ChannelResult{Success: false, Method: method, Error: err.Error()}
}

// guard converts a panic inside a gateway into a failure result.
func guard(method Channel, res *ChannelResult) {
	if r := recover(); r != nil {
		slog.Error("channel sender panicked", "channel", method, "panic", r)
		*res = failure(method, fmt.Errorf("sender panic: %v", r))
	}
}

// badge returns the icon badge for a new notification to the user.
func (c *Channels) badge(ctx context.Context, userID string) int {
	if c.receipts == nil || userID == "" {
		return 1
	}
	unread, err := c.receipts.CountUnread(ctx, userID)
	if err != nil {
		slog.Warn("unread count failed, using badge 1", "user_id", userID, "error", err)
		return 1
	}
	return BadgeCount(unread + 1)
}

// SendPush delivers the short-form content to a push destination.
func (c *Channels) SendPush(ctx context.Context, userID string, dest PushDestination, content *Content, data map[string]string) (res ChannelResult) {
	defer guard(ChannelPush, &res)
	if c.push == nil {
		return failure(ChannelPush, errors.New("push channel not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg := &PushMessage{
		Title: content.Title,
		Body:  content.Body,
		Data:  data,
		Badge: c.badge(ctx, userID),
		Sound: "default",
	}

	start := time.Now()
	id, err := c.push.SendPush(ctx, dest, msg)
	if err != nil {
		res = failure(ChannelPush, err)
		res.PruneToken = errors.Is(err, ErrTokenInvalid)
		slog.Warn("push send failed",
			"user_id", userID,
			"kind", dest.Kind,
			"prune_token", res.PruneToken,
			"error", err,
			"duration", time.Since(start),
		)
		return res
	}
	return ChannelResult{Success: true, Method: ChannelPush, MessageID: id}
}

// SendSMS texts title and body to a US number. Numbers that fail validation are
// rejected without calling the gateway.
func (c *Channels) SendSMS(ctx context.Context, phone string, content *Content) (res ChannelResult) {
	defer guard(ChannelSMS, &res)

	to, err := normalizeSMSDestination(phone)
	if err != nil {
		return failure(ChannelSMS, err)
	}
	if c.sms == nil {
		return failure(ChannelSMS, errors.New("sms channel not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.sms.SendSMS(ctx, &SMSMessage{
		To:   to,
		Body: content.Title + ": " + content.Body,
	})
	if err != nil {
		slog.Warn("sms send failed", "error", err)
		return failure(ChannelSMS, err)
	}
	return ChannelResult{Success: true, Method: ChannelSMS, MessageID: id}
}

// SendEmail delivers the long-form content. replyTo may be empty.
func (c *Channels) SendEmail(ctx context.Context, to, toName, replyTo string, content *Content) (res ChannelResult) {
	defer guard(ChannelEmail, &res)
	if c.email == nil {
		return failure(ChannelEmail, errors.New("email channel not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.email.SendEmail(ctx, &EmailMessage{
		To:      to,
		ToName:  toName,
		ReplyTo: replyTo,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
	})
	if err != nil {
		slog.Warn("email send failed", "to", to, "error", err)
		return failure(ChannelEmail, err)
	}
	return ChannelResult{Success: true, Method: ChannelEmail, MessageID: id}
}
