package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readyContent = &Content{
	Title:   "Order ready for pickup!",
	Body:    "Your order #abcd1234 is ready at Taco Loco.",
	Subject: "Order ready for pickup!",
	HTML:    "<p>ready</p>",
	Text:    "ready",
}

func TestSendPushBadge(t *testing.T) {
	receipts := &memReceipts{}
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, receipts.Add(ctx, &Receipt{RecipientUserID: "u1"}))
	}
	push := &fakePush{}
	c := NewChannels(push, nil, nil, receipts, time.Second)

	dest := PushDestination{Kind: PushFCM, Token: "tok"}
	res := c.SendPush(ctx, "u1", dest, readyContent, map[string]string{"type": "order_ready"})

	assert.True(t, res.Success)
	assert.Equal(t, ChannelPush, res.Method)
	assert.Equal(t, "push-1", res.MessageID)
	require.Len(t, push.calls, 1)
	assert.Equal(t, 5, push.calls[0].msg.Badge)
	assert.Equal(t, "default", push.calls[0].msg.Sound)
	assert.Equal(t, "order_ready", push.calls[0].msg.Data["type"])
}

func TestSendPushBadgeFallsBackToOne(t *testing.T) {
	push := &fakePush{}
	c := NewChannels(push, nil, nil, &memReceipts{countErr: errBoom}, time.Second)

	res := c.SendPush(context.Background(), "u1", PushDestination{Kind: PushExpo, Token: "tok"}, readyContent, nil)
	assert.True(t, res.Success)
	assert.Equal(t, 1, push.calls[0].msg.Badge)
}

func TestSendPushInvalidToken(t *testing.T) {
	push := &fakePush{err: fmt.Errorf("expo: %w", ErrTokenInvalid)}
	c := NewChannels(push, nil, nil, nil, time.Second)

	res := c.SendPush(context.Background(), "u1", PushDestination{Kind: PushExpo, Token: "tok"}, readyContent, nil)
	assert.False(t, res.Success)
	assert.True(t, res.PruneToken)
	assert.Contains(t, res.Error, "invalid")

	push.err = errBoom
	res = c.SendPush(context.Background(), "u1", PushDestination{Kind: PushExpo, Token: "tok"}, readyContent, nil)
	assert.False(t, res.Success)
	assert.False(t, res.PruneToken)
}

func TestSendPushNeverEscapes(t *testing.T) {
	t.Run("panic", func(t *testing.T) {
		c := NewChannels(&fakePush{panics: true}, nil, nil, nil, time.Second)
		res := c.SendPush(context.Background(), "u1", PushDestination{Kind: PushFCM, Token: "tok"}, readyContent, nil)
		assert.False(t, res.Success)
		assert.Equal(t, ChannelPush, res.Method)
		assert.Contains(t, res.Error, "panic")
	})

	t.Run("timeout", func(t *testing.T) {
		c := NewChannels(&fakePush{block: true}, nil, nil, nil, 20*time.Millisecond)
		res := c.SendPush(context.Background(), "u1", PushDestination{Kind: PushFCM, Token: "tok"}, readyContent, nil)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "deadline")
	})

	t.Run("not configured", func(t *testing.T) {
		c := NewChannels(nil, nil, nil, nil, 0)
		res := c.SendPush(context.Background(), "u1", PushDestination{Kind: PushFCM, Token: "tok"}, readyContent, nil)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not configured")
	})
}

func TestSendSMS(t *testing.T) {
	sms := &fakeSMS{}
	c := NewChannels(nil, sms, nil, nil, time.Second)

	res := c.SendSMS(context.Background(), "(555) 234-5678", readyContent)
	assert.True(t, res.Success)
	assert.Equal(t, "SM1", res.MessageID)
	require.Len(t, sms.calls, 1)
	assert.Equal(t, "+15552345678", sms.calls[0].To)
	assert.Equal(t, "Order ready for pickup!: Your order #abcd1234 is ready at Taco Loco.", sms.calls[0].Body)
}

func TestSendSMSRejectsInvalidNumber(t *testing.T) {
	sms := &fakeSMS{}
	c := NewChannels(nil, sms, nil, nil, time.Second)

	res := c.SendSMS(context.Background(), "555-034-5678", readyContent)
	assert.False(t, res.Success)
	assert.Equal(t, ChannelSMS, res.Method)
	assert.Zero(t, sms.count())
}

func TestSendSMSProviderError(t *testing.T) {
	c := NewChannels(nil, &fakeSMS{err: errBoom}, nil, nil, time.Second)

	res := c.SendSMS(context.Background(), "555-234-5678", readyContent)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
}

func TestSendEmail(t *testing.T) {
	email := &fakeEmail{}
	c := NewChannels(nil, nil, email, nil, time.Second)

	res := c.SendEmail(context.Background(), "owner@example.com", "Luis", "maria@example.com", readyContent)
	assert.True(t, res.Success)
	assert.Equal(t, ChannelEmail, res.Method)
	assert.Equal(t, "email-1", res.MessageID)

	require.Len(t, email.calls, 1)
	m := email.calls[0]
	assert.Equal(t, "owner@example.com", m.To)
	assert.Equal(t, "Luis", m.ToName)
	assert.Equal(t, "maria@example.com", m.ReplyTo)
	assert.Equal(t, readyContent.Subject, m.Subject)
	assert.Equal(t, readyContent.HTML, m.HTML)
	assert.Equal(t, readyContent.Text, m.Text)

	email.err = errBoom
	res = c.SendEmail(context.Background(), "owner@example.com", "", "", readyContent)
	assert.False(t, res.Success)
}
