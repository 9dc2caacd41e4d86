package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var _ notification.SMSGateway = (*TwilioGateway)(nil)

// messageCreator is the subset of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioGateway sends text messages through Twilio's Programmable Messaging API.
type TwilioGateway struct {
	api  messageCreator
	from string
}

// NewTwilioGateway creates a new Twilio SMS gateway. from is the sending number in E.164.
func NewTwilioGateway(accountSID, authToken, from string) *TwilioGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioGateway{api: client.Api, from: from}
}

type sendResult struct {
	sid string
	err error
}

// SendSMS delivers a message and returns the Twilio message SID. The Twilio client takes
// no context, so the call is abandoned (not cancelled) when ctx ends first.
func (g *TwilioGateway) SendSMS(ctx context.Context, msg *notification.SMSMessage) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(g.from)
	params.SetBody(msg.Body)

	done := make(chan sendResult, 1)
	go func() {
		resp, err := g.api.CreateMessage(params)
		if err != nil {
			done <- sendResult{err: err}
			return
		}
		if resp.Sid == nil {
			done <- sendResult{}
			return
		}
		done <- sendResult{sid: *resp.Sid}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("twilio send: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", providerError(res.err)
		}
		return res.sid, nil
	}
}

func providerError(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return common.WrapProviderError("twilio", fmt.Sprint(restErr.Code), err)
	}
	return fmt.Errorf("twilio send: %w", err)
}
