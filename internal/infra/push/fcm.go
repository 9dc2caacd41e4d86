package push

import (
	"context"
	"fmt"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"firebase.google.com/go/v4/messaging"
)

// fcmSender is the subset of the Firebase messaging client used here.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM sends to native device tokens through Firebase Cloud Messaging.
type FCM struct {
	client fcmSender
}

// NewFCM creates a new FCM sender from a Firebase messaging client.
func NewFCM(client *messaging.Client) *FCM {
	return &FCM{client: client}
}

func (f *FCM) buildMessage(token string, msg *notification.PushMessage) *messaging.Message {
	badge := msg.Badge
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     msg.Sound,
				ChannelID: androidChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge: &badge,
					Sound: msg.Sound,
				},
			},
		},
	}
}

// Send delivers one message. An unregistered or malformed token is reported as
// notification.ErrTokenInvalid.
func (f *FCM) Send(ctx context.Context, token string, msg *notification.PushMessage) (string, error) {
	id, err := f.client.Send(ctx, f.buildMessage(token, msg))
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return "", common.WrapProviderError("fcm", "token-invalid", fmt.Errorf("%w: %v", notification.ErrTokenInvalid, err))
		}
		return "", common.WrapProviderError("fcm", "", err)
	}
	return id, nil
}
