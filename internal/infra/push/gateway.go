// Package push delivers push notifications to FCM device tokens and Expo push tokens.
package push

import (
	"context"
	"fmt"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"
)

var _ notification.PushGateway = (*Gateway)(nil)

// androidChannelID is the notification channel the mobile app registers for order updates.
const androidChannelID = "orders"

// Gateway routes each destination to the vendor its token belongs to.
// Either sender may be nil when that vendor is not configured.
type Gateway struct {
	fcm  *FCM
	expo *Expo
}

// NewGateway creates a new push gateway.
func NewGateway(fcm *FCM, expo *Expo) *Gateway {
	return &Gateway{fcm: fcm, expo: expo}
}

// SendPush delivers msg to dest.
func (g *Gateway) SendPush(ctx context.Context, dest notification.PushDestination, msg *notification.PushMessage) (string, error) {
	switch dest.Kind {
	case notification.PushFCM:
		if g.fcm == nil {
			return "", fmt.Errorf("fcm push not configured")
		}
		return g.fcm.Send(ctx, dest.Token, msg)
	case notification.PushExpo:
		if g.expo == nil {
			return "", fmt.Errorf("expo push not configured")
		}
		return g.expo.Send(dest.Token, msg)
	default:
		return "", fmt.Errorf("unknown push destination kind %v", dest.Kind)
	}
}
