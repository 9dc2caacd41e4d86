package push

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// expoPublisher is the subset of the Expo push client used here.
type expoPublisher interface {
	Publish(message *expo.PushMessage) (expo.PushResponse, error)
}

// Expo sends to Expo push tokens through the Expo push service.
type Expo struct {
	client expoPublisher
}

// defaultExpoTimeout applies when no send timeout is configured.
const defaultExpoTimeout = 10 * time.Second

// NewExpo creates a new Expo sender. accessToken may be empty when the project does
// not enforce push security. The Expo client takes no context, so timeout bounds
// each publish at the HTTP layer instead.
func NewExpo(accessToken string, timeout time.Duration) *Expo {
	return newExpo("", accessToken, timeout)
}

func newExpo(host, accessToken string, timeout time.Duration) *Expo {
	if timeout <= 0 {
		timeout = defaultExpoTimeout
	}
	return &Expo{
		client: expo.NewPushClient(&expo.ClientConfig{
			Host:        host,
			AccessToken: accessToken,
			HTTPClient:  &http.Client{Timeout: timeout},
		}),
	}
}

// Send delivers one message and returns the Expo ticket ID. token has already been
// classified by notification.ParsePushToken, which accepts both the
// ExponentPushToken[ and ExpoPushToken[ forms. A token Expo reports as no longer
// registered is returned as notification.ErrTokenInvalid.
func (e *Expo) Send(token string, msg *notification.PushMessage) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty expo token", notification.ErrTokenInvalid)
	}
	to := expo.ExponentPushToken(token)

	resp, err := e.client.Publish(&expo.PushMessage{
		To:        []expo.ExponentPushToken{to},
		Title:     msg.Title,
		Body:      msg.Body,
		Data:      msg.Data,
		Sound:     msg.Sound,
		Badge:     msg.Badge,
		Priority:  expo.HighPriority,
		ChannelID: androidChannelID,
	})
	if err != nil {
		return "", common.WrapProviderError("expo", "", err)
	}

	if err := resp.ValidateResponse(); err != nil {
		var notRegistered *expo.DeviceNotRegisteredError
		if errors.As(err, &notRegistered) {
			return "", common.WrapProviderError("expo", "DeviceNotRegistered", fmt.Errorf("%w: %v", notification.ErrTokenInvalid, err))
		}
		return "", common.WrapProviderError("expo", resp.Details["error"], err)
	}
	return resp.ID, nil
}
