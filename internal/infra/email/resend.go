package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"
)

var _ notification.EmailGateway = (*ResendGateway)(nil)

const resendEndpoint = "https://api.resend.com/emails"

// ResendGateway sends emails using the Resend API.
type ResendGateway struct {
	apiKey     string
	from       Sender
	endpoint   string
	httpClient *http.Client
}

// NewResendGateway creates a new Resend email gateway.
func NewResendGateway(apiKey string, from Sender) *ResendGateway {
	return &ResendGateway{
		apiKey:     apiKey,
		from:       from,
		endpoint:   resendEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendEmail delivers an email via the Resend API and returns the message ID.
func (g *ResendGateway) SendEmail(ctx context.Context, msg *notification.EmailMessage) (string, error) {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	jsonData, err := json.Marshal(resendRequest{
		From:    g.from.String(),
		To:      []string{to},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		message := errResp.Message
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", common.NewProviderError("resend", errResp.Name, message)
	}

	var successResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", fmt.Errorf("parsing resend response: %w", err)
	}

	return successResp.ID, nil
}
