package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/config"
	"github.com/JWeeks90038/pingmyappetite-sub006/internal/domain/notification"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

type countingEnqueuer struct {
	n int
}

func (c *countingEnqueuer) Enqueue(*asynq.Task, ...asynq.Option) error {
	c.n++
	return nil
}

func newTestEngine(enq notification.Enqueuer) http.Handler {
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Auth.APIKeys = []string{"key-1"}
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100

	svc := notification.NewService(enq, nil, nil, nil)
	return New(cfg, notification.NewHandler(svc, ""))
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestEngine(&countingEnqueuer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pingmyappetite-notifications")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAPIRequiresKey(t *testing.T) {
	enq := &countingEnqueuer{}
	engine := newTestEngine(enq)
	body := `{"dealId":"deal1"}`

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "key-1", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events/deals", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, 1, enq.n)
}

func TestWebhooksSkipAPIKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	newTestEngine(&countingEnqueuer{}).ServeHTTP(rec, req)

	// Reaches the handler, which has no signing secret configured
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trigger-42")
	rec := httptest.NewRecorder()
	newTestEngine(&countingEnqueuer{}).ServeHTTP(rec, req)

	assert.Equal(t, "trigger-42", rec.Header().Get("X-Request-ID"))
}
