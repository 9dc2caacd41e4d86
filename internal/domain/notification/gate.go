package notification

import (
	"context"
	"log/slog"
	"time"
)

// Policy sets the cooldown window of a gate check and which way it fails.
type Policy struct {
	Window time.Duration

	// FailOpen sends when the receipt lookup errors; otherwise the send is dropped.
	FailOpen bool
}

// Policies holds the gate policy for each kind of notification.
type Policies struct {
	OrderStatus Policy
	Proximity   Policy
	Deal        Policy
}

// DefaultPolicies returns the cooldowns used when none are configured.
// Order updates fail open: a missed one is a user-visible failure. Ambient
// notifications fail closed.
func DefaultPolicies() Policies {
	return Policies{
		OrderStatus: Policy{Window: 5 * time.Minute, FailOpen: true},
		Proximity:   Policy{Window: time.Hour, FailOpen: false},
		Deal:        Policy{Window: 6 * time.Hour, FailOpen: false},
	}
}

// Gate suppresses repeat notifications of the same (user, topic, type) triple.
//
// The check reads the receipt log and the dispatcher writes the receipt later, so two
// concurrent invocations for the same change can both pass. That race is accepted.
type Gate struct {
	receipts ReceiptStore
	now      func() time.Time
}

// NewGate creates a new anti-spam gate over the receipt log.
func NewGate(receipts ReceiptStore) *Gate {
	return &Gate{receipts: receipts, now: time.Now}
}

// ShouldSend reports whether no matching receipt exists inside the policy window.
func (g *Gate) ShouldSend(ctx context.Context, userID, topicID, notifType string, policy Policy) bool {
	since := g.now().Add(-policy.Window)

	recent, err := g.receipts.FindRecent(ctx, userID, topicID, notifType, since)
	if err != nil {
		slog.Warn("anti-spam lookup failed",
			"user_id", userID,
			"topic_id", topicID,
			"type", notifType,
			"fail_open", policy.FailOpen,
			"error", err,
		)
		return policy.FailOpen
	}

	if recent != nil {
		slog.Info("notification suppressed by cooldown",
			"user_id", userID,
			"topic_id", topicID,
			"type", notifType,
			"last_sent", recent.CreatedAt,
		)
		return false
	}
	return true
}
