package notification

import "context"

// RecipientRateLimiter caps ambient notifications per recipient.
// Implementations live in infra/ratelimit/.
type RecipientRateLimiter interface {
	// Allow checks whether another ambient notification can go to the recipient.
	// Returns true if allowed, false if the recipient hit the cap.
	Allow(ctx context.Context, recipient string) (bool, error)
}
