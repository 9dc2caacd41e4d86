package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JWeeks90038/pingmyappetite-sub006/internal/common"
)

// Topic is an opt-in category for ambient notifications.
type Topic string

const (
	TopicFavoriteNearby Topic = "favorite_nearby"
	TopicDeals          Topic = "deals"
	TopicWeeklyDigest   Topic = "weekly_digest"
)

// Eligibility is the effective per-channel decision for one user.
type Eligibility struct {
	UserID        string
	PushEligible  bool
	SMSEligible   bool
	EmailEligible bool
	Push          *PushDestination
	Phone         string
	Email         string
	DisplayName   string
	Role          Role
	Topics        map[Topic]bool
}

// CanSend reports whether the channel is both eligible and has a destination.
func (e *Eligibility) CanSend(ch Channel) bool {
	switch ch {
	case ChannelPush:
		return e.PushEligible && e.Push != nil
	case ChannelSMS:
		return e.SMSEligible && e.Phone != ""
	case ChannelEmail:
		return e.EmailEligible && e.Email != ""
	default:
		return false
	}
}

// defaultEligibility is used when the user document is missing or unreadable.
// Push stays on so delivery is not silently broken; there is no verified contact data.
func defaultEligibility(userID string) *Eligibility {
	return &Eligibility{
		UserID:        userID,
		PushEligible:  true,
		SMSEligible:   false,
		EmailEligible: true,
		Topics: map[Topic]bool{
			TopicFavoriteNearby: true,
			TopicDeals:          true,
			TopicWeeklyDigest:   false,
		},
	}
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Resolver turns stored contact info and opt-in flags into channel eligibility.
type Resolver struct {
	users UserStore
}

// NewResolver creates a new preference resolver.
func NewResolver(users UserStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the user and evaluates eligibility. It never fails; lookup errors
// degrade to the conservative defaults.
func (r *Resolver) Resolve(ctx context.Context, userID string) *Eligibility {
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		var notFound *common.NotFoundError
		if errors.As(err, &notFound) {
			slog.Warn("user not found, using default preferences", "user_id", userID)
		} else {
			slog.Error("preference lookup failed, using default preferences", "user_id", userID, "error", err)
		}
		return defaultEligibility(userID)
	}
	if user == nil {
		return defaultEligibility(userID)
	}
	return EligibilityFor(user)
}

// EligibilityFor evaluates an already loaded user document.
func EligibilityFor(user *User) *Eligibility {
	p := user.Preferences
	e := &Eligibility{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Topics: map[Topic]bool{
			TopicFavoriteNearby: flag(p.FavoriteNearby, true),
			TopicDeals:          flag(p.Deals, true),
			TopicWeeklyDigest:   flag(p.WeeklyDigest, false),
		},
	}

	e.PushEligible = flag(p.Push, true)
	if dest, ok := ParsePushToken(user.PushToken); ok {
		e.Push = &dest
	}

	if flag(p.SMS, false) && user.PhoneVerified && ValidatePhoneNumber(user.Phone) {
		e.SMSEligible = true
		e.Phone = FormatPhoneE164(user.Phone)
	}

	if flag(p.Email, true) && user.EmailVerified && user.Email != "" {
		e.EmailEligible = true
		e.Email = user.Email
	}

	return e
}
