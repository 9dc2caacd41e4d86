package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityDefaults(t *testing.T) {
	e := EligibilityFor(&User{
		ID:            "u1",
		Email:         "maria@example.com",
		EmailVerified: true,
		Phone:         "555-234-5678",
		PhoneVerified: true,
		PushToken:     "ExponentPushToken[abc]",
	})

	assert.True(t, e.CanSend(ChannelPush))
	assert.True(t, e.CanSend(ChannelEmail))
	assert.False(t, e.CanSend(ChannelSMS), "sms is opt-in")
	assert.True(t, e.Topics[TopicFavoriteNearby])
	assert.True(t, e.Topics[TopicDeals])
	assert.False(t, e.Topics[TopicWeeklyDigest])
	require.NotNil(t, e.Push)
	assert.Equal(t, PushExpo, e.Push.Kind)
}

func TestEligibilitySMS(t *testing.T) {
	base := User{
		ID:            "u1",
		Phone:         "(555) 234-5678",
		PhoneVerified: true,
		Preferences:   Preferences{SMS: boolPtr(true)},
	}

	e := EligibilityFor(&base)
	assert.True(t, e.CanSend(ChannelSMS))
	assert.Equal(t, "+15552345678", e.Phone)

	unverified := base
	unverified.PhoneVerified = false
	assert.False(t, EligibilityFor(&unverified).CanSend(ChannelSMS))

	invalid := base
	invalid.Phone = "555-034-5678"
	assert.False(t, EligibilityFor(&invalid).CanSend(ChannelSMS))
}

func TestEligibilityOptOuts(t *testing.T) {
	e := EligibilityFor(&User{
		ID:            "u1",
		Email:         "maria@example.com",
		EmailVerified: true,
		PushToken:     "fcm-token",
		Preferences: Preferences{
			Push:           boolPtr(false),
			Email:          boolPtr(false),
			FavoriteNearby: boolPtr(false),
			WeeklyDigest:   boolPtr(true),
		},
	})

	assert.False(t, e.CanSend(ChannelPush))
	assert.False(t, e.CanSend(ChannelEmail))
	assert.False(t, e.Topics[TopicFavoriteNearby])
	assert.True(t, e.Topics[TopicWeeklyDigest])
}

func TestEligibilityRequiresDestination(t *testing.T) {
	e := EligibilityFor(&User{ID: "u1", Email: "maria@example.com"})

	assert.True(t, e.PushEligible)
	assert.False(t, e.CanSend(ChannelPush), "no token")
	assert.False(t, e.CanSend(ChannelEmail), "email not verified")
	assert.False(t, e.CanSend(Channel("fax")))
}

func TestResolverFallsBackToDefaults(t *testing.T) {
	users := newMemUsers()
	r := NewResolver(users)

	e := r.Resolve(context.Background(), "missing")
	assert.Equal(t, "missing", e.UserID)
	assert.True(t, e.PushEligible)
	assert.True(t, e.EmailEligible)
	assert.False(t, e.SMSEligible)
	assert.False(t, e.CanSend(ChannelPush))
	assert.False(t, e.CanSend(ChannelEmail))

	users.err = errBoom
	e = r.Resolve(context.Background(), "u1")
	assert.True(t, e.PushEligible)
	assert.False(t, e.SMSEligible)
}

func TestResolverLoadsUser(t *testing.T) {
	r := NewResolver(newMemUsers(&User{
		ID:          "u1",
		DisplayName: "Maria",
		Role:        RoleOwner,
		PushToken:   "fcm-token",
	}))

	e := r.Resolve(context.Background(), "u1")
	assert.Equal(t, "Maria", e.DisplayName)
	assert.Equal(t, RoleOwner, e.Role)
	assert.True(t, e.CanSend(ChannelPush))
}
