package notification

import "strings"

// PushKind tags which vendor a push token belongs to.
type PushKind int

const (
	PushFCM PushKind = iota + 1
	PushExpo
)

func (k PushKind) String() string {
	switch k {
	case PushFCM:
		return "fcm"
	case PushExpo:
		return "expo"
	default:
		return "unknown"
	}
}

// PushDestination is a push token resolved to its vendor once, when the user is read.
type PushDestination struct {
	Kind  PushKind
	Token string
}

var expoTokenPrefixes = []string{"ExponentPushToken[", "ExpoPushToken["}

// ParsePushToken classifies a stored token. Returns false for an empty token.
func ParsePushToken(token string) (PushDestination, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PushDestination{}, false
	}
	for _, p := range expoTokenPrefixes {
		if strings.HasPrefix(token, p) {
			return PushDestination{Kind: PushExpo, Token: token}, true
		}
	}
	return PushDestination{Kind: PushFCM, Token: token}, true
}

// MaxBadge is the largest badge count ever put on a push payload.
const MaxBadge = 99

// BadgeCount caps an unread count for display on the app icon.
func BadgeCount(unread int) int {
	switch {
	case unread < 0:
		return 0
	case unread > MaxBadge:
		return MaxBadge
	default:
		return unread
	}
}
