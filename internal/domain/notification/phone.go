package notification

import (
	"fmt"
	"strings"
)

// digitsOnly drops everything but ASCII digits.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// nationalNumber reduces a US number to its 10 national digits.
func nationalNumber(phone string) (string, bool) {
	d := digitsOnly(phone)
	switch {
	case len(d) == 10:
		return d, true
	case len(d) == 11 && d[0] == '1':
		return d[1:], true
	default:
		return "", false
	}
}

// ValidatePhoneNumber accepts 10-digit NANP numbers, or 11 digits with a leading 1.
// Area and exchange codes must not start with 0 or 1.
func ValidatePhoneNumber(phone string) bool {
	n, ok := nationalNumber(phone)
	if !ok {
		return false
	}
	return n[0] >= '2' && n[3] >= '2'
}

// FormatPhoneE164 normalizes a free-form US number to +1XXXXXXXXXX.
// Input that is not US-shaped is returned as "+" followed by its digits.
func FormatPhoneE164(phone string) string {
	if n, ok := nationalNumber(phone); ok {
		return "+1" + n
	}
	d := digitsOnly(phone)
	if d == "" {
		return ""
	}
	return "+" + d
}

// normalizeSMSDestination returns the E.164 number to text, or an error when the
// number must not be attempted.
func normalizeSMSDestination(phone string) (string, error) {
	e164 := FormatPhoneE164(phone)
	if !ValidatePhoneNumber(e164) {
		return "", fmt.Errorf("phone number %q is not a valid US number", phone)
	}
	return e164, nil
}
