package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Kenyan mobile numbers: Safaricom 07.., 2547.., and 01.. landlines-turned-mobile
	rePhone = regexp.MustCompile(`^(07\d{8}|2547\d{8}|01\d{8})$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reWS    = regexp.MustCompile(`\s+`)
	reDigit = regexp.MustCompile(`[^\d+]`)
)

// Phone strips whitespace and checks the local mobile number pattern.
func Phone(s string) (string, bool) {
	s = reWS.ReplaceAllString(s, "")
	if s == "" || len(s) > 13 {
		return "", false
	}
	return s, rePhone.MatchString(s)
}

// NormalizePhone254 converts an accepted local number to the 254 wire format
// Daraja expects. Handles +254..., 254..., 07..., 01..., and bare 7... forms.
// Returns "" when the input cannot be normalized.
func NormalizePhone254(s string) string {
	cleaned := reDigit.ReplaceAllString(s, "")
	switch {
	case strings.HasPrefix(cleaned, "+254"):
		return "254" + cleaned[4:]
	case strings.HasPrefix(cleaned, "254") && len(cleaned) == 12:
		return cleaned
	case strings.HasPrefix(cleaned, "07") && len(cleaned) == 10:
		return "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "01") && len(cleaned) == 10:
		return "254" + cleaned[1:]
	case strings.HasPrefix(cleaned, "7") && len(cleaned) == 9:
		return "254" + cleaned
	}
	if len(cleaned) == 12 {
		last9 := cleaned[len(cleaned)-9:]
		if strings.HasPrefix(last9, "7") {
			return "254" + last9
		}
	}
	return ""
}

// Qty parses a strict positive integer quantity.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ID validates a simple resource identifier (product/order ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Language narrows a requested language code to the supported set.
func Language(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sw":
		return "sw"
	default:
		return "en"
	}
}
