package delivery

import (
	"strings"
	"unicode"
)

const (
	brazilCountryCode = "55"
	brazilAreaCodeLen = 2
	mobilePrefixDigit = '9'
)

func digitsOnly(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}

	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

// CandidateAddresses returns the plausible canonical forms of raw, the form
// as given first. National numbers get countryCode prepended unless raw is
// already international ("+" prefix or a JID). Brazilian mobile numbers also
// yield the form with the extra leading 9 added or removed.
func CandidateAddresses(raw, countryCode string) []string {
	digits := digitsOnly(raw)
	if digits == "" {
		return nil
	}

	trimmed := strings.TrimSpace(raw)
	international := strings.HasPrefix(trimmed, "+") || strings.Contains(trimmed, "@")

	if countryCode != "" && !international && (len(digits) == 10 || len(digits) == 11) {
		digits = countryCode + digits
	}

	candidates := []string{digits}
	if alt, ok := mobilePrefixVariant(digits); ok {
		candidates = append(candidates, alt)
	}

	return candidates
}

func mobilePrefixVariant(digits string) (string, bool) {
	if !strings.HasPrefix(digits, brazilCountryCode) {
		return "", false
	}

	local := digits[len(brazilCountryCode):]
	area, subscriber := local[:min(brazilAreaCodeLen, len(local))], local[min(brazilAreaCodeLen, len(local)):]

	switch len(subscriber) {
	case 9:
		if subscriber[0] != mobilePrefixDigit {
			return "", false
		}
		return brazilCountryCode + area + subscriber[1:], true
	case 8:
		return brazilCountryCode + area + string(mobilePrefixDigit) + subscriber, true
	default:
		return "", false
	}
}

// RecipientKey collapses the surface forms of one recipient into a single
// key, used for cooldown and per-recipient locking.
func RecipientKey(raw, countryCode string) string {
	candidates := CandidateAddresses(raw, countryCode)
	if len(candidates) == 0 {
		return strings.TrimSpace(raw)
	}

	key := candidates[0]
	for _, c := range candidates[1:] {
		if len(c) < len(key) {
			key = c
		}
	}
	return key
}
