// Package filter withholds OTP/verification-code messages from outward
// notification. Filtering never affects storage: a sensitive message is
// recorded normally and only its chat forwarding is suppressed. False
// positives are accepted over false negatives.
package filter

import (
	"regexp"
	"strings"

	"github.com/kesslerio/dialpad-openclaw-skill/internal/event"
)

// Filter decides whether a message may be forwarded to chat channels.
type Filter interface {
	IsSensitive(text, sender, contactNumber string) bool
}

// New selects the filter implementation at startup. Disabled deployments
// get a pass-through rather than conditional checks at every call site.
func New(enabled bool) Filter {
	if !enabled {
		return Passthrough{}
	}
	return &SensitiveFilter{}
}

// Passthrough lets every message through unchanged.
type Passthrough struct{}

// IsSensitive always reports false.
func (Passthrough) IsSensitive(text, sender, contactNumber string) bool {
	return false
}

var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(otp|o\.t\.p|2fa|two[- ]?factor|multi[- ]?factor|mfa|verification code|security code|auth(?:entication)? code|one[- ]?time (?:pass(?:word)?|code)|passcode)\b`),
	regexp.MustCompile(`(?i)\b(?:google|g-?code|intuit|bank|chase|wells fargo|bank of america|citi|capital one|paypal|venmo)\b.{0,80}\b(?:code|otp|passcode|verification)\b`),
	regexp.MustCompile(`(?i)\b(?:code|otp|passcode|verification code)\b.{0,30}\b\d{4,8}\b`),
	regexp.MustCompile(`(?i)\b\d{4,8}\b.{0,30}\b(?:code|otp|passcode|verification code)\b`),
}

var codeTokenPattern = regexp.MustCompile(`\b(?:\d[\s-]?){4,8}\b`)

var securityContextPattern = regexp.MustCompile(
	`(?i)\b(verify|verification|security|login|signin|sign in|auth|account|bank|google|intuit)\b`)

// SensitiveFilter matches OTP and verification-code traffic.
type SensitiveFilter struct{}

// IsSensitive reports true for OTP/2FA/security verification messages.
// Sender and contact number join the search string so issuer names on the
// sending side count as context.
func (*SensitiveFilter) IsSensitive(text, sender, contactNumber string) bool {
	if event.IsBlank(text) {
		return false
	}

	var parts []string
	for _, part := range []string{sender, contactNumber, text} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	combined := strings.Join(parts, " ")

	for _, pattern := range keywordPatterns {
		if pattern.MatchString(combined) {
			return true
		}
	}

	// Secondary heuristic: a bare 4-8 digit token plus any generic
	// security-context word, even without an explicit "code" keyword.
	return codeTokenPattern.MatchString(text) && securityContextPattern.MatchString(combined)
}
