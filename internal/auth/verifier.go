// Package auth verifies inbound Dialpad webhook requests. Two channels are
// accepted when a shared secret is configured: an HMAC-SHA256 signature of
// the raw request body, or an HS256-signed bearer JWT. Either one passing
// authenticates the request.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verification methods reported to callers for logging.
const (
	MethodDisabled = "disabled"
	MethodHMAC     = "hmac"
	MethodJWT      = "jwt"
	MethodNone     = "missing_or_invalid_signature_or_jwt"
)

var signatureHeaders = []string{
	"X-Dialpad-Signature",
	"X-Dialpad-Signature-SHA256",
}

// Verify validates webhook auth against the raw request bytes. With an
// empty secret verification is disabled and always succeeds.
func Verify(headers http.Header, rawBody []byte, secret string) (bool, string) {
	if secret == "" {
		return true, MethodDisabled
	}
	if verifyHMACSignature(headers, rawBody, secret) {
		return true, MethodHMAC
	}
	if verifyBearerJWT(headers, secret) {
		return true, MethodJWT
	}
	return false, MethodNone
}

// parseSignatureCandidates extracts hex digest candidates from a signature
// header value. Raw hex and prefixed forms (sha256=<hex>, v1:<hex>) are
// accepted, comma-separated lists contribute every entry.
func parseSignatureCandidates(headerValue string) []string {
	if headerValue == "" {
		return nil
	}

	var candidates []string
	for _, part := range strings.Split(headerValue, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		if idx := strings.Index(piece, "="); idx >= 0 {
			piece = strings.TrimSpace(piece[idx+1:])
		} else if idx := strings.Index(piece, ":"); idx >= 0 {
			piece = strings.TrimSpace(piece[idx+1:])
		}
		piece = strings.ToLower(piece)
		if isHexDigest(piece) {
			candidates = append(candidates, piece)
		}
	}
	return candidates
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, ch := range s {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

func verifyHMACSignature(headers http.Header, rawBody []byte, secret string) bool {
	var provided []string
	for _, name := range signatureHeaders {
		provided = append(provided, parseSignatureCandidates(headers.Get(name))...)
	}
	if len(provided) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range provided {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return true
		}
	}
	return false
}

func extractBearerToken(headers http.Header) string {
	value := strings.TrimSpace(headers.Get("Authorization"))
	if value == "" {
		return ""
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// verifyBearerJWT checks the Authorization bearer token signature with the
// shared secret. Only HS256 is accepted; the parser rejects any other
// declared algorithm, including "none". Claims are not validated — this is
// signature-only trust, matching what Dialpad sends.
func verifyBearerJWT(headers http.Header, secret string) bool {
	token := extractBearerToken(headers)
	if token == "" {
		return false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	return err == nil && parsed.Valid
}
