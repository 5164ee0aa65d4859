package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

// Verifier checks HMAC-SHA256 signatures computed over the raw request body
type Verifier struct {
	secret []byte
	scheme ports.SignatureScheme
}

// NewVerifier creates a verifier for one platform signing scheme
func NewVerifier(secret string, scheme ports.SignatureScheme) *Verifier {
	return &Verifier{secret: []byte(secret), scheme: scheme}
}

// Verify compares the digest header value against the body.
// All failures wrap domain.ErrAuthentication.
func (v *Verifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("missing %s header: %w", v.scheme.Header, domain.ErrAuthentication)
	}
	if v.scheme.Prefix != "" {
		if !strings.HasPrefix(signature, v.scheme.Prefix) {
			return fmt.Errorf("signature missing %q prefix: %w", v.scheme.Prefix, domain.ErrAuthentication)
		}
		signature = strings.TrimPrefix(signature, v.scheme.Prefix)
	}

	provided, err := v.decode(signature)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", domain.ErrAuthentication)
	}
	if !hmac.Equal(provided, v.digest(payload)) {
		return fmt.Errorf("signature mismatch: %w", domain.ErrAuthentication)
	}
	return nil
}

// Sign returns the header value a sender would produce for payload
func (v *Verifier) Sign(payload []byte) string {
	sum := v.digest(payload)
	if v.scheme.Encoding == ports.SignatureHex {
		return v.scheme.Prefix + hex.EncodeToString(sum)
	}
	return v.scheme.Prefix + base64.StdEncoding.EncodeToString(sum)
}

func (v *Verifier) digest(payload []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (v *Verifier) decode(signature string) ([]byte, error) {
	if v.scheme.Encoding == ports.SignatureHex {
		return hex.DecodeString(strings.ToLower(signature))
	}
	return base64.StdEncoding.DecodeString(signature)
}

// HMACVerifier implements ports.WebhookVerifier
type HMACVerifier struct{}

// Verify builds a Verifier for the scheme and checks signature
func (HMACVerifier) Verify(secret string, scheme ports.SignatureScheme, payload []byte, signature string) error {
	return NewVerifier(secret, scheme).Verify(payload, signature)
}

var _ ports.WebhookVerifier = HMACVerifier{}
