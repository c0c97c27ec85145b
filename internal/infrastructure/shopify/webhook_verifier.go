package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"archie-core-shopify-sync/internal/domain"
	"archie-core-shopify-sync/internal/ports"
)

type webhookVerifier struct{}

// NewWebhookVerifier checks the X-Shopify-Hmac-Sha256 signature of a webhook body
func NewWebhookVerifier() ports.WebhookVerifier {
	return webhookVerifier{}
}

func (webhookVerifier) Verify(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: no webhook secret configured", domain.ErrVerificationFailed)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrVerificationFailed)
	}

	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", domain.ErrVerificationFailed)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), expected) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrVerificationFailed)
	}
	return nil
}

// Sign returns the signature the platform would send for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
