package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	"github.com/stretchr/testify/assert"
)

var shopifyScheme = ports.SignatureScheme{Header: "X-Shopify-Hmac-Sha256", Encoding: ports.SignatureBase64}

func TestVerifier_ShopifyBase64(t *testing.T) {
	body := []byte(`{"id":123,"title":"Hat"}`)
	mac := hmac.New(sha256.New, []byte("shpss_secret"))
	mac.Write(body)
	header := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	v := NewVerifier("shpss_secret", shopifyScheme)

	assert.NoError(t, v.Verify(body, header))
	assert.Equal(t, header, v.Sign(body))
	assert.ErrorIs(t, v.Verify([]byte(`{"id":123,"title":"Cap"}`), header), domain.ErrAuthentication)
	assert.ErrorIs(t, NewVerifier("other", shopifyScheme).Verify(body, header), domain.ErrAuthentication)
	assert.ErrorIs(t, v.Verify(body, ""), domain.ErrAuthentication)
	assert.ErrorIs(t, v.Verify(body, "%%%not-base64"), domain.ErrAuthentication)
}

func TestVerifier_HexWithPrefix(t *testing.T) {
	scheme := ports.SignatureScheme{Header: "X-Hub-Signature-256", Encoding: ports.SignatureHex, Prefix: "sha256="}
	v := NewVerifier("meta-secret", scheme)
	body := []byte(`{"object":"page"}`)

	signed := v.Sign(body)
	assert.Contains(t, signed, "sha256=")
	assert.NoError(t, v.Verify(body, signed))
	assert.ErrorIs(t, v.Verify(body, signed[len("sha256="):]), domain.ErrAuthentication)
	assert.ErrorIs(t, v.Verify(body, "sha256=zz"), domain.ErrAuthentication)
}
