package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, PlatformShopify, ParsePlatform(" Shopify "))
	assert.Equal(t, PlatformTikTok, ParsePlatform("tiktok_shop"))
	assert.Equal(t, PlatformMeta, ParsePlatform("facebook"))
	assert.Equal(t, PlatformGoogle, ParsePlatform("google-merchant"))
	assert.Equal(t, Platform("unknownshop"), ParsePlatform("UnknownShop"))
	assert.False(t, ParsePlatform("unknownshop").IsSupported())
	assert.Len(t, SupportedPlatforms, 14)
	assert.Equal(t, "WOOCOMMERCE", PlatformWooCommerce.EnvKey())
}

func TestParseAmount(t *testing.T) {
	assert.True(t, decimal.RequireFromString("19.99").Equal(ParseAmount("19.99")))
	assert.True(t, decimal.RequireFromString("19.99").Equal(ParseAmount("€19,99")))
	assert.True(t, decimal.RequireFromString("1234.50").Equal(ParseAmount("1,234.50")))
	assert.True(t, decimal.Zero.Equal(ParseAmount("")))
	assert.True(t, decimal.Zero.Equal(ParseAmount("n/a")))
}

func TestCanonicalEvent_Attribution(t *testing.T) {
	event := &CanonicalEvent{Platform: PlatformShopify, Kind: EventKindProduct, Action: ActionUpdate, ExternalID: "42"}
	assert.False(t, event.Attributed())
	scope, id := event.ProjectionKey()
	assert.Equal(t, "platform:shopify", scope)
	assert.Equal(t, "42", id)

	event.Attribute(&Integration{ID: "int-1", UserID: "user-1"})
	assert.True(t, event.Attributed())
	assert.Equal(t, "user-1", event.UserID)
	scope, _ = event.ProjectionKey()
	assert.Equal(t, "int-1", scope)
	assert.Equal(t, "product.update", event.EventType())
}
