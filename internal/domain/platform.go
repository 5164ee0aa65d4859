package domain

import "strings"

// Platform identifies an external commerce platform
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformAmazon      Platform = "amazon"
	PlatformEbay        Platform = "ebay"
	PlatformEtsy        Platform = "etsy"
	PlatformTikTok      Platform = "tiktok"
	PlatformGoogle      Platform = "google"
	PlatformMeta        Platform = "meta"
	PlatformPrestaShop  Platform = "prestashop"
	PlatformWix         Platform = "wix"
	PlatformMagento     Platform = "magento"
	PlatformCdiscount   Platform = "cdiscount"
	PlatformFnac        Platform = "fnac"
	PlatformRakuten     Platform = "rakuten"
)

// SupportedPlatforms lists every platform with a dedicated adapter
var SupportedPlatforms = []Platform{
	PlatformShopify,
	PlatformWooCommerce,
	PlatformAmazon,
	PlatformEbay,
	PlatformEtsy,
	PlatformTikTok,
	PlatformGoogle,
	PlatformMeta,
	PlatformPrestaShop,
	PlatformWix,
	PlatformMagento,
	PlatformCdiscount,
	PlatformFnac,
	PlatformRakuten,
}

var platformAliases = map[string]Platform{
	"woo":             PlatformWooCommerce,
	"wc":              PlatformWooCommerce,
	"tiktok_shop":     PlatformTikTok,
	"tiktokshop":      PlatformTikTok,
	"tiktok-shop":     PlatformTikTok,
	"google_merchant": PlatformGoogle,
	"google-merchant": PlatformGoogle,
	"google_shopping": PlatformGoogle,
	"facebook":        PlatformMeta,
	"instagram":       PlatformMeta,
	"meta_commerce":   PlatformMeta,
	"amazon_sp":       PlatformAmazon,
}

// ParsePlatform normalizes a raw platform identifier from a path or header.
// Unknown values are returned lower-cased so the generic adapter can still tag them.
func ParsePlatform(raw string) Platform {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := platformAliases[key]; ok {
		return alias
	}
	return Platform(key)
}

// IsSupported reports whether the platform has a dedicated adapter
func (p Platform) IsSupported() bool {
	for _, candidate := range SupportedPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// EnvKey returns the suffix used for per-platform environment variables
func (p Platform) EnvKey() string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(string(p)))
}

func (p Platform) String() string {
	return string(p)
}
