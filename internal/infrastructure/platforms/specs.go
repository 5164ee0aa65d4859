package platforms

import (
	"net/http"
	"strings"

	"archie-core-commerce-sync/internal/domain"
)

// restSpecs lists every platform served by restAdapter
func restSpecs() []spec {
	return []spec{
		wooCommerceSpec(),
		amazonSpec(),
		ebaySpec(),
		etsySpec(),
		tiktokSpec(),
		googleSpec(),
		metaSpec(),
		prestaShopSpec(),
		wixSpec(),
		magentoSpec(),
		cdiscountSpec(),
		fnacSpec(),
		rakutenSpec(),
	}
}

// fieldName reads the event name from the first matching payload path
func fieldName(paths ...string) func(map[string]interface{}, http.Header) string {
	return func(payload map[string]interface{}, _ http.Header) string {
		return str(payload, paths...)
	}
}

// headerOrField prefers a header and falls back to payload paths
func headerOrField(header string, paths ...string) func(map[string]interface{}, http.Header) string {
	return func(payload map[string]interface{}, headers http.Header) string {
		if v := strings.TrimSpace(headers.Get(header)); v != "" {
			return v
		}
		return str(payload, paths...)
	}
}

// rootAt returns the first nested object among paths, unwrapping single-key envelopes
func rootAt(paths ...string) func(map[string]interface{}) map[string]interface{} {
	return func(payload map[string]interface{}) map[string]interface{} {
		root := obj(payload, paths...)
		if root == nil {
			return nil
		}
		return unwrapSingle(root)
	}
}

func unwrapSingle(m map[string]interface{}) map[string]interface{} {
	if len(m) != 1 {
		return m
	}
	for _, v := range m {
		if child, ok := v.(map[string]interface{}); ok {
			return child
		}
	}
	return m
}

func quantityOf(p map[string]interface{}) int {
	if q := intPtr(p, "quantity"); q != nil {
		return *q
	}
	return 0
}

func ep(method, path string) endpoint {
	return endpoint{method: method, path: path}
}

func routes(pairs map[domain.SyncType]endpoint) map[domain.SyncType]endpoint {
	return pairs
}
