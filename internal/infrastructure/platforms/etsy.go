package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func etsySpec() spec {
	return spec{
		platform: domain.PlatformEtsy,
		baseURL:  "https://api.etsy.com/v3/application",
		// Etsy signs with the standard-webhooks "v1,<base64>" format
		signature:      ports.SignatureScheme{Header: "Webhook-Signature", Encoding: ports.SignatureBase64, Prefix: "v1,"},
		apiKeyHeader:   "x-api-key",
		storeIDPaths:   []string{"shop_id", "data.shop_id"},
		deliveryHeader: "Webhook-Id",
		// order.paid, order.shipped, listing.updated...
		discriminator: fieldName("event_type", "type"),
		root:          rootAt("data"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPatch, "/shops/{store}/listings/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPut, "/listings/{id}/inventory"),
			domain.SyncTypeStock:    ep(http.MethodPut, "/listings/{id}/inventory"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/shops/{store}/receipts/{id}/tracking"),
		}),
		body: etsyBody,
	}
}

func etsyBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices, domain.SyncTypeStock:
		offering := map[string]interface{}{"quantity": quantityOf(p), "is_enabled": true}
		if price := str(p, "price"); price != "" {
			offering["price"] = price
		}
		return map[string]interface{}{
			"products": []map[string]interface{}{{"sku": str(p, "sku"), "offerings": []map[string]interface{}{offering}}},
		}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"tracking_code": str(p, "tracking_number"),
			"carrier_name":  str(p, "tracking_company"),
		}
	}
	return map[string]interface{}{"title": str(p, "title"), "description": str(p, "description")}
}
