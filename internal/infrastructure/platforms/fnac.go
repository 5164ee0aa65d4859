package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func fnacSpec() spec {
	return spec{
		platform:      domain.PlatformFnac,
		baseURL:       "https://vendeur.fnac.com/api.php",
		signature:     ports.SignatureScheme{Header: "X-Fnac-Signature", Encoding: ports.SignatureHex},
		auth:          authHeader,
		authHeader:    "X-Fnac-Token",
		storeIDPaths:  []string{"partner_id", "partnerId", "shop_id"},
		deliveryPaths: []string{"notification_id"},
		// order_created, offer_updated...
		discriminator: fieldName("event", "event_type", "type"),
		root:          rootAt("data", "order", "offer"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypePrices:   ep(http.MethodPost, "/offers_update"),
			domain.SyncTypeStock:    ep(http.MethodPost, "/offers_update"),
			domain.SyncTypeOrders:   ep(http.MethodPost, "/orders_update"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/orders_update"),
		}),
		body: fnacBody,
	}
}

func fnacBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices, domain.SyncTypeStock:
		offer := map[string]interface{}{"offer_reference": firstNonEmpty(str(p, "sku"), req.ExternalID)}
		if price := str(p, "price"); price != "" {
			offer["price"] = price
		}
		if q := intPtr(p, "quantity"); q != nil {
			offer["quantity"] = *q
		}
		return map[string]interface{}{"offers": []map[string]interface{}{offer}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{"orders": []map[string]interface{}{{
			"order_id":         req.ExternalID,
			"action":           "Shipped",
			"tracking_number":  str(p, "tracking_number"),
			"tracking_company": str(p, "tracking_company"),
		}}}
	}
	return map[string]interface{}{"orders": []map[string]interface{}{{"order_id": req.ExternalID, "action": str(p, "status")}}}
}
