package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func rakutenSpec() spec {
	return spec{
		platform:      domain.PlatformRakuten,
		baseURL:       "https://api.rms.rakuten.co.jp/es/2.0",
		signature:     ports.SignatureScheme{Header: "X-Rakuten-Signature", Encoding: ports.SignatureHex},
		auth:          authBasic,
		storeIDPaths:  []string{"shopId", "shop_id", "shopUrl"},
		deliveryPaths: []string{"notificationId", "eventId"},
		// ORDER_CREATED, ITEM_UPDATED, INVENTORY_CHANGED...
		discriminator: fieldName("eventType", "event_type", "type"),
		root:          rootAt("data", "order", "item"),
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPost, "/items"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPatch, "/items/manage-numbers/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPatch, "/items/manage-numbers/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPost, "/inventories/bulk-upsert"),
			domain.SyncTypeOrders:   ep(http.MethodPost, "/order/updateOrderShipping"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/order/updateOrderShipping"),
		}),
		body: rakutenBody,
	}
}

func rakutenBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"variants": map[string]interface{}{
			firstNonEmpty(str(p, "variant_id", "sku"), req.ExternalID): map[string]interface{}{"standardPrice": str(p, "price")},
		}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"inventories": []map[string]interface{}{{
			"manageNumber": req.ExternalID,
			"variantId":    str(p, "variant_id", "sku"),
			"mode":         "ABSOLUTE",
			"quantity":     quantityOf(p),
		}}}
	case domain.SyncTypeOrders, domain.SyncTypeTracking:
		shipping := []map[string]interface{}{{
			"deliveryCompany": str(p, "tracking_company"),
			"shippingNumber":  str(p, "tracking_number"),
		}}
		return map[string]interface{}{
			"orderNumber":       req.ExternalID,
			"BasketidModelList": []map[string]interface{}{{"ShippingModelList": shipping}},
		}
	}
	return map[string]interface{}{
		"itemType": "NORMAL",
		"title":    str(p, "title"),
		"variants": map[string]interface{}{
			firstNonEmpty(str(p, "sku"), "default"): map[string]interface{}{"standardPrice": str(p, "price")},
		},
	}
}
