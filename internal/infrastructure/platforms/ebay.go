package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func ebaySpec() spec {
	return spec{
		platform:      domain.PlatformEbay,
		baseURL:       "https://api.ebay.com",
		signature:     ports.SignatureScheme{Header: "X-Ebay-Signature", Encoding: ports.SignatureHex},
		storeIDPaths:  []string{"notification.data.username", "notification.data.userId", "notification.data.sellerId"},
		deliveryPaths: []string{"notification.notificationId"},
		// MARKETPLACE_ACCOUNT_DELETION, ITEM_SOLD, ITEM_MARKED_SHIPPED...
		discriminator: fieldName("metadata.topic"),
		root:          rootAt("notification.data"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPut, "/sell/inventory/v1/inventory_item/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPost, "/sell/inventory/v1/bulk_update_price_quantity"),
			domain.SyncTypeStock:    ep(http.MethodPost, "/sell/inventory/v1/bulk_update_price_quantity"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/sell/fulfillment/v1/order/{id}/shipping_fulfillment"),
		}),
		body: ebayBody,
	}
}

func ebayBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"requests": []map[string]interface{}{{
			"sku":    req.ExternalID,
			"offers": []map[string]interface{}{{"offerId": str(p, "offer_id"), "price": map[string]interface{}{"value": str(p, "price"), "currency": str(p, "currency")}}},
		}}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"requests": []map[string]interface{}{{
			"sku":                        req.ExternalID,
			"shipToLocationAvailability": map[string]interface{}{"quantity": quantityOf(p)},
		}}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"trackingNumber":      str(p, "tracking_number"),
			"shippingCarrierCode": str(p, "tracking_company"),
		}
	}
	return map[string]interface{}{
		"product":      map[string]interface{}{"title": str(p, "title"), "description": str(p, "description")},
		"availability": map[string]interface{}{"shipToLocationAvailability": map[string]interface{}{"quantity": quantityOf(p)}},
	}
}
