package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func amazonSpec() spec {
	return spec{
		platform:      domain.PlatformAmazon,
		baseURL:       "https://sellingpartnerapi-eu.amazon.com",
		signature:     ports.SignatureScheme{Header: "X-Amz-Signature", Encoding: ports.SignatureHex},
		auth:          authHeader,
		authHeader:    "x-amz-access-token",
		storeIDPaths:  []string{"sellerId", "SellerId", "payload.SellerId", "Payload.SellerId", "payload.OrderChangeNotification.SellerId", "payload.AnyOfferChangedNotification.SellerId"},
		deliveryPaths: []string{"notificationMetadata.notificationId", "NotificationMetadata.NotificationId"},
		// ORDER_CHANGE, ANY_OFFER_CHANGED, FBA_INVENTORY_AVAILABILITY_CHANGES, LISTINGS_ITEM_DELETED...
		discriminator: fieldName("notificationType", "NotificationType"),
		root:          rootAt("payload", "Payload"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPatch, "/listings/2021-08-01/items/{store}/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPatch, "/listings/2021-08-01/items/{store}/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPatch, "/listings/2021-08-01/items/{store}/{id}"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/orders/v0/orders/{id}/shipmentConfirmation"),
		}),
		body: amazonBody,
	}
}

// amazonBody builds Listings Items JSON patches
func amazonBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	var patch map[string]interface{}
	switch req.SyncType {
	case domain.SyncTypePrices:
		patch = map[string]interface{}{
			"op":   "replace",
			"path": "/attributes/purchasable_offer",
			"value": []map[string]interface{}{{
				"currency":  str(p, "currency"),
				"our_price": []map[string]interface{}{{"schedule": []map[string]interface{}{{"value_with_tax": str(p, "price")}}}},
				"audience":  "ALL",
			}},
		}
	case domain.SyncTypeStock:
		patch = map[string]interface{}{
			"op":    "replace",
			"path":  "/attributes/fulfillment_availability",
			"value": []map[string]interface{}{{"fulfillment_channel_code": "DEFAULT", "quantity": quantityOf(p)}},
		}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"packageDetail": map[string]interface{}{
				"carrierCode":    str(p, "tracking_company"),
				"trackingNumber": str(p, "tracking_number"),
			},
		}
	default:
		patch = map[string]interface{}{
			"op":    "replace",
			"path":  "/attributes/item_name",
			"value": []map[string]interface{}{{"value": str(p, "title")}},
		}
	}
	return map[string]interface{}{
		"productType": "PRODUCT",
		"patches":     []map[string]interface{}{patch},
	}
}
