package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func cdiscountSpec() spec {
	return spec{
		platform:      domain.PlatformCdiscount,
		baseURL:       "https://api.octopia-io.net/seller/v2",
		signature:     ports.SignatureScheme{Header: "X-Cdiscount-Signature", Encoding: ports.SignatureHex},
		storeIDPaths:  []string{"SellerId", "sellerId", "seller_id"},
		deliveryPaths: []string{"NotificationId", "notificationId"},
		// OrderCreated, OfferUpdated, StockUpdated...
		discriminator: fieldName("EventType", "eventType", "event_type"),
		root:          rootAt("Data", "data", "Order", "Offer"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypePrices:   ep(http.MethodPatch, "/offers/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPatch, "/offers/{id}"),
			domain.SyncTypeOrders:   ep(http.MethodPost, "/orders/{id}/acceptation"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/orders/{id}/shipments"),
		}),
		body: cdiscountBody,
	}
}

func cdiscountBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"price": str(p, "price")}
	case domain.SyncTypeStock:
		return map[string]interface{}{"stock": quantityOf(p)}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"trackingNumber": str(p, "tracking_number"),
			"carrierName":    str(p, "tracking_company"),
			"trackingUrl":    str(p, "tracking_url"),
		}
	}
	return map[string]interface{}{"status": str(p, "status")}
}
