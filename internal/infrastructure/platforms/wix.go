package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func wixSpec() spec {
	return spec{
		platform:      domain.PlatformWix,
		baseURL:       "https://www.wixapis.com",
		signature:     ports.SignatureScheme{Header: "X-Wix-Signature", Encoding: ports.SignatureBase64},
		auth:          authHeader,
		authHeader:    "Authorization",
		storeIDPaths:  []string{"instanceId", "instance_id", "metadata.instanceId"},
		deliveryPaths: []string{"id", "metadata.eventId"},
		// wix.stores.v1.product_changed, wix.ecom.v1.order_created...
		discriminator: wixEventName,
		root:          rootAt("createdEvent.entity", "updatedEvent.currentEntity", "actionEvent.body", "data", "entity"),
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPost, "/stores/v1/products"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPatch, "/stores/v1/products/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPatch, "/stores/v1/products/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPatch, "/stores/v2/inventoryItems/product/{id}"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/ecom/v1/fulfillments/orders/{id}/create-fulfillment"),
		}),
		body: wixBody,
	}
}

func wixEventName(payload map[string]interface{}, _ http.Header) string {
	if name := str(payload, "eventType", "event_type"); name != "" {
		return name
	}
	fqdn := str(payload, "entityFqdn")
	if fqdn == "" {
		return ""
	}
	return fqdn + "_" + str(payload, "slug")
}

func wixBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"product": map[string]interface{}{"priceData": map[string]interface{}{"price": str(p, "price")}}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"inventoryItem": map[string]interface{}{
			"trackQuantity": true,
			"variants":      []map[string]interface{}{{"variantId": str(p, "variant_id"), "quantity": quantityOf(p)}},
		}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{"fulfillment": map[string]interface{}{
			"trackingInfo": map[string]interface{}{"trackingNumber": str(p, "tracking_number"), "shippingProvider": str(p, "tracking_company")},
		}}
	}
	return map[string]interface{}{"product": map[string]interface{}{
		"name":      str(p, "title"),
		"sku":       str(p, "sku"),
		"priceData": map[string]interface{}{"price": str(p, "price")},
	}}
}
