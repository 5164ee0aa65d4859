package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func googleSpec() spec {
	return spec{
		platform:       domain.PlatformGoogle,
		baseURL:        "https://shoppingcontent.googleapis.com/content/v2.1",
		signature:      ports.SignatureScheme{Header: "X-Goog-Signature", Encoding: ports.SignatureHex},
		storeIDPaths:   []string{"merchantId", "merchant_id", "account"},
		deliveryHeader: "X-Goog-Message-Id",
		deliveryPaths:  []string{"message.messageId", "notificationId"},
		// PRODUCT + STATUS_CHANGE, PRODUCT + DELETE...
		discriminator: googleEventName,
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPost, "/{store}/products"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPatch, "/{store}/products/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPatch, "/{store}/products/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPatch, "/{store}/products/{id}"),
		}),
		body: googleBody,
	}
}

func googleEventName(payload map[string]interface{}, _ http.Header) string {
	resource := str(payload, "resourceType", "resource_type")
	if resource == "" {
		return ""
	}
	return resource + "." + str(payload, "eventType", "changeType", "attribute")
}

func googleBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"price": map[string]interface{}{"value": str(p, "price"), "currency": str(p, "currency")}}
	case domain.SyncTypeStock:
		availability := "out of stock"
		if quantityOf(p) > 0 {
			availability = "in stock"
		}
		return map[string]interface{}{"availability": availability}
	}
	return map[string]interface{}{
		"offerId":     str(p, "sku"),
		"title":       str(p, "title"),
		"description": str(p, "description"),
		"price":       map[string]interface{}{"value": str(p, "price"), "currency": str(p, "currency")},
	}
}
