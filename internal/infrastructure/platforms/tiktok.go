package platforms

import (
	"net/http"
	"strings"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

type tiktokType struct {
	kind   domain.EventKind
	action domain.EventAction
}

// TikTok Shop webhook type codes
var tiktokTypes = map[string]tiktokType{
	"1":  {domain.EventKindOrder, domain.ActionUpdate},     // ORDER_STATUS_CHANGE
	"2":  {domain.EventKindRefund, domain.ActionUpdate},    // REVERSE_STATUS_UPDATE
	"3":  {domain.EventKindOrder, domain.ActionUpdate},     // RECIPIENT_ADDRESS_UPDATE
	"4":  {domain.EventKindOrder, domain.ActionFulfill},    // PACKAGE_UPDATE
	"5":  {domain.EventKindProduct, domain.ActionUpdate},   // PRODUCT_STATUS_CHANGE
	"6":  {domain.EventKindApp, domain.ActionDelete},       // SELLER_DEAUTHORIZATION
	"11": {domain.EventKindOrder, domain.ActionCancel},     // CANCELLATION_STATUS_CHANGE
	"12": {domain.EventKindRefund, domain.ActionUpdate},    // RETURN_STATUS_CHANGE
	"15": {domain.EventKindProduct, domain.ActionUpdate},   // PRODUCT_INFORMATION_CHANGE
	"16": {domain.EventKindInventory, domain.ActionUpdate}, // INVENTORY_STATUS_CHANGE
}

func tiktokSpec() spec {
	return spec{
		platform:      domain.PlatformTikTok,
		baseURL:       "https://open-api.tiktokglobalshop.com",
		signature:     ports.SignatureScheme{Header: "Authorization", Encoding: ports.SignatureHex},
		auth:          authHeader,
		authHeader:    "x-tts-access-token",
		storeIDPaths:  []string{"shop_id", "data.shop_id"},
		deliveryPaths: []string{"tts_notification_id", "notification_id"},
		discriminator: fieldName("type"),
		classify:      classifyTikTok,
		root:          rootAt("data"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPut, "/product/202309/products/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPost, "/product/202309/products/{id}/prices/update"),
			domain.SyncTypeStock:    ep(http.MethodPost, "/product/202309/products/{id}/inventory/update"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/fulfillment/202309/orders/{id}/packages"),
		}),
		body: tiktokBody,
	}
}

func classifyTikTok(name string, payload map[string]interface{}) (domain.EventKind, domain.EventAction, bool) {
	t, ok := tiktokTypes[name]
	if !ok {
		return classify(name)
	}
	if t.kind == domain.EventKindOrder && t.action == domain.ActionUpdate {
		switch strings.ToUpper(str(payload, "data.order_status")) {
		case "CANCELLED", "CANCEL":
			return t.kind, domain.ActionCancel, true
		case "AWAITING_COLLECTION", "IN_TRANSIT", "DELIVERED", "COMPLETED":
			return t.kind, domain.ActionFulfill, true
		case "UNPAID", "ON_HOLD":
			return t.kind, domain.ActionCreate, true
		}
	}
	return t.kind, t.action, true
}

func tiktokBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"skus": []map[string]interface{}{{
			"id":    str(p, "sku_id", "sku"),
			"price": map[string]interface{}{"amount": str(p, "price"), "currency": str(p, "currency")},
		}}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"skus": []map[string]interface{}{{
			"id":        str(p, "sku_id", "sku"),
			"inventory": []map[string]interface{}{{"quantity": quantityOf(p), "warehouse_id": str(p, "warehouse_id")}},
		}}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"tracking_number":      str(p, "tracking_number"),
			"shipping_provider_id": str(p, "tracking_company"),
		}
	}
	return map[string]interface{}{"title": str(p, "title"), "description": str(p, "description")}
}
