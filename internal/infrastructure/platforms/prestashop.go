package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func prestaShopSpec() spec {
	return spec{
		platform:     domain.PlatformPrestaShop,
		signature:    ports.SignatureScheme{Header: "X-Prestashop-Signature", Encoding: ports.SignatureHex},
		auth:         authBasic,
		storeIDPaths: []string{"shop_url", "shop_domain", "id_shop"},
		// hook names: actionProductUpdate, actionValidateOrder, actionUpdateQuantity, actionOrderSlipAdd...
		discriminator: fieldName("hook", "event", "action"),
		root:          rootAt("data", "object", "product", "order"),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPut, "/api/products/{id}?output_format=JSON"),
			domain.SyncTypePrices:   ep(http.MethodPut, "/api/products/{id}?output_format=JSON"),
			domain.SyncTypeStock:    ep(http.MethodPut, "/api/stock_availables/{id}?output_format=JSON"),
			domain.SyncTypeOrders:   ep(http.MethodPut, "/api/orders/{id}?output_format=JSON"),
			domain.SyncTypeTracking: ep(http.MethodPut, "/api/order_carriers/{id}?output_format=JSON"),
		}),
		body: prestaShopBody,
	}
}

func prestaShopBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"product": map[string]interface{}{"id": req.ExternalID, "price": str(p, "price")}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"stock_available": map[string]interface{}{"id": req.ExternalID, "quantity": quantityOf(p)}}
	case domain.SyncTypeOrders:
		return map[string]interface{}{"order": map[string]interface{}{"id": req.ExternalID, "current_state": str(p, "status")}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{"order_carrier": map[string]interface{}{"id_order": req.ExternalID, "tracking_number": str(p, "tracking_number")}}
	}
	return map[string]interface{}{"product": map[string]interface{}{
		"id":        req.ExternalID,
		"name":      str(p, "title"),
		"reference": str(p, "sku"),
		"price":     str(p, "price"),
	}}
}
