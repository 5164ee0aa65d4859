package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func wooCommerceSpec() spec {
	return spec{
		platform:       domain.PlatformWooCommerce,
		signature:      ports.SignatureScheme{Header: "X-WC-Webhook-Signature", Encoding: ports.SignatureBase64},
		auth:           authBasic,
		storeIDHeader:  "X-WC-Webhook-Source",
		storeIDPaths:   []string{"store_url", "_links.self.0.href"},
		deliveryHeader: "X-WC-Webhook-Delivery-ID",
		// product.updated, order.created, coupon.deleted...
		discriminator: headerOrField("X-WC-Webhook-Topic", "topic", "webhook_topic"),
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts:  ep(http.MethodPost, "/wp-json/wc/v3/products"),
			domain.SyncTypeCustomers: ep(http.MethodPost, "/wp-json/wc/v3/customers"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts:  ep(http.MethodPut, "/wp-json/wc/v3/products/{id}"),
			domain.SyncTypePrices:    ep(http.MethodPut, "/wp-json/wc/v3/products/{id}"),
			domain.SyncTypeStock:     ep(http.MethodPut, "/wp-json/wc/v3/products/{id}"),
			domain.SyncTypeOrders:    ep(http.MethodPut, "/wp-json/wc/v3/orders/{id}"),
			domain.SyncTypeTracking:  ep(http.MethodPut, "/wp-json/wc/v3/orders/{id}"),
			domain.SyncTypeCustomers: ep(http.MethodPut, "/wp-json/wc/v3/customers/{id}"),
		}),
		body: wooCommerceBody,
	}
}

func wooCommerceBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypeProducts:
		return map[string]interface{}{
			"name":          str(p, "title"),
			"sku":           str(p, "sku"),
			"regular_price": str(p, "price"),
			"description":   str(p, "description"),
		}
	case domain.SyncTypePrices:
		return map[string]interface{}{"regular_price": str(p, "price")}
	case domain.SyncTypeStock:
		return map[string]interface{}{"manage_stock": true, "stock_quantity": quantityOf(p)}
	case domain.SyncTypeOrders:
		return map[string]interface{}{"status": str(p, "status")}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"meta_data": []map[string]interface{}{
				{"key": "_tracking_number", "value": str(p, "tracking_number")},
				{"key": "_tracking_provider", "value": str(p, "tracking_company")},
			},
		}
	}
	return p
}
