package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func magentoSpec() spec {
	return spec{
		platform:      domain.PlatformMagento,
		signature:     ports.SignatureScheme{Header: "X-Magento-Signature", Encoding: ports.SignatureHex},
		storeIDHeader: "X-Magento-Store",
		storeIDPaths:  []string{"store_code", "store_id", "data.store_code"},
		// observer.catalog_product_save_after, observer.sales_order_place_after...
		discriminator: fieldName("event", "eventName", "event_name"),
		root:          rootAt("data.object", "data"),
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts:  ep(http.MethodPost, "/rest/V1/products"),
			domain.SyncTypeCustomers: ep(http.MethodPost, "/rest/V1/customers"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts:  ep(http.MethodPut, "/rest/V1/products/{id}"),
			domain.SyncTypePrices:    ep(http.MethodPost, "/rest/V1/products/base-prices"),
			domain.SyncTypeStock:     ep(http.MethodPut, "/rest/V1/products/{id}/stockItems/1"),
			domain.SyncTypeOrders:    ep(http.MethodPost, "/rest/V1/orders/{id}/comments"),
			domain.SyncTypeTracking:  ep(http.MethodPost, "/rest/V1/order/{id}/ship"),
			domain.SyncTypeCustomers: ep(http.MethodPut, "/rest/V1/customers/{id}"),
		}),
		body: magentoBody,
	}
}

func magentoBody(req ports.OutboundRequest) interface{} {
	p := req.Payload
	switch req.SyncType {
	case domain.SyncTypePrices:
		return map[string]interface{}{"prices": []map[string]interface{}{{
			"sku":      firstNonEmpty(str(p, "sku"), req.ExternalID),
			"price":    str(p, "price"),
			"store_id": 0,
		}}}
	case domain.SyncTypeStock:
		return map[string]interface{}{"stockItem": map[string]interface{}{"qty": quantityOf(p), "is_in_stock": quantityOf(p) > 0}}
	case domain.SyncTypeOrders:
		return map[string]interface{}{"statusHistory": map[string]interface{}{"comment": str(p, "note"), "status": str(p, "status")}}
	case domain.SyncTypeTracking:
		return map[string]interface{}{
			"notify": true,
			"tracks": []map[string]interface{}{{
				"track_number": str(p, "tracking_number"),
				"title":        str(p, "tracking_company"),
				"carrier_code": "custom",
			}},
		}
	case domain.SyncTypeCustomers:
		return map[string]interface{}{"customer": map[string]interface{}{
			"email":     str(p, "email"),
			"firstname": str(p, "first_name"),
			"lastname":  str(p, "last_name"),
		}}
	}
	return map[string]interface{}{"product": map[string]interface{}{
		"sku":   firstNonEmpty(str(p, "sku"), req.ExternalID),
		"name":  str(p, "title"),
		"price": str(p, "price"),
	}}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
