package platforms

import (
	"net/http"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"
)

func metaSpec() spec {
	return spec{
		platform:     domain.PlatformMeta,
		baseURL:      "https://graph.facebook.com/v19.0",
		signature:    ports.SignatureScheme{Header: "X-Hub-Signature-256", Encoding: ports.SignatureHex, Prefix: "sha256="},
		storeIDPaths: []string{"entry.0.id"},
		// commerce_orders + ORDER_CREATED, product_catalog...
		discriminator: metaEventName,
		root:          rootAt("entry.0.changes.0.value"),
		create: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPost, "/{store}/products"),
		}),
		update: routes(map[domain.SyncType]endpoint{
			domain.SyncTypeProducts: ep(http.MethodPost, "/{id}"),
			domain.SyncTypePrices:   ep(http.MethodPost, "/{id}"),
			domain.SyncTypeStock:    ep(http.MethodPost, "/{id}"),
			domain.SyncTypeTracking: ep(http.MethodPost, "/{id}/shipments"),
		}),
	}
}

func metaEventName(payload map[string]interface{}, _ http.Header) string {
	field := str(payload, "entry.0.changes.0.field")
	if field == "" {
		return ""
	}
	if event := str(payload, "entry.0.changes.0.value.event", "entry.0.changes.0.value.event_type"); event != "" {
		return field + "." + event
	}
	return field
}
