package platforms

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var shopifyResources = map[string]domain.EventKind{
	"products":         domain.EventKindProduct,
	"product_listings": domain.EventKindProduct,
	"collections":      domain.EventKindProduct,
	"orders":           domain.EventKindOrder,
	"fulfillments":     domain.EventKindOrder,
	"draft_orders":     domain.EventKindOrder,
	"inventory_levels": domain.EventKindInventory,
	"inventory_items":  domain.EventKindInventory,
	"refunds":          domain.EventKindRefund,
	"returns":          domain.EventKindRefund,
	"app":              domain.EventKindApp,
	"shop":             domain.EventKindApp,
}

var shopifyVerbs = map[string]domain.EventAction{
	"create":      domain.ActionCreate,
	"update":      domain.ActionUpdate,
	"updated":     domain.ActionUpdate,
	"delete":      domain.ActionDelete,
	"cancelled":   domain.ActionCancel,
	"fulfilled":   domain.ActionFulfill,
	"uninstalled": domain.ActionDelete,
}

// shopifyListOptions is encoded into the Admin API query string by go-shopify
type shopifyListOptions struct {
	Limit        int    `url:"limit,omitempty"`
	Status       string `url:"status,omitempty"`
	UpdatedAtMin string `url:"updated_at_min,omitempty"`
}

// ShopifyAdapter handles Shopify webhooks and Admin API writes
type ShopifyAdapter struct {
	client ports.ShopifyClient
	logger zerolog.Logger
}

// NewShopifyAdapter creates the Shopify adapter
func NewShopifyAdapter(client ports.ShopifyClient, logger zerolog.Logger) *ShopifyAdapter {
	return &ShopifyAdapter{
		client: client,
		logger: logger.With().Str("platform", string(domain.PlatformShopify)).Logger(),
	}
}

func (a *ShopifyAdapter) Platform() domain.Platform {
	return domain.PlatformShopify
}

func (a *ShopifyAdapter) Signature() ports.SignatureScheme {
	return ports.SignatureScheme{Header: "X-Shopify-Hmac-Sha256", Encoding: ports.SignatureBase64}
}

func (a *ShopifyAdapter) StoreIdentifier(payload map[string]interface{}, headers http.Header) string {
	if shop := strings.TrimSpace(headers.Get("X-Shopify-Shop-Domain")); shop != "" {
		return shop
	}
	return str(payload, "myshopify_domain", "shop_domain", "domain")
}

// Normalize classifies by the X-Shopify-Topic header, e.g. "products/update"
func (a *ShopifyAdapter) Normalize(payload map[string]interface{}, headers http.Header) *domain.CanonicalEvent {
	topic := strings.ToLower(strings.TrimSpace(headers.Get("X-Shopify-Topic")))
	if topic == "" || payload == nil {
		return nil
	}
	resource, verb, _ := strings.Cut(topic, "/")
	kind, ok := shopifyResources[resource]
	if !ok {
		return nil
	}
	action, ok := shopifyVerbs[verb]
	if !ok {
		action = classifyAction(verb)
	}
	if resource == "fulfillments" {
		action = domain.ActionFulfill
	}

	event := newEvent(domain.PlatformShopify, topic, kind, action, payload, payload)
	if kind == domain.EventKindOrder && resource == "fulfillments" {
		event.ExternalID = str(payload, "order_id")
		event.Snapshot.TrackingNumber = str(payload, "tracking_number", "tracking_numbers.0")
		event.Snapshot.TrackingCompany = str(payload, "tracking_company")
	}
	if kind == domain.EventKindInventory {
		event.ExternalID = str(payload, "inventory_item_id", "id")
	}
	event.StoreID = a.StoreIdentifier(payload, headers)
	event.DeliveryID = strings.TrimSpace(headers.Get("X-Shopify-Webhook-Id"))
	return event
}

// SyncOutbound upserts one entity through the Admin API
func (a *ShopifyAdapter) SyncOutbound(ctx context.Context, req ports.OutboundRequest) (domain.SyncResult, error) {
	result := domain.SyncResult{Processed: 1, ExternalID: req.ExternalID}
	if req.Integration == nil {
		result.Failed = 1
		return result, domain.ErrIntegrationNotFound
	}
	shop := shopDomain(req.Integration)
	token := req.Credentials.AccessToken()
	if token == "" {
		result.Failed = 1
		return result, fmt.Errorf("shopify: %w", domain.ErrMissingCredentials)
	}

	var err error
	switch req.SyncType {
	case domain.SyncTypeProducts:
		result.ExternalID, err = a.upsertProduct(ctx, shop, token, req)
	case domain.SyncTypePrices:
		err = a.updatePrice(ctx, shop, token, req)
	case domain.SyncTypeStock:
		err = a.setStock(ctx, shop, token, req)
	case domain.SyncTypeOrders:
		err = a.updateOrder(ctx, shop, token, req)
	case domain.SyncTypeTracking:
		err = a.createFulfillment(ctx, shop, token, req)
	case domain.SyncTypeCustomers:
		result.ExternalID, err = a.upsertCustomer(ctx, shop, token, req)
	default:
		err = fmt.Errorf("shopify %s: %w", req.SyncType, domain.ErrUnsupportedEntity)
	}
	if err != nil {
		result.Failed = 1
		return result, err
	}
	result.Succeeded = 1
	return result, nil
}

func (a *ShopifyAdapter) upsertProduct(ctx context.Context, shop, token string, req ports.OutboundRequest) (string, error) {
	product := goshopify.Product{
		Title:    str(req.Payload, "title"),
		BodyHTML: str(req.Payload, "description", "body_html"),
	}
	if req.ExternalID != "" {
		id, err := parseShopifyID(req.ExternalID)
		if err != nil {
			return "", err
		}
		product.Id = id
		updated, err := a.client.UpdateProduct(ctx, shop, token, product)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(updated.Id, 10), nil
	}

	variant := goshopify.Variant{Sku: str(req.Payload, "sku")}
	if price := str(req.Payload, "price"); price != "" {
		amount := domain.ParseAmount(price)
		variant.Price = &amount
	}
	product.Variants = []goshopify.Variant{variant}
	created, err := a.client.CreateProduct(ctx, shop, token, product)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(created.Id, 10), nil
}

func (a *ShopifyAdapter) updatePrice(ctx context.Context, shop, token string, req ports.OutboundRequest) error {
	variantID, err := a.resolveVariantID(ctx, shop, token, req)
	if err != nil {
		return err
	}
	price := domain.ParseAmount(str(req.Payload, "price"))
	_, err = a.client.UpdateVariant(ctx, shop, token, goshopify.Variant{Id: variantID, Price: &price})
	return err
}

// resolveVariantID prefers an explicit variant_id, otherwise the product's first variant
func (a *ShopifyAdapter) resolveVariantID(ctx context.Context, shop, token string, req ports.OutboundRequest) (uint64, error) {
	if raw := str(req.Payload, "variant_id"); raw != "" {
		return parseShopifyID(raw)
	}
	productID, err := parseShopifyID(req.ExternalID)
	if err != nil {
		return 0, err
	}
	product, err := a.client.GetProduct(ctx, shop, token, productID)
	if err != nil {
		return 0, err
	}
	if product == nil || len(product.Variants) == 0 {
		return 0, fmt.Errorf("shopify product %d has no variants", productID)
	}
	return product.Variants[0].Id, nil
}

func (a *ShopifyAdapter) setStock(ctx context.Context, shop, token string, req ports.OutboundRequest) error {
	itemID, err := parseShopifyID(str(req.Payload, "inventory_item_id"))
	if err != nil {
		itemID, err = parseShopifyID(req.ExternalID)
		if err != nil {
			return err
		}
	}
	locationRaw := str(req.Payload, "location_id")
	if locationRaw == "" {
		locationRaw = req.Credentials.Get("location_id")
	}
	locationID, err := parseShopifyID(locationRaw)
	if err != nil {
		return fmt.Errorf("shopify stock sync needs a location: %w", err)
	}
	quantity := 0
	if q := intPtr(req.Payload, "quantity"); q != nil {
		quantity = *q
	}
	_, err = a.client.SetInventoryLevel(ctx, shop, token, goshopify.InventoryLevel{
		InventoryItemId: itemID,
		LocationId:      locationID,
		Available:       quantity,
	})
	return err
}

func (a *ShopifyAdapter) updateOrder(ctx context.Context, shop, token string, req ports.OutboundRequest) error {
	id, err := parseShopifyID(req.ExternalID)
	if err != nil {
		return err
	}
	_, err = a.client.UpdateOrder(ctx, shop, token, goshopify.Order{
		Id:   id,
		Note: str(req.Payload, "note"),
		Tags: str(req.Payload, "tags"),
	})
	return err
}

func (a *ShopifyAdapter) createFulfillment(ctx context.Context, shop, token string, req ports.OutboundRequest) error {
	orderID, err := parseShopifyID(req.ExternalID)
	if err != nil {
		return err
	}
	_, err = a.client.CreateFulfillment(ctx, shop, token, goshopify.Fulfillment{
		OrderId:         orderID,
		TrackingNumber:  str(req.Payload, "tracking_number"),
		TrackingCompany: str(req.Payload, "tracking_company"),
		NotifyCustomer:  true,
	})
	return err
}

func (a *ShopifyAdapter) upsertCustomer(ctx context.Context, shop, token string, req ports.OutboundRequest) (string, error) {
	customer := goshopify.Customer{
		Email:     str(req.Payload, "email"),
		FirstName: str(req.Payload, "first_name"),
		LastName:  str(req.Payload, "last_name"),
		Phone:     str(req.Payload, "phone"),
	}
	if req.ExternalID != "" {
		id, err := parseShopifyID(req.ExternalID)
		if err != nil {
			return "", err
		}
		customer.Id = id
		if _, err := a.client.UpdateCustomer(ctx, shop, token, customer); err != nil {
			return "", err
		}
		return req.ExternalID, nil
	}
	created, err := a.client.CreateCustomer(ctx, shop, token, customer)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(created.Id, 10), nil
}

// SyncAll fetches the catalog and the orders changed since the last sync
func (a *ShopifyAdapter) SyncAll(ctx context.Context, integration *domain.Integration, creds domain.Credentials) (ports.BatchResult, error) {
	var result ports.BatchResult
	shop := shopDomain(integration)
	token := creds.AccessToken()
	if token == "" {
		return result, fmt.Errorf("shopify: %w", domain.ErrMissingCredentials)
	}

	products, err := a.client.ListProducts(ctx, shop, token, shopifyListOptions{Limit: 250})
	if err != nil {
		return result, err
	}
	now := time.Now().UTC()
	for _, p := range products {
		mirror := &domain.ProductMirror{
			Scope:         integration.ID,
			ExternalID:    strconv.FormatUint(p.Id, 10),
			IntegrationID: integration.ID,
			UserID:        integration.UserID,
			Platform:      domain.PlatformShopify,
			Title:         p.Title,
			Status:        fmt.Sprint(p.Status),
			UpdatedAt:     now,
		}
		if len(p.Variants) > 0 {
			v := p.Variants[0]
			mirror.SKU = v.Sku
			mirror.InventoryQuantity = v.InventoryQuantity
			if v.Price != nil {
				mirror.Price = *v.Price
			}
		}
		result.Products = append(result.Products, mirror)
	}

	since := now.Add(-24 * time.Hour)
	if integration.LastSyncAt != nil {
		since = *integration.LastSyncAt
	}
	result.Orders, err = a.PullOrders(ctx, integration, creds, since)
	if err != nil {
		return result, err
	}
	return result, nil
}

// PullOrders imports orders updated since the given time
func (a *ShopifyAdapter) PullOrders(ctx context.Context, integration *domain.Integration, creds domain.Credentials, since time.Time) ([]*domain.OrderRecord, error) {
	orders, err := a.client.ListOrders(ctx, shopDomain(integration), creds.AccessToken(), shopifyListOptions{
		Limit:        250,
		Status:       "any",
		UpdatedAtMin: since.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	records := make([]*domain.OrderRecord, 0, len(orders))
	for _, o := range orders {
		record := &domain.OrderRecord{
			Scope:             integration.ID,
			ExternalID:        strconv.FormatUint(o.Id, 10),
			IntegrationID:     integration.ID,
			UserID:            integration.UserID,
			Platform:          domain.PlatformShopify,
			OrderNumber:       o.Name,
			Status:            "open",
			FinancialStatus:   fmt.Sprint(o.FinancialStatus),
			FulfillmentStatus: fmt.Sprint(o.FulfillmentStatus),
			Currency:          o.Currency,
			CustomerEmail:     o.Email,
			Total:             decimal.Zero,
			UpdatedAt:         now,
		}
		if o.CancelledAt != nil {
			record.Status = "cancelled"
		}
		if o.TotalPrice != nil {
			record.Total = *o.TotalPrice
		}
		records = append(records, record)
	}
	return records, nil
}

func shopDomain(integration *domain.Integration) string {
	if integration.StoreIdentifier != "" {
		return integration.StoreIdentifier
	}
	host := strings.TrimPrefix(strings.TrimPrefix(integration.StoreURL, "https://"), "http://")
	return strings.TrimRight(host, "/")
}

func parseShopifyID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		// gid://shopify/Product/123
		raw = raw[i+1:]
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid shopify id %q: %w", raw, err)
	}
	return id, nil
}

var (
	_ ports.PlatformAdapter = (*ShopifyAdapter)(nil)
	_ ports.BatchSyncer     = (*ShopifyAdapter)(nil)
	_ ports.OrderPuller     = (*ShopifyAdapter)(nil)
)
