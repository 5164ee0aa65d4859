package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify Admin API operations used by outbound sync
type ShopifyClient interface {
	// Product API
	ListProducts(ctx context.Context, shop string, accessToken string, options interface{}) ([]shopify.Product, error)
	GetProduct(ctx context.Context, shop string, accessToken string, productID uint64) (*shopify.Product, error)
	CreateProduct(ctx context.Context, shop string, accessToken string, product shopify.Product) (*shopify.Product, error)
	UpdateProduct(ctx context.Context, shop string, accessToken string, product shopify.Product) (*shopify.Product, error)
	UpdateVariant(ctx context.Context, shop string, accessToken string, variant shopify.Variant) (*shopify.Variant, error)

	// Order API
	ListOrders(ctx context.Context, shop string, accessToken string, options interface{}) ([]shopify.Order, error)
	UpdateOrder(ctx context.Context, shop string, accessToken string, order shopify.Order) (*shopify.Order, error)
	CreateFulfillment(ctx context.Context, shop string, accessToken string, fulfillment shopify.Fulfillment) (*shopify.Fulfillment, error)

	// Customer API
	CreateCustomer(ctx context.Context, shop string, accessToken string, customer shopify.Customer) (*shopify.Customer, error)
	UpdateCustomer(ctx context.Context, shop string, accessToken string, customer shopify.Customer) (*shopify.Customer, error)

	// Inventory API
	SetInventoryLevel(ctx context.Context, shop string, accessToken string, level shopify.InventoryLevel) (*shopify.InventoryLevel, error)
}
