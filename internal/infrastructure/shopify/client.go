package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RetryConfig bounds retries of Shopify Admin API calls
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry settings used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

type client struct {
	app         goshopify.App
	rateLimiter *rate.Limiter
	retryConfig RetryConfig
	logger      zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	// Shopify's REST bucket leaks at 2 requests/second per store
	return NewClientWithOptions(apiKey, apiSecret, rate.NewLimiter(rate.Limit(2), 40), DefaultRetryConfig(), logger)
}

// NewClientWithOptions creates a client with rate limiting and retry options
func NewClientWithOptions(
	apiKey, apiSecret string,
	rateLimiter *rate.Limiter,
	retryConfig RetryConfig,
	logger zerolog.Logger,
) ports.ShopifyClient {
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		logger:      logger.With().Str("component", "shopify_client").Logger(),
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// callWith waits for the rate limiter and retries transient failures with exponential backoff
func (c *client) callWith(ctx context.Context, api *goshopify.Client, shopDomain, op string, fn func(*goshopify.Client) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryConfig.InitialInterval
	policy.MaxInterval = c.retryConfig.MaxInterval

	attempt := 0
	operation := func() error {
		attempt++
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := fn(api)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn().
			Err(err).
			Str("shop", shopDomain).
			Str("operation", op).
			Int("attempt", attempt).
			Msg("Shopify API call failed, retrying")
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.retryConfig.MaxRetries), ctx))
}

// isRetryable treats throttling and server errors as transient.
// go-shopify flattens HTTP failures into the error text.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"not found", "unauthorized", "forbidden", "unprocessable", "401", "403", "404", "422"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}

// Product API

func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Product, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var products []goshopify.Product
	err = c.callWith(ctx, api, shopDomain, "list_products", func(api *goshopify.Client) error {
		var listErr error
		products, listErr = api.Product.List(ctx, options)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (c *client) GetProduct(ctx context.Context, shopDomain string, accessToken string, productID uint64) (*goshopify.Product, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var product *goshopify.Product
	err = c.callWith(ctx, api, shopDomain, "get_product", func(api *goshopify.Client) error {
		var getErr error
		product, getErr = api.Product.Get(ctx, productID, nil)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (c *client) CreateProduct(ctx context.Context, shopDomain string, accessToken string, product goshopify.Product) (*goshopify.Product, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var created *goshopify.Product
	err = c.callWith(ctx, api, shopDomain, "create_product", func(api *goshopify.Client) error {
		var createErr error
		created, createErr = api.Product.Create(ctx, product)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

func (c *client) UpdateProduct(ctx context.Context, shopDomain string, accessToken string, product goshopify.Product) (*goshopify.Product, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var updated *goshopify.Product
	err = c.callWith(ctx, api, shopDomain, "update_product", func(api *goshopify.Client) error {
		var updateErr error
		updated, updateErr = api.Product.Update(ctx, product)
		return updateErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

func (c *client) UpdateVariant(ctx context.Context, shopDomain string, accessToken string, variant goshopify.Variant) (*goshopify.Variant, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var updated *goshopify.Variant
	err = c.callWith(ctx, api, shopDomain, "update_variant", func(api *goshopify.Client) error {
		var updateErr error
		updated, updateErr = api.Variant.Update(ctx, variant)
		return updateErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update variant: %w", err)
	}
	return updated, nil
}

// Order API

func (c *client) ListOrders(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Order, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var orders []goshopify.Order
	err = c.callWith(ctx, api, shopDomain, "list_orders", func(api *goshopify.Client) error {
		var listErr error
		orders, listErr = api.Order.List(ctx, options)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (c *client) UpdateOrder(ctx context.Context, shopDomain string, accessToken string, order goshopify.Order) (*goshopify.Order, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var updated *goshopify.Order
	err = c.callWith(ctx, api, shopDomain, "update_order", func(api *goshopify.Client) error {
		var updateErr error
		updated, updateErr = api.Order.Update(ctx, order)
		return updateErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return updated, nil
}

func (c *client) CreateFulfillment(ctx context.Context, shopDomain string, accessToken string, fulfillment goshopify.Fulfillment) (*goshopify.Fulfillment, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var created *goshopify.Fulfillment
	err = c.callWith(ctx, api, shopDomain, "create_fulfillment", func(api *goshopify.Client) error {
		var createErr error
		created, createErr = api.Fulfillment.Create(ctx, fulfillment)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fulfillment: %w", err)
	}
	return created, nil
}

// Customer API

func (c *client) CreateCustomer(ctx context.Context, shopDomain string, accessToken string, customer goshopify.Customer) (*goshopify.Customer, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var created *goshopify.Customer
	err = c.callWith(ctx, api, shopDomain, "create_customer", func(api *goshopify.Client) error {
		var createErr error
		created, createErr = api.Customer.Create(ctx, customer)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return created, nil
}

func (c *client) UpdateCustomer(ctx context.Context, shopDomain string, accessToken string, customer goshopify.Customer) (*goshopify.Customer, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var updated *goshopify.Customer
	err = c.callWith(ctx, api, shopDomain, "update_customer", func(api *goshopify.Client) error {
		var updateErr error
		updated, updateErr = api.Customer.Update(ctx, customer)
		return updateErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return updated, nil
}

// Inventory API

func (c *client) SetInventoryLevel(ctx context.Context, shopDomain string, accessToken string, level goshopify.InventoryLevel) (*goshopify.InventoryLevel, error) {
	api, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var updated *goshopify.InventoryLevel
	err = c.callWith(ctx, api, shopDomain, "set_inventory_level", func(api *goshopify.Client) error {
		var setErr error
		updated, setErr = api.InventoryLevel.Set(ctx, level)
		return setErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set inventory level: %w", err)
	}
	return updated, nil
}
