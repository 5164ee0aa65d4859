package entity

import (
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoProductDoc represents a product mirror row in MongoDB
type MongoProductDoc struct {
	Scope             string               `bson:"scope"`
	ExternalID        string               `bson:"externalId"`
	IntegrationID     string               `bson:"integrationId,omitempty"`
	UserID            string               `bson:"userId,omitempty"`
	Platform          string               `bson:"platform"`
	Title             string               `bson:"title"`
	SKU               string               `bson:"sku,omitempty"`
	Price             primitive.Decimal128 `bson:"price"`
	Currency          string               `bson:"currency,omitempty"`
	Status            string               `bson:"status,omitempty"`
	InventoryQuantity int                  `bson:"inventoryQuantity"`
	Deleted           bool                 `bson:"deleted"`
	UpdatedAt         time.Time            `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoProductDoc) ToDomain() *domain.ProductMirror {
	return &domain.ProductMirror{
		Scope:             d.Scope,
		ExternalID:        d.ExternalID,
		IntegrationID:     d.IntegrationID,
		UserID:            d.UserID,
		Platform:          domain.Platform(d.Platform),
		Title:             d.Title,
		SKU:               d.SKU,
		Price:             FromDecimal128(d.Price),
		Currency:          d.Currency,
		Status:            d.Status,
		InventoryQuantity: d.InventoryQuantity,
		Deleted:           d.Deleted,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoProductDocFromDomain converts a domain entity to a MongoDB document
func MongoProductDocFromDomain(p *domain.ProductMirror) *MongoProductDoc {
	return &MongoProductDoc{
		Scope:             p.Scope,
		ExternalID:        p.ExternalID,
		IntegrationID:     p.IntegrationID,
		UserID:            p.UserID,
		Platform:          string(p.Platform),
		Title:             p.Title,
		SKU:               p.SKU,
		Price:             ToDecimal128(p.Price),
		Currency:          p.Currency,
		Status:            p.Status,
		InventoryQuantity: p.InventoryQuantity,
		Deleted:           p.Deleted,
		UpdatedAt:         p.UpdatedAt,
	}
}

// MongoOrderDoc represents an order row in MongoDB
type MongoOrderDoc struct {
	Scope             string               `bson:"scope"`
	ExternalID        string               `bson:"externalId"`
	IntegrationID     string               `bson:"integrationId,omitempty"`
	UserID            string               `bson:"userId,omitempty"`
	Platform          string               `bson:"platform"`
	OrderNumber       string               `bson:"orderNumber,omitempty"`
	Status            string               `bson:"status"`
	FinancialStatus   string               `bson:"financialStatus,omitempty"`
	FulfillmentStatus string               `bson:"fulfillmentStatus,omitempty"`
	Total             primitive.Decimal128 `bson:"total"`
	Currency          string               `bson:"currency,omitempty"`
	CustomerEmail     string               `bson:"customerEmail,omitempty"`
	TrackingNumber    string               `bson:"trackingNumber,omitempty"`
	TrackingCompany   string               `bson:"trackingCompany,omitempty"`
	UpdatedAt         time.Time            `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() *domain.OrderRecord {
	return &domain.OrderRecord{
		Scope:             d.Scope,
		ExternalID:        d.ExternalID,
		IntegrationID:     d.IntegrationID,
		UserID:            d.UserID,
		Platform:          domain.Platform(d.Platform),
		OrderNumber:       d.OrderNumber,
		Status:            d.Status,
		FinancialStatus:   d.FinancialStatus,
		FulfillmentStatus: d.FulfillmentStatus,
		Total:             FromDecimal128(d.Total),
		Currency:          d.Currency,
		CustomerEmail:     d.CustomerEmail,
		TrackingNumber:    d.TrackingNumber,
		TrackingCompany:   d.TrackingCompany,
		UpdatedAt:         d.UpdatedAt,
	}
}

// MongoOrderDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderDocFromDomain(o *domain.OrderRecord) *MongoOrderDoc {
	return &MongoOrderDoc{
		Scope:             o.Scope,
		ExternalID:        o.ExternalID,
		IntegrationID:     o.IntegrationID,
		UserID:            o.UserID,
		Platform:          string(o.Platform),
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Total:             ToDecimal128(o.Total),
		Currency:          o.Currency,
		CustomerEmail:     o.CustomerEmail,
		TrackingNumber:    o.TrackingNumber,
		TrackingCompany:   o.TrackingCompany,
		UpdatedAt:         o.UpdatedAt,
	}
}

// MongoStockDoc represents a stock level row in MongoDB
type MongoStockDoc struct {
	Scope         string    `bson:"scope"`
	ExternalID    string    `bson:"externalId"`
	IntegrationID string    `bson:"integrationId,omitempty"`
	UserID        string    `bson:"userId,omitempty"`
	Platform      string    `bson:"platform"`
	SKU           string    `bson:"sku,omitempty"`
	Quantity      int       `bson:"quantity"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoStockDoc) ToDomain() *domain.StockLevel {
	return &domain.StockLevel{
		Scope:         d.Scope,
		ExternalID:    d.ExternalID,
		IntegrationID: d.IntegrationID,
		UserID:        d.UserID,
		Platform:      domain.Platform(d.Platform),
		SKU:           d.SKU,
		Quantity:      d.Quantity,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoStockDocFromDomain converts a domain entity to a MongoDB document
func MongoStockDocFromDomain(s *domain.StockLevel) *MongoStockDoc {
	return &MongoStockDoc{
		Scope:         s.Scope,
		ExternalID:    s.ExternalID,
		IntegrationID: s.IntegrationID,
		UserID:        s.UserID,
		Platform:      string(s.Platform),
		SKU:           s.SKU,
		Quantity:      s.Quantity,
		UpdatedAt:     s.UpdatedAt,
	}
}

// MongoRefundDoc represents a refund row in MongoDB
type MongoRefundDoc struct {
	Scope           string               `bson:"scope"`
	ExternalID      string               `bson:"externalId"`
	IntegrationID   string               `bson:"integrationId,omitempty"`
	UserID          string               `bson:"userId,omitempty"`
	Platform        string               `bson:"platform"`
	OrderExternalID string               `bson:"orderExternalId,omitempty"`
	Amount          primitive.Decimal128 `bson:"amount"`
	Currency        string               `bson:"currency,omitempty"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

// MongoRefundDocFromDomain converts a domain entity to a MongoDB document
func MongoRefundDocFromDomain(r *domain.RefundRecord) *MongoRefundDoc {
	return &MongoRefundDoc{
		Scope:           r.Scope,
		ExternalID:      r.ExternalID,
		IntegrationID:   r.IntegrationID,
		UserID:          r.UserID,
		Platform:        string(r.Platform),
		OrderExternalID: r.OrderExternalID,
		Amount:          ToDecimal128(r.Amount),
		Currency:        r.Currency,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToDecimal128 stores money without float rounding
func ToDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

// FromDecimal128 is the inverse of ToDecimal128
func FromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
