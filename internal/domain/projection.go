package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductMirror is the denormalized local copy of a platform product
type ProductMirror struct {
	Scope             string          `json:"scope"`
	ExternalID        string          `json:"external_id"`
	IntegrationID     string          `json:"integration_id,omitempty"`
	UserID            string          `json:"user_id,omitempty"`
	Platform          Platform        `json:"platform"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency,omitempty"`
	Status            string          `json:"status,omitempty"`
	InventoryQuantity int             `json:"inventory_quantity"`
	Deleted           bool            `json:"deleted"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderRecord is the local projection of a platform order
type OrderRecord struct {
	Scope             string          `json:"scope"`
	ExternalID        string          `json:"external_id"`
	IntegrationID     string          `json:"integration_id,omitempty"`
	UserID            string          `json:"user_id,omitempty"`
	Platform          Platform        `json:"platform"`
	OrderNumber       string          `json:"order_number,omitempty"`
	Status            string          `json:"status"`
	FinancialStatus   string          `json:"financial_status,omitempty"`
	FulfillmentStatus string          `json:"fulfillment_status,omitempty"`
	Total             decimal.Decimal `json:"total"`
	Currency          string          `json:"currency,omitempty"`
	CustomerEmail     string          `json:"customer_email,omitempty"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	TrackingCompany   string          `json:"tracking_company,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// StockLevel is the last known quantity for a SKU on a channel
type StockLevel struct {
	Scope         string    `json:"scope"`
	ExternalID    string    `json:"external_id"`
	IntegrationID string    `json:"integration_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Platform      Platform  `json:"platform"`
	SKU           string    `json:"sku,omitempty"`
	Quantity      int       `json:"quantity"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RefundRecord is the local projection of a refund
type RefundRecord struct {
	Scope           string          `json:"scope"`
	ExternalID      string          `json:"external_id"`
	IntegrationID   string          `json:"integration_id,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	Platform        Platform        `json:"platform"`
	OrderExternalID string          `json:"order_external_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ParseAmount converts a platform money string into a decimal, tolerating
// empty values, currency symbols and comma decimal separators.
func ParseAmount(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero
	}
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == ',':
			return r
		}
		return -1
	}, cleaned)
	if strings.Contains(cleaned, ",") && !strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
