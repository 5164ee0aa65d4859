package platforms

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"archie-core-commerce-sync/internal/domain"
)

// lookup walks a dotted path through nested maps and slices, e.g. "variants.0.price"
func lookup(m map[string]interface{}, path string) interface{} {
	var current interface{} = m
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			current = node[part]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

// str returns the first non-empty scalar found among paths, as a string
func str(m map[string]interface{}, paths ...string) string {
	for _, p := range paths {
		if s := toString(lookup(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// intPtr returns the first numeric value found among paths
func intPtr(m map[string]interface{}, paths ...string) *int {
	for _, p := range paths {
		if n, ok := toInt(lookup(m, p)); ok {
			return &n
		}
	}
	return nil
}

// obj returns the first nested object found among paths
func obj(m map[string]interface{}, paths ...string) map[string]interface{} {
	for _, p := range paths {
		if child, ok := lookup(m, p).(map[string]interface{}); ok {
			return child
		}
	}
	return nil
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n), true
		}
		if f, err := val.Float64(); err == nil {
			return int(f), true
		}
	case float64:
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n, true
		}
	}
	return 0, false
}

// tokens splits an event name on separators and camelCase boundaries
func tokens(name string) []string {
	var out []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]) {
			flush()
		}
		current = append(current, r)
	}
	flush()
	return out
}

func hasToken(toks []string, candidates ...string) bool {
	for _, t := range toks {
		for _, c := range candidates {
			if t == c {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// classifyKind resolves the entity kind from a free-form event name.
// More specific kinds are checked first.
func classifyKind(name string) (domain.EventKind, bool) {
	lower := strings.ToLower(name)
	toks := tokens(name)
	switch {
	case containsAny(lower, "uninstall", "deauthoriz", "account_deletion", "accountdeletion") || hasToken(toks, "app"):
		return domain.EventKindApp, true
	case containsAny(lower, "refund", "return", "creditmemo", "reverse", "orderslip"):
		return domain.EventKindRefund, true
	case containsAny(lower, "inventory", "stock", "quantity"):
		return domain.EventKindInventory, true
	case containsAny(lower, "order", "fulfill", "shipment", "shipped", "sold", "purchase", "checkout"):
		return domain.EventKindOrder, true
	case containsAny(lower, "product", "listing", "catalog", "offer", "item", "variant", "sku"):
		return domain.EventKindProduct, true
	}
	return "", false
}

// classifyAction resolves the action from a free-form event name, defaulting to update
func classifyAction(name string) domain.EventAction {
	lower := strings.ToLower(name)
	toks := tokens(name)
	switch {
	case containsAny(lower, "cancel"):
		return domain.ActionCancel
	case containsAny(lower, "delet", "remov", "uninstall", "deactivat"):
		return domain.ActionDelete
	case containsAny(lower, "fulfil", "ship", "deliver", "dispatch"):
		return domain.ActionFulfill
	case containsAny(lower, "updat", "chang", "modif", "edit"):
		return domain.ActionUpdate
	case containsAny(lower, "creat", "place", "insert", "validate") || hasToken(toks, "add", "added", "new"):
		return domain.ActionCreate
	}
	return domain.ActionUpdate
}

// classify combines kind and action resolution for keyword-driven platforms
func classify(name string) (domain.EventKind, domain.EventAction, bool) {
	if strings.TrimSpace(name) == "" {
		return "", "", false
	}
	kind, ok := classifyKind(name)
	if !ok {
		return "", "", false
	}
	return kind, classifyAction(name), true
}

var (
	productIDPaths   = []string{"id", "resourceId", "product_id", "productId", "ProductId", "ASIN", "asin", "listing_id", "listingId", "itemId", "item_id", "offer_id", "offerId", "sku", "SKU", "SellerSKU"}
	orderIDPaths     = []string{"id", "order_id", "orderId", "OrderId", "AmazonOrderId", "OrderNumber", "order_number", "orderNumber", "receipt_id"}
	inventoryIDPaths = []string{"inventory_item_id", "inventoryItemId", "sku", "SKU", "SellerSKU", "seller_sku", "product_id", "productId", "id"}
	refundIDPaths    = []string{"id", "refund_id", "refundId", "return_id", "returnId", "reverse_order_id", "credit_memo_id"}
)

// externalID picks the natural key of the entity for projection upserts
func externalID(kind domain.EventKind, root map[string]interface{}) string {
	if root == nil {
		return ""
	}
	switch kind {
	case domain.EventKindProduct:
		return str(root, productIDPaths...)
	case domain.EventKindOrder:
		return str(root, orderIDPaths...)
	case domain.EventKindInventory:
		return str(root, inventoryIDPaths...)
	case domain.EventKindRefund:
		return str(root, refundIDPaths...)
	}
	return str(root, "id")
}

// snapshot extracts the platform-independent fields of an entity
func snapshot(kind domain.EventKind, root map[string]interface{}) *domain.EntitySnapshot {
	if root == nil {
		return nil
	}
	s := &domain.EntitySnapshot{
		Currency: str(root, "currency", "currency_code", "currencyCode", "price.currency", "price.currencyCode", "CurrencyCode"),
		Status:   str(root, "status", "Status", "order_status", "OrderStatus", "state", "listing_status"),
	}
	switch kind {
	case domain.EventKindProduct:
		s.Title = str(root, "title", "name", "product_name", "productName", "Title", "item_name")
		s.SKU = str(root, "sku", "SKU", "SellerSKU", "seller_sku", "variants.0.sku", "offer_id")
		s.Price = str(root, "price", "variants.0.price", "regular_price", "Price", "price.amount", "price.value", "price.Amount")
		s.Quantity = intPtr(root, "inventory_quantity", "stock_quantity", "quantity", "variants.0.inventory_quantity", "Quantity", "stock")
	case domain.EventKindInventory:
		s.SKU = str(root, "sku", "SKU", "SellerSKU", "seller_sku")
		s.Quantity = intPtr(root, "available", "quantity", "stock_quantity", "inventory_quantity", "Quantity", "FulfillableQuantity", "quantity_available", "stock", "new_quantity")
	case domain.EventKindOrder:
		s.OrderNumber = str(root, "order_number", "OrderNumber", "orderNumber", "number", "name", "AmazonOrderId", "order_id")
		s.FinancialStatus = str(root, "financial_status", "payment_status", "paymentStatus", "PaymentStatus")
		s.FulfillmentStatus = str(root, "fulfillment_status", "fulfillmentStatus", "shipping_status")
		s.Total = str(root, "total_price", "total", "total_amount", "totalPrice", "TotalAmount", "OrderTotal.Amount", "grand_total", "payment.total_amount", "grandtotal.amount")
		s.CustomerEmail = str(root, "email", "customer.email", "billing.email", "buyer_email", "BuyerEmail", "BuyerInfo.BuyerEmail")
		s.TrackingNumber = str(root, "tracking_number", "fulfillments.0.tracking_number", "trackingNumber", "tracking.number", "shipping_tracking_number", "tracking_numbers.0")
		s.TrackingCompany = str(root, "tracking_company", "fulfillments.0.tracking_company", "carrier", "shipping_provider", "trackingCompany", "tracking.carrier")
	case domain.EventKindRefund:
		s.OrderExternalID = str(root, "order_id", "OrderId", "orderId", "AmazonOrderId", "order_number")
		s.Amount = str(root, "amount", "refund_amount", "refundAmount", "transactions.0.amount", "total", "refund_total.amount")
	}
	return s
}
