package commerce

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Natural Key
// ---------------------------------------------------------------------------

// RecordKey is the natural key identifying a canonical record. The same
// logical entity captured from two platforms produces two independent
// records; records are never reconciled across platforms.
type RecordKey struct {
	PlatformType PlatformType
	StoreName    string
	NativeID     string
}

// IsZero returns true if any key component is missing.
func (k RecordKey) IsZero() bool {
	return k.PlatformType == "" || k.StoreName == "" || k.NativeID == ""
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// DefaultOrderStatus substitutes a missing fulfillment or payment status.
const DefaultOrderStatus = "pending"

// Address is a structured shipping address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// LineItem is a single position of an order.
type LineItem struct {
	// NativeItemID is the line item id on the platform.
	NativeItemID string `json:"native_item_id"`
	// Title is the listed product title.
	Title string `json:"title"`
	// Quantity is the ordered quantity, never negative.
	Quantity int `json:"quantity"`
	// UnitPrice is the per-unit price as a decimal string.
	UnitPrice string `json:"unit_price"`
	// SKU is the seller SKU, empty when the platform does not expose one.
	SKU string `json:"sku,omitempty"`
}

// Order is the canonical order record.
type Order struct {
	Key RecordKey

	// OrderNumber is the human-facing order number, which may differ from
	// the native id.
	OrderNumber string
	// TotalPrice is the monetary order total.
	TotalPrice decimal.Decimal
	// Currency is the ISO currency code of TotalPrice.
	Currency string
	// CreatedAt is when the order was created on the platform.
	CreatedAt time.Time
	// FulfillmentStatus is the shipping state, DefaultOrderStatus when the
	// platform reports none.
	FulfillmentStatus string
	// FinancialStatus is the payment state, DefaultOrderStatus when the
	// platform reports none.
	FinancialStatus string
	// BuyerUsername is the buyer's platform login, optional.
	BuyerUsername string
	// BuyerEmail is the buyer's email, optional (guest checkouts).
	BuyerEmail string
	// ShippingAddress is the structured delivery address.
	ShippingAddress Address
	// LineItems are the order positions in upstream order.
	LineItems []LineItem
	// RawPayload is the upstream payload preserved verbatim (JSON).
	RawPayload string
}

// ---------------------------------------------------------------------------
// Product
// ---------------------------------------------------------------------------

// ProductVariant is one purchasable variant of a product.
type ProductVariant struct {
	// NativeVariantID is the variant id on the platform.
	NativeVariantID string `json:"native_variant_id"`
	// SKU is the seller SKU.
	SKU string `json:"sku,omitempty"`
	// Price is the variant unit price.
	Price decimal.Decimal `json:"price"`
	// InventoryQuantity is the on-hand quantity.
	InventoryQuantity int `json:"inventory_quantity"`
	// Available indicates the variant can currently be purchased.
	Available bool `json:"available"`
}

// Product is the canonical product record.
type Product struct {
	Key RecordKey

	Title       string
	Description string
	ProductType string
	Vendor      string
	Tags        []string
	Variants    []ProductVariant
	// Cost is the optional unit cost; nil when the platform does not
	// expose cost data.
	Cost *decimal.Decimal
	// RawPayload is the upstream payload preserved verbatim (JSON).
	RawPayload string
}

// ---------------------------------------------------------------------------
// Customer
// ---------------------------------------------------------------------------

// Customer is the canonical customer record. OrdersCount and TotalSpent are
// the platform's own aggregates, never recomputed across platforms.
type Customer struct {
	Key RecordKey

	FirstName string
	LastName  string
	// Email is optional; guest orders produce customers without one.
	Email       string
	OrdersCount int
	TotalSpent  decimal.Decimal
	Tags        []string
	Addresses   []Address
	// RawPayload is the upstream payload preserved verbatim (JSON).
	RawPayload string
}
