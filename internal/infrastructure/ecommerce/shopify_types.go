package ecommerce

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/commercedash/backend/internal/domain/commerce"
)

// ---------------------------------------------------------------------------
// REST payload shapes
// ---------------------------------------------------------------------------

// Pages are decoded in two steps: the envelope keeps each record as raw
// JSON so the canonical record can preserve the upstream payload verbatim,
// and a malformed record is skipped without losing the rest of the page.

type shopifyOrdersPage struct {
	Orders []json.RawMessage `json:"orders"`
}

type shopifyProductsPage struct {
	Products []json.RawMessage `json:"products"`
}

type shopifyCustomersPage struct {
	Customers []json.RawMessage `json:"customers"`
}

type shopifyOrder struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	OrderNumber       int64            `json:"order_number"`
	TotalPrice        string           `json:"total_price"`
	Currency          string           `json:"currency"`
	CreatedAt         time.Time        `json:"created_at"`
	FulfillmentStatus string           `json:"fulfillment_status"`
	FinancialStatus   string           `json:"financial_status"`
	Email             string           `json:"email"`
	Customer          *shopifyCustomer `json:"customer"`
	ShippingAddress   *shopifyAddress  `json:"shipping_address"`
	LineItems         []shopifyLine    `json:"line_items"`
}

type shopifyLine struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	SKU      string `json:"sku"`
}

type shopifyAddress struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

type shopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	ProductType string           `json:"product_type"`
	Vendor      string           `json:"vendor"`
	Tags        string           `json:"tags"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	ID                int64  `json:"id"`
	SKU               string `json:"sku"`
	Price             string `json:"price"`
	InventoryQuantity int    `json:"inventory_quantity"`
	InventoryPolicy   string `json:"inventory_policy"`
}

type shopifyCustomer struct {
	ID          int64            `json:"id"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Email       string           `json:"email"`
	OrdersCount int              `json:"orders_count"`
	TotalSpent  string           `json:"total_spent"`
	Tags        string           `json:"tags"`
	Addresses   []shopifyAddress `json:"addresses"`
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeShopifyOrder maps one REST order payload to the canonical shape.
// Missing optional fields get defined defaults; the raw payload is kept
// verbatim.
func normalizeShopifyOrder(raw json.RawMessage, storeName string) (commerce.Order, error) {
	var o shopifyOrder
	if err := json.Unmarshal(raw, &o); err != nil {
		return commerce.Order{}, err
	}

	order := commerce.Order{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformTypeShopify,
			StoreName:    storeName,
			NativeID:     strconv.FormatInt(o.ID, 10),
		},
		OrderNumber:       o.Name,
		TotalPrice:        ParseDecimal(o.TotalPrice),
		Currency:          o.Currency,
		CreatedAt:         o.CreatedAt,
		FulfillmentStatus: defaultStatus(o.FulfillmentStatus),
		FinancialStatus:   defaultStatus(o.FinancialStatus),
		BuyerEmail:        o.Email,
		LineItems:         make([]commerce.LineItem, 0, len(o.LineItems)),
		RawPayload:        string(raw),
	}
	if order.OrderNumber == "" && o.OrderNumber != 0 {
		order.OrderNumber = strconv.FormatInt(o.OrderNumber, 10)
	}
	if o.Customer != nil {
		if order.BuyerEmail == "" {
			order.BuyerEmail = o.Customer.Email
		}
		order.BuyerUsername = strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	}
	if o.ShippingAddress != nil {
		order.ShippingAddress = normalizeShopifyAddress(*o.ShippingAddress)
	}
	for _, line := range o.LineItems {
		qty := line.Quantity
		if qty < 0 {
			qty = 0
		}
		order.LineItems = append(order.LineItems, commerce.LineItem{
			NativeItemID: strconv.FormatInt(line.ID, 10),
			Title:        line.Title,
			Quantity:     qty,
			UnitPrice:    ParseDecimal(line.Price).String(),
			SKU:          line.SKU,
		})
	}

	return order, nil
}

// normalizeShopifyProduct maps one REST product payload to the canonical
// shape. The REST product surface does not expose unit cost, so Cost stays
// nil.
func normalizeShopifyProduct(raw json.RawMessage, storeName string) (commerce.Product, error) {
	var p shopifyProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return commerce.Product{}, err
	}

	product := commerce.Product{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformTypeShopify,
			StoreName:    storeName,
			NativeID:     strconv.FormatInt(p.ID, 10),
		},
		Title:       p.Title,
		Description: p.BodyHTML,
		ProductType: p.ProductType,
		Vendor:      p.Vendor,
		Tags:        splitTags(p.Tags),
		Variants:    make([]commerce.ProductVariant, 0, len(p.Variants)),
		RawPayload:  string(raw),
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, commerce.ProductVariant{
			NativeVariantID:   strconv.FormatInt(v.ID, 10),
			SKU:               v.SKU,
			Price:             ParseDecimal(v.Price),
			InventoryQuantity: v.InventoryQuantity,
			Available:         v.InventoryQuantity > 0 || v.InventoryPolicy == "continue",
		})
	}

	return product, nil
}

// normalizeShopifyCustomer maps one REST customer payload to the canonical
// shape. Guest customers carry no email.
func normalizeShopifyCustomer(raw json.RawMessage, storeName string) (commerce.Customer, error) {
	var c shopifyCustomer
	if err := json.Unmarshal(raw, &c); err != nil {
		return commerce.Customer{}, err
	}

	customer := commerce.Customer{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformTypeShopify,
			StoreName:    storeName,
			NativeID:     strconv.FormatInt(c.ID, 10),
		},
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		OrdersCount: c.OrdersCount,
		TotalSpent:  ParseDecimal(c.TotalSpent),
		Tags:        splitTags(c.Tags),
		Addresses:   make([]commerce.Address, 0, len(c.Addresses)),
		RawPayload:  string(raw),
	}
	for _, a := range c.Addresses {
		customer.Addresses = append(customer.Addresses, normalizeShopifyAddress(a))
	}

	return customer, nil
}

func normalizeShopifyAddress(a shopifyAddress) commerce.Address {
	return commerce.Address{
		Street:     a.Address1,
		City:       a.City,
		Region:     a.Province,
		Country:    a.Country,
		PostalCode: a.Zip,
	}
}

// defaultStatus substitutes the defined default for an absent status.
func defaultStatus(s string) string {
	if s == "" {
		return commerce.DefaultOrderStatus
	}
	return s
}

// splitTags converts the platform's comma-separated tag string to a list.
func splitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
