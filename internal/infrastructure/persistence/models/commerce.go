package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commercedash/backend/internal/domain/commerce"
)

// The three record tables share a composite unique index on
// (platform_type, store_name, native_id): the natural key upserts conflict
// on. Row CreatedAt is insert metadata and is never touched on conflict;
// SyncedAt is refreshed on every write, changed or not.

// OrderModel is the persistence model for a canonical order.
type OrderModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	PlatformType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_record_key,priority:1"`
	StoreName    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_record_key,priority:2"`
	NativeID     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_record_key,priority:3"`

	OrderNumber         string          `gorm:"type:varchar(100)"`
	TotalPrice          decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Currency            string          `gorm:"type:varchar(10)"`
	PlacedAt            time.Time       `gorm:"index"`
	FulfillmentStatus   string          `gorm:"type:varchar(50);not null"`
	FinancialStatus     string          `gorm:"type:varchar(50);not null"`
	BuyerUsername       string          `gorm:"type:varchar(255)"`
	BuyerEmail          string          `gorm:"type:varchar(255)"`
	ShippingAddressJSON string          `gorm:"type:jsonb;column:shipping_address"`
	LineItemsJSON       string          `gorm:"type:jsonb;column:line_items"`
	RawPayload          string          `gorm:"type:text"`

	SyncedAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "platform_orders"
}

// FromDomain populates the persistence model from a canonical order.
func (m *OrderModel) FromDomain(o *commerce.Order) {
	m.PlatformType = string(o.Key.PlatformType)
	m.StoreName = o.Key.StoreName
	m.NativeID = o.Key.NativeID
	m.OrderNumber = o.OrderNumber
	m.TotalPrice = o.TotalPrice
	m.Currency = o.Currency
	m.PlacedAt = o.CreatedAt
	m.FulfillmentStatus = o.FulfillmentStatus
	m.FinancialStatus = o.FinancialStatus
	m.BuyerUsername = o.BuyerUsername
	m.BuyerEmail = o.BuyerEmail
	m.ShippingAddressJSON = marshalJSON(o.ShippingAddress)
	m.LineItemsJSON = marshalJSON(o.LineItems)
	m.RawPayload = o.RawPayload
}

// ToDomain converts the persistence model to a canonical order.
func (m *OrderModel) ToDomain() *commerce.Order {
	order := &commerce.Order{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformType(m.PlatformType),
			StoreName:    m.StoreName,
			NativeID:     m.NativeID,
		},
		OrderNumber:       m.OrderNumber,
		TotalPrice:        m.TotalPrice,
		Currency:          m.Currency,
		CreatedAt:         m.PlacedAt,
		FulfillmentStatus: m.FulfillmentStatus,
		FinancialStatus:   m.FinancialStatus,
		BuyerUsername:     m.BuyerUsername,
		BuyerEmail:        m.BuyerEmail,
		LineItems:         make([]commerce.LineItem, 0),
		RawPayload:        m.RawPayload,
	}
	unmarshalJSON(m.ShippingAddressJSON, &order.ShippingAddress)
	unmarshalJSON(m.LineItemsJSON, &order.LineItems)
	return order
}

// OrderUpsertColumns are the columns rewritten when the natural key
// conflicts. The key columns, id and created_at are deliberately absent.
func OrderUpsertColumns() []string {
	return []string{
		"order_number",
		"total_price",
		"currency",
		"placed_at",
		"fulfillment_status",
		"financial_status",
		"buyer_username",
		"buyer_email",
		"shipping_address",
		"line_items",
		"raw_payload",
		"synced_at",
		"updated_at",
	}
}

// ProductModel is the persistence model for a canonical product.
type ProductModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	PlatformType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_products_record_key,priority:1"`
	StoreName    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_record_key,priority:2"`
	NativeID     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_products_record_key,priority:3"`

	Title        string           `gorm:"type:varchar(255)"`
	Description  string           `gorm:"type:text"`
	ProductType  string           `gorm:"type:varchar(100)"`
	Vendor       string           `gorm:"type:varchar(255)"`
	TagsJSON     string           `gorm:"type:jsonb;column:tags"`
	VariantsJSON string           `gorm:"type:jsonb;column:variants"`
	Cost         *decimal.Decimal `gorm:"type:numeric(20,4)"`
	RawPayload   string           `gorm:"type:text"`

	SyncedAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "platform_products"
}

// FromDomain populates the persistence model from a canonical product.
func (m *ProductModel) FromDomain(p *commerce.Product) {
	m.PlatformType = string(p.Key.PlatformType)
	m.StoreName = p.Key.StoreName
	m.NativeID = p.Key.NativeID
	m.Title = p.Title
	m.Description = p.Description
	m.ProductType = p.ProductType
	m.Vendor = p.Vendor
	m.TagsJSON = marshalJSON(p.Tags)
	m.VariantsJSON = marshalJSON(p.Variants)
	m.Cost = p.Cost
	m.RawPayload = p.RawPayload
}

// ToDomain converts the persistence model to a canonical product.
func (m *ProductModel) ToDomain() *commerce.Product {
	product := &commerce.Product{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformType(m.PlatformType),
			StoreName:    m.StoreName,
			NativeID:     m.NativeID,
		},
		Title:       m.Title,
		Description: m.Description,
		ProductType: m.ProductType,
		Vendor:      m.Vendor,
		Tags:        make([]string, 0),
		Variants:    make([]commerce.ProductVariant, 0),
		Cost:        m.Cost,
		RawPayload:  m.RawPayload,
	}
	unmarshalJSON(m.TagsJSON, &product.Tags)
	unmarshalJSON(m.VariantsJSON, &product.Variants)
	return product
}

func ProductUpsertColumns() []string {
	return []string{
		"title",
		"description",
		"product_type",
		"vendor",
		"tags",
		"variants",
		"cost",
		"raw_payload",
		"synced_at",
		"updated_at",
	}
}

// CustomerModel is the persistence model for a canonical customer.
type CustomerModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	PlatformType string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_customers_record_key,priority:1"`
	StoreName    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_customers_record_key,priority:2"`
	NativeID     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_customers_record_key,priority:3"`

	FirstName     string          `gorm:"type:varchar(255)"`
	LastName      string          `gorm:"type:varchar(255)"`
	Email         string          `gorm:"type:varchar(255);index"`
	OrdersCount   int             `gorm:"not null;default:0"`
	TotalSpent    decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	TagsJSON      string          `gorm:"type:jsonb;column:tags"`
	AddressesJSON string          `gorm:"type:jsonb;column:addresses"`
	RawPayload    string          `gorm:"type:text"`

	SyncedAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "platform_customers"
}

// FromDomain populates the persistence model from a canonical customer.
func (m *CustomerModel) FromDomain(c *commerce.Customer) {
	m.PlatformType = string(c.Key.PlatformType)
	m.StoreName = c.Key.StoreName
	m.NativeID = c.Key.NativeID
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.Email = c.Email
	m.OrdersCount = c.OrdersCount
	m.TotalSpent = c.TotalSpent
	m.TagsJSON = marshalJSON(c.Tags)
	m.AddressesJSON = marshalJSON(c.Addresses)
	m.RawPayload = c.RawPayload
}

// ToDomain converts the persistence model to a canonical customer.
func (m *CustomerModel) ToDomain() *commerce.Customer {
	customer := &commerce.Customer{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformType(m.PlatformType),
			StoreName:    m.StoreName,
			NativeID:     m.NativeID,
		},
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Email:       m.Email,
		OrdersCount: m.OrdersCount,
		TotalSpent:  m.TotalSpent,
		Tags:        make([]string, 0),
		Addresses:   make([]commerce.Address, 0),
		RawPayload:  m.RawPayload,
	}
	unmarshalJSON(m.TagsJSON, &customer.Tags)
	unmarshalJSON(m.AddressesJSON, &customer.Addresses)
	return customer
}

func CustomerUpsertColumns() []string {
	return []string{
		"first_name",
		"last_name",
		"email",
		"orders_count",
		"total_spent",
		"tags",
		"addresses",
		"raw_payload",
		"synced_at",
		"updated_at",
	}
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON(data string, v any) {
	if data == "" {
		return
	}
	// Best effort, a corrupt column leaves the zero value
	_ = json.Unmarshal([]byte(data), v)
}
