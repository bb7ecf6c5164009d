package ecommerce

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/commercedash/backend/internal/domain/commerce"
)

// ---------------------------------------------------------------------------
// Request payloads
// ---------------------------------------------------------------------------

// ebayPagination is the request-side pagination block.
type ebayPagination struct {
	EntriesPerPage int `xml:"EntriesPerPage"`
	PageNumber     int `xml:"PageNumber"`
}

// ebayGetOrdersRequest is the GetOrders call body.
type ebayGetOrdersRequest struct {
	XMLName        xml.Name       `xml:"urn:ebay:apis:eBLBaseComponents GetOrdersRequest"`
	ErrorLanguage  string         `xml:"ErrorLanguage"`
	CreateTimeFrom string         `xml:"CreateTimeFrom"`
	CreateTimeTo   string         `xml:"CreateTimeTo"`
	OrderRole      string         `xml:"OrderRole"`
	OrderStatus    string         `xml:"OrderStatus"`
	DetailLevel    string         `xml:"DetailLevel"`
	Pagination     ebayPagination `xml:"Pagination"`
}

// ebayGetSellerListRequest is the GetSellerList call body.
type ebayGetSellerListRequest struct {
	XMLName       xml.Name       `xml:"urn:ebay:apis:eBLBaseComponents GetSellerListRequest"`
	ErrorLanguage string         `xml:"ErrorLanguage"`
	StartTimeFrom string         `xml:"StartTimeFrom"`
	StartTimeTo   string         `xml:"StartTimeTo"`
	DetailLevel   string         `xml:"DetailLevel"`
	Pagination    ebayPagination `xml:"Pagination"`
}

// ---------------------------------------------------------------------------
// Response payloads
// ---------------------------------------------------------------------------

// ebayAmount accepts both amount shapes observed upstream: an inline scalar
// with an optional currencyID attribute, and a nested Value/Currency pair.
// The fallback chain is fixed: nested value wins over inline text, nested
// currency over the attribute, and a missing currency falls back to the
// platform default at normalization time.
type ebayAmount struct {
	Raw            string `xml:",chardata"`
	CurrencyAttr   string `xml:"currencyID,attr"`
	NestedValue    string `xml:"Value"`
	NestedCurrency string `xml:"Currency"`
}

// Amount returns the monetary value as a decimal string, "0" on malformed
// input.
func (a ebayAmount) Amount() string {
	if a.NestedValue != "" {
		return ParseDecimal(strings.TrimSpace(a.NestedValue)).String()
	}
	return ParseDecimal(strings.TrimSpace(a.Raw)).String()
}

// Currency returns the currency code, def when the payload carries none.
func (a ebayAmount) Currency(def string) string {
	if a.NestedCurrency != "" {
		return a.NestedCurrency
	}
	if a.CurrencyAttr != "" {
		return a.CurrencyAttr
	}
	return def
}

// ebayResponseError is one entry of a platform-level Errors block.
type ebayResponseError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
	ErrorCode    string `xml:"ErrorCode"`
	SeverityCode string `xml:"SeverityCode"`
}

// ebayAPIError is a semantic error the platform embedded in a 200 response.
type ebayAPIError struct {
	Ack    string
	Errors []ebayResponseError
}

// Error implements the error interface.
func (e *ebayAPIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("ebay: ack %s with no error detail", e.Ack)
	}
	first := e.Errors[0]
	msg := first.LongMessage
	if msg == "" {
		msg = first.ShortMessage
	}
	return fmt.Sprintf("ebay: %s - %s", first.ErrorCode, msg)
}

// ebayAuthErrorCodes are the upstream codes signalling an invalid or
// expired credential.
var ebayAuthErrorCodes = map[string]bool{
	"931":      true, // auth token invalid
	"932":      true, // auth token hard expired
	"16110":    true, // token does not match application
	"17470":    true, // invalid user token
	"21916984": true, // IAF token expired
}

// IsAuthError reports whether any entry indicates an invalid/expired
// credential.
func (e *ebayAPIError) IsAuthError() bool {
	for _, entry := range e.Errors {
		if ebayAuthErrorCodes[entry.ErrorCode] {
			return true
		}
		msg := strings.ToLower(entry.ShortMessage + " " + entry.LongMessage)
		if strings.Contains(msg, "iaf token") || strings.Contains(msg, "auth token is invalid") || strings.Contains(msg, "hard expired") {
			return true
		}
	}
	return false
}

// ebayResponseHeader carries the fields common to every Trading API
// response.
type ebayResponseHeader struct {
	Ack    string              `xml:"Ack"`
	Errors []ebayResponseError `xml:"Errors"`
}

// apiError surfaces the Errors block before any entity extraction, nil when
// the call succeeded. Warning-severity entries alongside a Success ack are
// tolerated.
func (h *ebayResponseHeader) apiError() *ebayAPIError {
	if h.Ack == "Success" || h.Ack == "Warning" {
		return nil
	}
	return &ebayAPIError{Ack: h.Ack, Errors: h.Errors}
}

type ebayPaginationResult struct {
	TotalNumberOfPages   int `xml:"TotalNumberOfPages"`
	TotalNumberOfEntries int `xml:"TotalNumberOfEntries"`
}

// ebayGetOrdersResponse is the GetOrders response envelope.
type ebayGetOrdersResponse struct {
	XMLName xml.Name `xml:"GetOrdersResponse"`
	ebayResponseHeader
	PaginationResult ebayPaginationResult `xml:"PaginationResult"`
	Orders           []ebayOrder          `xml:"OrderArray>Order"`
}

// ebayGetSellerListResponse is the GetSellerList response envelope.
type ebayGetSellerListResponse struct {
	XMLName xml.Name `xml:"GetSellerListResponse"`
	ebayResponseHeader
	PaginationResult ebayPaginationResult `xml:"PaginationResult"`
	Items            []ebayItem           `xml:"ItemArray>Item"`
}

type ebayOrder struct {
	OrderID        string              `xml:"OrderID" json:"order_id"`
	OrderStatus    string              `xml:"OrderStatus" json:"order_status"`
	CreatedTime    string              `xml:"CreatedTime" json:"created_time"`
	ShippedTime    string              `xml:"ShippedTime" json:"shipped_time,omitempty"`
	Total          ebayAmount          `xml:"Total" json:"total"`
	BuyerUserID    string              `xml:"BuyerUserID" json:"buyer_user_id"`
	CheckoutStatus ebayCheckoutStatus  `xml:"CheckoutStatus" json:"checkout_status"`
	Shipping       ebayShippingAddress `xml:"ShippingAddress" json:"shipping_address"`
	Transactions   []ebayTransaction   `xml:"TransactionArray>Transaction" json:"transactions"`
}

type ebayCheckoutStatus struct {
	Status        string `xml:"Status" json:"status"`
	PaymentStatus string `xml:"eBayPaymentStatus" json:"payment_status"`
}

type ebayShippingAddress struct {
	Name            string `xml:"Name" json:"name"`
	Street1         string `xml:"Street1" json:"street1"`
	CityName        string `xml:"CityName" json:"city_name"`
	StateOrProvince string `xml:"StateOrProvince" json:"state_or_province"`
	CountryName     string `xml:"CountryName" json:"country_name"`
	PostalCode      string `xml:"PostalCode" json:"postal_code"`
}

type ebayTransaction struct {
	OrderLineItemID   string     `xml:"OrderLineItemID" json:"order_line_item_id"`
	QuantityPurchased string     `xml:"QuantityPurchased" json:"quantity_purchased"`
	TransactionPrice  ebayAmount `xml:"TransactionPrice" json:"transaction_price"`
	Buyer             ebayBuyer  `xml:"Buyer" json:"buyer"`
	Item              ebayHeld   `xml:"Item" json:"item"`
}

type ebayBuyer struct {
	Email string `xml:"Email" json:"email"`
}

type ebayHeld struct {
	ItemID string `xml:"ItemID" json:"item_id"`
	Title  string `xml:"Title" json:"title"`
	SKU    string `xml:"SKU" json:"sku,omitempty"`
}

type ebayItem struct {
	ItemID          string             `xml:"ItemID" json:"item_id"`
	Title           string             `xml:"Title" json:"title"`
	Description     string             `xml:"Description" json:"description"`
	SKU             string             `xml:"SKU" json:"sku,omitempty"`
	Quantity        string             `xml:"Quantity" json:"quantity"`
	PrimaryCategory ebayCategory       `xml:"PrimaryCategory" json:"primary_category"`
	SellingStatus   ebaySellingStatus  `xml:"SellingStatus" json:"selling_status"`
	Seller          ebaySellerIdentity `xml:"Seller" json:"seller"`
}

type ebayCategory struct {
	CategoryName string `xml:"CategoryName" json:"category_name"`
}

type ebaySellingStatus struct {
	CurrentPrice  ebayAmount `xml:"CurrentPrice" json:"current_price"`
	QuantitySold  string     `xml:"QuantitySold" json:"quantity_sold"`
	ListingStatus string     `xml:"ListingStatus" json:"listing_status"`
}

type ebaySellerIdentity struct {
	UserID string `xml:"UserID" json:"user_id"`
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeEbayOrder maps one Trading API order to the canonical shape.
func normalizeEbayOrder(o *ebayOrder, storeName, defaultCurrency string) commerce.Order {
	order := commerce.Order{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformTypeEbay,
			StoreName:    storeName,
			NativeID:     o.OrderID,
		},
		OrderNumber:       o.OrderID,
		TotalPrice:        ParseDecimal(o.Total.Amount()),
		Currency:          o.Total.Currency(defaultCurrency),
		CreatedAt:         parseEbayTime(o.CreatedTime),
		FulfillmentStatus: mapEbayFulfillmentStatus(o),
		FinancialStatus:   mapEbayFinancialStatus(o.CheckoutStatus),
		BuyerUsername:     o.BuyerUserID,
		ShippingAddress: commerce.Address{
			Street:     o.Shipping.Street1,
			City:       o.Shipping.CityName,
			Region:     o.Shipping.StateOrProvince,
			Country:    o.Shipping.CountryName,
			PostalCode: o.Shipping.PostalCode,
		},
		LineItems: make([]commerce.LineItem, 0, len(o.Transactions)),
	}

	for _, tx := range o.Transactions {
		if order.BuyerEmail == "" && tx.Buyer.Email != "" && tx.Buyer.Email != "Invalid Request" {
			order.BuyerEmail = tx.Buyer.Email
		}
		order.LineItems = append(order.LineItems, commerce.LineItem{
			NativeItemID: lineItemID(tx),
			Title:        tx.Item.Title,
			Quantity:     ParseInt(tx.QuantityPurchased),
			UnitPrice:    tx.TransactionPrice.Amount(),
			SKU:          tx.Item.SKU,
		})
	}

	// Preserve the source payload for forward compatibility
	if rawBytes, err := json.Marshal(o); err == nil {
		order.RawPayload = string(rawBytes)
	}

	return order
}

// normalizeEbayItem maps one listing to the canonical product shape. A
// listing is flat, so it becomes a product with a single variant; the
// platform exposes no unit cost, Cost stays nil.
func normalizeEbayItem(item *ebayItem, storeName string) commerce.Product {
	product := commerce.Product{
		Key: commerce.RecordKey{
			PlatformType: commerce.PlatformTypeEbay,
			StoreName:    storeName,
			NativeID:     item.ItemID,
		},
		Title:       item.Title,
		Description: item.Description,
		ProductType: item.PrimaryCategory.CategoryName,
		Vendor:      item.Seller.UserID,
		Tags:        []string{},
		Variants: []commerce.ProductVariant{
			{
				NativeVariantID:   item.ItemID,
				SKU:               item.SKU,
				Price:             ParseDecimal(item.SellingStatus.CurrentPrice.Amount()),
				InventoryQuantity: remainingQuantity(item),
				Available:         item.SellingStatus.ListingStatus == "Active",
			},
		},
	}

	if rawBytes, err := json.Marshal(item); err == nil {
		product.RawPayload = string(rawBytes)
	}

	return product
}

// lineItemID prefers the explicit line item id, falling back to the item id.
func lineItemID(tx ebayTransaction) string {
	if tx.OrderLineItemID != "" {
		return tx.OrderLineItemID
	}
	return tx.Item.ItemID
}

// remainingQuantity derives on-hand stock from listed minus sold.
func remainingQuantity(item *ebayItem) int {
	remaining := ParseInt(item.Quantity) - ParseInt(item.SellingStatus.QuantitySold)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// mapEbayFulfillmentStatus derives the canonical shipping state.
func mapEbayFulfillmentStatus(o *ebayOrder) string {
	if o.ShippedTime != "" {
		return "shipped"
	}
	switch o.OrderStatus {
	case "Completed", "Shipped":
		return "shipped"
	case "Cancelled":
		return "cancelled"
	case "":
		return commerce.DefaultOrderStatus
	default:
		return strings.ToLower(o.OrderStatus)
	}
}

// mapEbayFinancialStatus derives the canonical payment state.
func mapEbayFinancialStatus(cs ebayCheckoutStatus) string {
	if cs.Status == "Complete" {
		return "paid"
	}
	if cs.PaymentStatus == "NoPaymentFailure" {
		return "paid"
	}
	return commerce.DefaultOrderStatus
}

// parseEbayTime parses the platform's ISO8601 timestamps, zero time on
// malformed input.
func parseEbayTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
