package ecommerce

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercedash/backend/internal/domain/commerce"
)

func testEbayConfig(serverURL string) *EbayConfig {
	cfg := NewEbayConfig("app-id", "cert-id")
	cfg.AuthToken = "v^manual-token"
	cfg.APIURL = serverURL
	cfg.PageDelay = time.Millisecond
	return cfg
}

func requestPageNumber(t *testing.T, r *http.Request) int {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req struct {
		Pagination ebayPagination `xml:"Pagination"`
	}
	require.NoError(t, xml.Unmarshal(body, &req))
	return req.Pagination.PageNumber
}

func ebayOrdersPage(orderID string, totalPages int) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<GetOrdersResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Success</Ack>
  <PaginationResult><TotalNumberOfPages>%d</TotalNumberOfPages></PaginationResult>
  <OrderArray>
    <Order>
      <OrderID>%s</OrderID>
      <OrderStatus>Completed</OrderStatus>
      <CreatedTime>2024-06-01T10:00:00.000Z</CreatedTime>
      <Total currencyID="USD">25.50</Total>
      <BuyerUserID>buyer_one</BuyerUserID>
      <CheckoutStatus><Status>Complete</Status></CheckoutStatus>
      <ShippingAddress>
        <Street1>1 Main St</Street1>
        <CityName>Berlin</CityName>
        <StateOrProvince>BE</StateOrProvince>
        <CountryName>Germany</CountryName>
        <PostalCode>10115</PostalCode>
      </ShippingAddress>
      <TransactionArray>
        <Transaction>
          <OrderLineItemID>%s-1</OrderLineItemID>
          <QuantityPurchased>2</QuantityPurchased>
          <TransactionPrice currencyID="USD">12.75</TransactionPrice>
          <Buyer><Email>buyer@example.com</Email></Buyer>
          <Item><ItemID>555</ItemID><Title>Vintage Radio</Title><SKU>VR-1</SKU></Item>
        </Transaction>
      </TransactionArray>
    </Order>
  </OrderArray>
</GetOrdersResponse>`, totalPages, orderID, orderID)
}

func ebayFailurePage(errorCode, shortMessage string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<GetOrdersResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Failure</Ack>
  <Errors>
    <ShortMessage>%s</ShortMessage>
    <ErrorCode>%s</ErrorCode>
    <SeverityCode>Error</SeverityCode>
  </Errors>
</GetOrdersResponse>`, shortMessage, errorCode)
}

func TestEbayAdapter_FetchOrders_PageNumberPagination(t *testing.T) {
	var pages []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetOrders", r.Header.Get("X-EBAY-API-CALL-NAME"))
		assert.Equal(t, "0", r.Header.Get("X-EBAY-API-SITEID"))
		assert.Equal(t, "1193", r.Header.Get("X-EBAY-API-COMPATIBILITY-LEVEL"))
		assert.Equal(t, "v^manual-token", r.Header.Get("X-EBAY-API-IAF-TOKEN"))

		page := requestPageNumber(t, r)
		pages = append(pages, page)
		fmt.Fprint(w, ebayOrdersPage(fmt.Sprintf("110-%03d", page), 2))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	orders, err := adapter.FetchOrders(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, []int{1, 2}, pages)

	o := orders[0]
	assert.Equal(t, commerce.PlatformTypeEbay, o.Key.PlatformType)
	assert.Equal(t, "ebay", o.Key.StoreName)
	assert.Equal(t, "110-001", o.Key.NativeID)
	assert.Equal(t, "25.5", o.TotalPrice.String())
	assert.Equal(t, "USD", o.Currency)
	assert.Equal(t, "shipped", o.FulfillmentStatus)
	assert.Equal(t, "paid", o.FinancialStatus)
	assert.Equal(t, "buyer_one", o.BuyerUsername)
	assert.Equal(t, "buyer@example.com", o.BuyerEmail)
	assert.Equal(t, "Berlin", o.ShippingAddress.City)
	require.Len(t, o.LineItems, 1)
	assert.Equal(t, "110-001-1", o.LineItems[0].NativeItemID)
	assert.Equal(t, 2, o.LineItems[0].Quantity)
	assert.Equal(t, "12.75", o.LineItems[0].UnitPrice)
	assert.NotEmpty(t, o.RawPayload)
}

func TestEbayAdapter_FetchOrders_AuthErrorRestartsOnce(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount == 1 {
			fmt.Fprint(w, ebayFailurePage("931", "Auth token is invalid"))
			return
		}
		fmt.Fprint(w, ebayOrdersPage("110-001", 1))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	orders, err := adapter.FetchOrders(context.Background(), testWindow())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 2, requestCount)
}

func TestEbayAdapter_FetchOrders_PersistentAuthErrorAborts(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		fmt.Fprint(w, ebayFailurePage("21916984", "IAF token expired"))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	_, err = adapter.FetchOrders(context.Background(), testWindow())
	assert.ErrorIs(t, err, commerce.ErrPlatformAuthFailed)
	// One restart, never more
	assert.Equal(t, 2, requestCount)
}

func TestEbayAdapter_FetchOrders_SemanticErrorAbortsWithPartials(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount == 1 {
			fmt.Fprint(w, ebayOrdersPage("110-001", 3))
			return
		}
		fmt.Fprint(w, ebayFailurePage("10007", "Internal error to the application"))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	orders, err := adapter.FetchOrders(context.Background(), testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, commerce.ErrPlatformRequestFailed)
	// The first page survives; no restart for non-credential failures
	assert.Len(t, orders, 1)
	assert.Equal(t, 2, requestCount)
}

func TestEbayAdapter_FetchOrders_AuthErrorPastFirstPageAborts(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount == 1 {
			fmt.Fprint(w, ebayOrdersPage("110-001", 2))
			return
		}
		fmt.Fprint(w, ebayFailurePage("932", "Auth token hard expired"))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	orders, err := adapter.FetchOrders(context.Background(), testWindow())
	assert.ErrorIs(t, err, commerce.ErrPlatformAuthFailed)
	assert.Len(t, orders, 1)
	assert.Equal(t, 2, requestCount)
}

func TestEbayAdapter_FetchOrders_ClampsLookback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req ebayGetOrdersRequest
		require.NoError(t, xml.Unmarshal(body, &req))

		from, err := time.Parse(ebayTimeFormat, req.CreateTimeFrom)
		require.NoError(t, err)
		to, err := time.Parse(ebayTimeFormat, req.CreateTimeTo)
		require.NoError(t, err)
		assert.Equal(t, to.AddDate(0, 0, -90), from)

		fmt.Fprint(w, ebayOrdersPage("110-001", 1))
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := commerce.HistoricalWindow(now, 365, 0)

	_, err = adapter.FetchOrders(context.Background(), window)
	require.NoError(t, err)
}

func TestEbayAdapter_FetchProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GetSellerList", r.Header.Get("X-EBAY-API-CALL-NAME"))
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<GetSellerListResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Success</Ack>
  <PaginationResult><TotalNumberOfPages>1</TotalNumberOfPages></PaginationResult>
  <ItemArray>
    <Item>
      <ItemID>555</ItemID>
      <Title>Vintage Radio</Title>
      <Description>Working condition</Description>
      <SKU>VR-1</SKU>
      <Quantity>10</Quantity>
      <PrimaryCategory><CategoryName>Electronics</CategoryName></PrimaryCategory>
      <SellingStatus>
        <CurrentPrice currencyID="USD">49.99</CurrentPrice>
        <QuantitySold>3</QuantitySold>
        <ListingStatus>Active</ListingStatus>
      </SellingStatus>
      <Seller><UserID>radio_seller</UserID></Seller>
    </Item>
  </ItemArray>
</GetSellerListResponse>`)
	}))
	defer server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	products, err := adapter.FetchProducts(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "555", p.Key.NativeID)
	assert.Equal(t, "Vintage Radio", p.Title)
	assert.Equal(t, "Electronics", p.ProductType)
	assert.Equal(t, "radio_seller", p.Vendor)
	assert.Nil(t, p.Cost)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, "49.99", p.Variants[0].Price.String())
	assert.Equal(t, 7, p.Variants[0].InventoryQuantity)
	assert.True(t, p.Variants[0].Available)
}

func TestEbayAdapter_FetchCustomers_Empty(t *testing.T) {
	adapter, err := NewEbayAdapter(testEbayConfig("http://unused"), nil, nil)
	require.NoError(t, err)

	customers, err := adapter.FetchCustomers(context.Background(), testWindow())
	require.NoError(t, err)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}

func TestEbayAdapter_FetchOrders_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	adapter, err := NewEbayAdapter(testEbayConfig(server.URL), nil, nil)
	require.NoError(t, err)

	_, err = adapter.FetchOrders(context.Background(), testWindow())
	assert.ErrorIs(t, err, commerce.ErrPlatformUnavailable)
}

func TestEbayAmount_FallbackChain(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantAmount   string
		wantCurrency string
	}{
		{
			name:         "inline with attribute",
			payload:      `<Total currencyID="EUR">12.30</Total>`,
			wantAmount:   "12.3",
			wantCurrency: "EUR",
		},
		{
			name:         "nested value and currency",
			payload:      `<Total><Value>8.00</Value><Currency>GBP</Currency></Total>`,
			wantAmount:   "8",
			wantCurrency: "GBP",
		},
		{
			name:         "inline without currency",
			payload:      `<Total>5.00</Total>`,
			wantAmount:   "5",
			wantCurrency: "USD",
		},
		{
			name:         "malformed value",
			payload:      `<Total currencyID="USD">n/a</Total>`,
			wantAmount:   "0",
			wantCurrency: "USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var amount ebayAmount
			require.NoError(t, xml.Unmarshal([]byte(tt.payload), &amount))
			assert.Equal(t, tt.wantAmount, amount.Amount())
			assert.Equal(t, tt.wantCurrency, amount.Currency("USD"))
		})
	}
}

func TestEbayAPIError_IsAuthError(t *testing.T) {
	tests := []struct {
		name string
		errs []ebayResponseError
		want bool
	}{
		{name: "code 931", errs: []ebayResponseError{{ErrorCode: "931"}}, want: true},
		{name: "iaf message", errs: []ebayResponseError{{ErrorCode: "99", ShortMessage: "Invalid IAF token"}}, want: true},
		{name: "hard expired", errs: []ebayResponseError{{ErrorCode: "99", LongMessage: "Token is hard expired."}}, want: true},
		{name: "unrelated", errs: []ebayResponseError{{ErrorCode: "10007", ShortMessage: "Internal error"}}, want: false},
		{name: "empty", errs: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := &ebayAPIError{Ack: "Failure", Errors: tt.errs}
			assert.Equal(t, tt.want, apiErr.IsAuthError())
		})
	}
}

func TestMapEbayStatuses(t *testing.T) {
	assert.Equal(t, "shipped", mapEbayFulfillmentStatus(&ebayOrder{ShippedTime: "2024-06-01T10:00:00.000Z"}))
	assert.Equal(t, "shipped", mapEbayFulfillmentStatus(&ebayOrder{OrderStatus: "Completed"}))
	assert.Equal(t, "cancelled", mapEbayFulfillmentStatus(&ebayOrder{OrderStatus: "Cancelled"}))
	assert.Equal(t, commerce.DefaultOrderStatus, mapEbayFulfillmentStatus(&ebayOrder{}))
	assert.Equal(t, "active", mapEbayFulfillmentStatus(&ebayOrder{OrderStatus: "Active"}))

	assert.Equal(t, "paid", mapEbayFinancialStatus(ebayCheckoutStatus{Status: "Complete"}))
	assert.Equal(t, "paid", mapEbayFinancialStatus(ebayCheckoutStatus{PaymentStatus: "NoPaymentFailure"}))
	assert.Equal(t, commerce.DefaultOrderStatus, mapEbayFinancialStatus(ebayCheckoutStatus{Status: "Incomplete"}))
}
