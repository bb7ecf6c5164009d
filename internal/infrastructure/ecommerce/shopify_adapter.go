package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/domain/commerce"
)

// maxShopifyResponseSize limits the response body size to prevent memory
// exhaustion (10MB max response).
const maxShopifyResponseSize = 10 * 1024 * 1024

// ShopifyAdapter implements the commerce.Platform interface for one
// REST-platform store. Pagination uses the opaque page_info cursor the
// platform returns in the Link response header; the walk terminates when no
// next link is present.
type ShopifyAdapter struct {
	config     *ShopifyConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewShopifyAdapter creates a new adapter for the given store.
func NewShopifyAdapter(config *ShopifyConfig, logger *zap.Logger) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ShopifyAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// Type returns the platform type this adapter handles.
func (a *ShopifyAdapter) Type() commerce.PlatformType {
	return commerce.PlatformTypeShopify
}

// StoreName returns the configured store label.
func (a *ShopifyAdapter) StoreName() string {
	return a.config.StoreName
}

// ---------------------------------------------------------------------------
// Fetch Operations
// ---------------------------------------------------------------------------

// FetchOrders retrieves all orders created within the window. On error the
// orders accumulated before the failure are returned together with it.
func (a *ShopifyAdapter) FetchOrders(ctx context.Context, window commerce.SyncWindow) ([]commerce.Order, error) {
	query := a.windowQuery(window)
	query.Set("status", "any")

	orders := make([]commerce.Order, 0)
	err := a.paginate(ctx, "orders", query, window.Historical, func(body []byte) (int, error) {
		var page shopifyOrdersPage
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", commerce.ErrPlatformInvalidResponse, err)
		}
		for _, raw := range page.Orders {
			order, err := normalizeShopifyOrder(raw, a.config.StoreName)
			if err != nil {
				a.logger.Warn("Skipping malformed order payload",
					zap.String("store", a.config.StoreName),
					zap.Error(err),
				)
				continue
			}
			orders = append(orders, order)
		}
		return len(page.Orders), nil
	})
	return orders, err
}

// FetchProducts retrieves the store's product catalog. Products are pulled
// without a creation-time filter: inventory and price changes do not touch
// the creation timestamp, so a windowed pull would miss them.
func (a *ShopifyAdapter) FetchProducts(ctx context.Context, window commerce.SyncWindow) ([]commerce.Product, error) {
	products := make([]commerce.Product, 0)
	err := a.paginate(ctx, "products", url.Values{}, window.Historical, func(body []byte) (int, error) {
		var page shopifyProductsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", commerce.ErrPlatformInvalidResponse, err)
		}
		for _, raw := range page.Products {
			product, err := normalizeShopifyProduct(raw, a.config.StoreName)
			if err != nil {
				a.logger.Warn("Skipping malformed product payload",
					zap.String("store", a.config.StoreName),
					zap.Error(err),
				)
				continue
			}
			products = append(products, product)
		}
		return len(page.Products), nil
	})
	return products, err
}

// FetchCustomers retrieves all customers created within the window.
func (a *ShopifyAdapter) FetchCustomers(ctx context.Context, window commerce.SyncWindow) ([]commerce.Customer, error) {
	customers := make([]commerce.Customer, 0)
	err := a.paginate(ctx, "customers", a.windowQuery(window), window.Historical, func(body []byte) (int, error) {
		var page shopifyCustomersPage
		if err := json.Unmarshal(body, &page); err != nil {
			return 0, fmt.Errorf("%w: %v", commerce.ErrPlatformInvalidResponse, err)
		}
		for _, raw := range page.Customers {
			customer, err := normalizeShopifyCustomer(raw, a.config.StoreName)
			if err != nil {
				a.logger.Warn("Skipping malformed customer payload",
					zap.String("store", a.config.StoreName),
					zap.Error(err),
				)
				continue
			}
			customers = append(customers, customer)
		}
		return len(page.Customers), nil
	})
	return customers, err
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

// paginate walks one list endpoint to exhaustion. The first request carries
// the caller's query; follow-up requests carry only the page_info cursor,
// as the platform rejects any other filter alongside it. decodePage
// consumes one response body and returns the number of records on the page.
func (a *ShopifyAdapter) paginate(ctx context.Context, resource string, firstQuery url.Values, historical bool, decodePage func([]byte) (int, error)) error {
	maxPages := a.config.maxPages(historical)
	pageInfo := ""

	for page := 1; page <= maxPages; page++ {
		// Cooperative cancellation between pages, never mid-request
		if err := ctx.Err(); err != nil {
			return err
		}

		query := url.Values{}
		query.Set("limit", strconv.Itoa(a.config.PageSize))
		if pageInfo == "" {
			for k, vs := range firstQuery {
				for _, v := range vs {
					query.Add(k, v)
				}
			}
		} else {
			query.Set("page_info", pageInfo)
		}

		body, next, err := a.fetchPage(ctx, resource, query)
		if err != nil {
			return err
		}

		count, err := decodePage(body)
		if err != nil {
			return err
		}

		if next == "" || count == 0 {
			return nil
		}
		pageInfo = next

		// Rate-limit courtesy delay, skipped after the final page
		if err := sleepBetweenPages(ctx, a.config.PageDelay); err != nil {
			return err
		}
	}

	a.logger.Warn("Page walk stopped at safety valve",
		zap.String("store", a.config.StoreName),
		zap.String("resource", resource),
		zap.Int("max_pages", maxPages),
	)
	return nil
}

// fetchPage performs one GET against a list endpoint and returns the body
// plus the next-page cursor extracted from the Link header.
func (a *ShopifyAdapter) fetchPage(ctx context.Context, resource string, query url.Values) ([]byte, string, error) {
	endpoint := url.URL{
		Scheme:   "https",
		Host:     a.config.Domain,
		Path:     fmt.Sprintf("/admin/api/%s/%s.json", a.config.APIVersion, resource),
		RawQuery: query.Encode(),
	}
	// Test servers inject a plain-http host
	if strings.Contains(a.config.Domain, "://") {
		parsed, err := url.Parse(a.config.Domain)
		if err == nil {
			endpoint.Scheme = parsed.Scheme
			endpoint.Host = parsed.Host
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", commerce.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxShopifyResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("shopify: failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, "", fmt.Errorf("%w: HTTP 429", commerce.ErrPlatformRateLimited)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, "", fmt.Errorf("%w: HTTP %d", commerce.ErrPlatformAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("%w: HTTP %d", commerce.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, parseNextPageInfo(resp.Header.Get("Link")), nil
}

// parseNextPageInfo extracts the page_info cursor of the rel="next" link
// from a Link header. Returns "" when there is no next page.
func parseNextPageInfo(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

// windowQuery builds the creation-time filter for the first page.
func (a *ShopifyAdapter) windowQuery(window commerce.SyncWindow) url.Values {
	query := url.Values{}
	if !window.From.IsZero() {
		query.Set("created_at_min", window.From.UTC().Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		query.Set("created_at_max", window.To.UTC().Format(time.RFC3339))
	}
	return query
}

// sleepBetweenPages waits out the inter-page delay, returning early if the
// context is cancelled.
func sleepBetweenPages(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure ShopifyAdapter implements commerce.Platform
var _ commerce.Platform = (*ShopifyAdapter)(nil)
