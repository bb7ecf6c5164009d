package ecommerce

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/domain/commerce"
)

const (
	// maxEbayResponseSize caps response reads at 10MB.
	maxEbayResponseSize = 10 * 1024 * 1024

	// ebayTimeFormat is the timestamp layout the Trading API expects in
	// request filters.
	ebayTimeFormat = "2006-01-02T15:04:05.000Z"
)

// EbayAdapter syncs one seller account through the Trading API: a single
// POST endpoint, call selection via headers, XML request and response
// bodies, page-number pagination. Implements commerce.Platform.
type EbayAdapter struct {
	config     *EbayConfig
	tokens     *TokenManager
	httpClient *http.Client
	logger     *zap.Logger
}

// ebayPage is one fetched page's outcome, consumed by the pagination loop.
type ebayPage struct {
	count      int
	totalPages int
	authError  bool
}

// NewEbayAdapter creates an adapter for the given seller account. A nil
// token manager gets a default one built from the same config.
func NewEbayAdapter(config *EbayConfig, tokens *TokenManager, logger *zap.Logger) (*EbayAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewTokenManager(config, logger)
	}
	return &EbayAdapter{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger.With(zap.String("platform", "ebay"), zap.String("store", config.StoreName)),
	}, nil
}

// Type returns the platform identifier.
func (a *EbayAdapter) Type() commerce.PlatformType {
	return commerce.PlatformTypeEbay
}

// StoreName returns the account label records are keyed under.
func (a *EbayAdapter) StoreName() string {
	return a.config.StoreName
}

// -----------------------------------------------------------------------
// Fetching
// -----------------------------------------------------------------------

// FetchOrders retrieves orders created inside the window via GetOrders.
// Records decoded before a failure are returned alongside the error.
func (a *EbayAdapter) FetchOrders(ctx context.Context, window commerce.SyncWindow) ([]commerce.Order, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	window = a.clampWindow(window)

	orders := make([]commerce.Order, 0)
	err := a.paginate(ctx, window.Historical, func(ctx context.Context, page int) (ebayPage, error) {
		request := &ebayGetOrdersRequest{
			ErrorLanguage:  "en_US",
			CreateTimeFrom: window.From.UTC().Format(ebayTimeFormat),
			CreateTimeTo:   window.To.UTC().Format(ebayTimeFormat),
			OrderRole:      "Seller",
			OrderStatus:    "All",
			DetailLevel:    "ReturnAll",
			Pagination: ebayPagination{
				EntriesPerPage: a.config.PageSize,
				PageNumber:     page,
			},
		}

		var response ebayGetOrdersResponse
		result, err := a.call(ctx, "GetOrders", request, &response, &response.ebayResponseHeader)
		if err != nil {
			return result, err
		}

		for i := range response.Orders {
			orders = append(orders, normalizeEbayOrder(&response.Orders[i], a.config.StoreName, a.config.DefaultCurrency))
		}
		result.count = len(response.Orders)
		result.totalPages = response.PaginationResult.TotalNumberOfPages
		return result, nil
	})

	a.logger.Info("fetched ebay orders", zap.Int("count", len(orders)))
	return orders, err
}

// FetchProducts retrieves listings started inside the window via
// GetSellerList. Records decoded before a failure are returned alongside
// the error.
func (a *EbayAdapter) FetchProducts(ctx context.Context, window commerce.SyncWindow) ([]commerce.Product, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	window = a.clampWindow(window)

	products := make([]commerce.Product, 0)
	err := a.paginate(ctx, window.Historical, func(ctx context.Context, page int) (ebayPage, error) {
		request := &ebayGetSellerListRequest{
			ErrorLanguage: "en_US",
			StartTimeFrom: window.From.UTC().Format(ebayTimeFormat),
			StartTimeTo:   window.To.UTC().Format(ebayTimeFormat),
			DetailLevel:   "ReturnAll",
			Pagination: ebayPagination{
				EntriesPerPage: a.config.PageSize,
				PageNumber:     page,
			},
		}

		var response ebayGetSellerListResponse
		result, err := a.call(ctx, "GetSellerList", request, &response, &response.ebayResponseHeader)
		if err != nil {
			return result, err
		}

		for i := range response.Items {
			products = append(products, normalizeEbayItem(&response.Items[i], a.config.StoreName))
		}
		result.count = len(response.Items)
		result.totalPages = response.PaginationResult.TotalNumberOfPages
		return result, nil
	})

	a.logger.Info("fetched ebay listings", zap.Int("count", len(products)))
	return products, err
}

// FetchCustomers returns an empty slice: the Trading API exposes no
// customer directory, buyers arrive embedded in their orders.
func (a *EbayAdapter) FetchCustomers(ctx context.Context, window commerce.SyncWindow) ([]commerce.Customer, error) {
	return []commerce.Customer{}, nil
}

// -----------------------------------------------------------------------
// Pagination and transport
// -----------------------------------------------------------------------

// paginate walks numbered pages until the reported last page, an empty
// page, or the safety valve. A credential rejection on the first page
// triggers at most one token refresh and restart; rejections on later
// pages abort the walk with whatever was already collected.
func (a *EbayAdapter) paginate(ctx context.Context, historical bool, fetch func(context.Context, int) (ebayPage, error)) error {
	maxPages := a.config.maxPages(historical)
	authRetried := false

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := fetch(ctx, page)
		if err != nil {
			if page == 1 && result.authError && !authRetried {
				authRetried = true
				a.logger.Warn("credential rejected, refreshing token and restarting", zap.Error(err))
				a.tokens.Invalidate()
				page = 0
				continue
			}
			return err
		}

		if result.count == 0 {
			return nil
		}
		if result.totalPages > 0 && page >= result.totalPages {
			return nil
		}
		if page >= maxPages {
			a.logger.Warn("page safety valve reached, stopping walk",
				zap.Int("pages", page),
				zap.Int("max_pages", maxPages))
			return nil
		}

		if err := sleepBetweenPages(ctx, a.config.PageDelay); err != nil {
			return err
		}
	}
}

// call posts one Trading API request and decodes the response envelope
// into out. header must point at out's embedded response header; a
// platform-level Errors block there becomes the returned error, with the
// auth flag set on the page result so the pagination loop can decide
// whether a restart applies.
func (a *EbayAdapter) call(ctx context.Context, callName string, request any, out any, header *ebayResponseHeader) (ebayPage, error) {
	token, err := a.tokens.GetToken(ctx)
	if err != nil {
		return ebayPage{}, err
	}

	body, err := xml.Marshal(request)
	if err != nil {
		return ebayPage{}, fmt.Errorf("%w: encoding %s request: %v", commerce.ErrPlatformRequestFailed, callName, err)
	}

	raw, err := a.post(ctx, callName, token, body)
	if err != nil {
		return ebayPage{}, err
	}

	if err := xml.Unmarshal(raw, out); err != nil {
		return ebayPage{}, fmt.Errorf("%w: decoding %s response: %v", commerce.ErrPlatformInvalidResponse, callName, err)
	}

	if apiErr := header.apiError(); apiErr != nil {
		result := ebayPage{authError: apiErr.IsAuthError()}
		if result.authError {
			return result, fmt.Errorf("%w: %v", commerce.ErrPlatformAuthFailed, apiErr)
		}
		return result, fmt.Errorf("%w: %v", commerce.ErrPlatformRequestFailed, apiErr)
	}
	return ebayPage{}, nil
}

func (a *EbayAdapter) post(ctx context.Context, callName, token string, body []byte) ([]byte, error) {
	payload := append([]byte(xml.Header), body...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s request: %v", commerce.ErrPlatformRequestFailed, callName, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("X-EBAY-API-SITEID", a.config.SiteID)
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", a.config.CompatibilityLevel)
	req.Header.Set("X-EBAY-API-IAF-TOKEN", token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", commerce.ErrPlatformUnavailable, callName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEbayResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", commerce.ErrPlatformInvalidResponse, callName, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s: status %d", commerce.ErrPlatformRateLimited, callName, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s: status %d", commerce.ErrPlatformAuthFailed, callName, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s: status %d: %s", commerce.ErrPlatformRequestFailed, callName, resp.StatusCode, truncateBody(raw))
	}

	return raw, nil
}

// clampWindow pulls the window start forward to the platform's maximum
// lookback; older orders are not queryable.
func (a *EbayAdapter) clampWindow(window commerce.SyncWindow) commerce.SyncWindow {
	if a.config.MaxLookbackDays <= 0 {
		return window
	}
	earliest := window.To.AddDate(0, 0, -a.config.MaxLookbackDays)
	if window.From.Before(earliest) {
		a.logger.Info("clamping window to platform lookback limit",
			zap.Time("requested_from", window.From),
			zap.Time("clamped_from", earliest))
		window.From = earliest
	}
	return window
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

var _ commerce.Platform = (*EbayAdapter)(nil)
