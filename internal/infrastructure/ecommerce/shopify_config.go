package ecommerce

import (
	"errors"
	"time"
)

// ShopifyConfig holds the configuration of one REST-platform store. The
// platform authenticates with a static per-store access token; there is no
// token lifecycle to manage.
type ShopifyConfig struct {
	// StoreName labels records synced from this store.
	StoreName string
	// Domain is the store's API host, e.g. "acme.myshopify.com".
	Domain string
	// AccessToken is the static admin API secret for this store.
	AccessToken string
	// APIVersion selects the REST API version path segment.
	APIVersion string
	// PageSize is the per-page record limit requested from the API.
	PageSize int
	// PageDelay is the minimum delay between page requests.
	PageDelay time.Duration
	// MaxPagesIncremental and MaxPagesHistorical bound a page walk. They
	// are safety valves against a misbehaving upstream, not business rules.
	MaxPagesIncremental int
	MaxPagesHistorical  int
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// Errors for Shopify configuration
var (
	ErrShopifyConfigMissingStoreName = errors.New("shopify: store name is required")
	ErrShopifyConfigMissingDomain    = errors.New("shopify: store domain is required")
	ErrShopifyConfigMissingToken     = errors.New("shopify: access token is required")
)

// NewShopifyConfig creates a store configuration with defaults.
func NewShopifyConfig(storeName, domain, accessToken string) *ShopifyConfig {
	return &ShopifyConfig{
		StoreName:           storeName,
		Domain:              domain,
		AccessToken:         accessToken,
		APIVersion:          "2024-01",
		PageSize:            250,
		PageDelay:           500 * time.Millisecond,
		MaxPagesIncremental: 50,
		MaxPagesHistorical:  500,
		TimeoutSeconds:      30,
	}
}

// Validate validates the store configuration and fills defaults.
func (c *ShopifyConfig) Validate() error {
	if c.StoreName == "" {
		return ErrShopifyConfigMissingStoreName
	}
	if c.Domain == "" {
		return ErrShopifyConfigMissingDomain
	}
	if c.AccessToken == "" {
		return ErrShopifyConfigMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = "2024-01"
	}
	if c.PageSize <= 0 || c.PageSize > 250 {
		c.PageSize = 250
	}
	if c.PageDelay <= 0 {
		c.PageDelay = 500 * time.Millisecond
	}
	if c.MaxPagesIncremental <= 0 {
		c.MaxPagesIncremental = 50
	}
	if c.MaxPagesHistorical <= 0 {
		c.MaxPagesHistorical = 500
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// maxPages returns the page-count safety valve for the given window kind.
func (c *ShopifyConfig) maxPages(historical bool) int {
	if historical {
		return c.MaxPagesHistorical
	}
	return c.MaxPagesIncremental
}
