package ecommerce

import (
	"errors"
	"time"
)

// EbayConfig holds configuration for the Trading-API platform. Credential
// resolution tries, in order: the manually issued long-lived AuthToken, a
// RefreshToken exchange, then a client-credentials exchange with
// AppID/CertID. At least one path must be configured for the platform to
// sync.
type EbayConfig struct {
	// StoreName labels records synced from this account.
	StoreName string
	// AppID and CertID are the application credentials (OAuth client).
	AppID  string
	CertID string
	// AuthToken is a manually issued long-lived user token, optional.
	AuthToken string
	// RefreshToken enables the refresh-token grant, optional.
	RefreshToken string
	// APIURL is the Trading API endpoint (single POST endpoint).
	APIURL string
	// TokenURL is the OAuth token endpoint.
	TokenURL string
	// SiteID selects the marketplace site.
	SiteID string
	// CompatibilityLevel is the Trading API schema version.
	CompatibilityLevel string
	// DefaultCurrency substitutes a missing currency on amount fields.
	DefaultCurrency string
	// MaxLookbackDays caps the historical window; the platform rejects
	// order queries further back.
	MaxLookbackDays int
	// PageSize is the entries-per-page requested from the API.
	PageSize int
	// PageDelay is the minimum delay between page requests.
	PageDelay time.Duration
	// MaxPagesIncremental and MaxPagesHistorical bound a page walk.
	MaxPagesIncremental int
	MaxPagesHistorical  int
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

const (
	// EbayProductionAPIURL is the production Trading API endpoint
	EbayProductionAPIURL = "https://api.ebay.com/ws/api.dll"
	// EbayProductionTokenURL is the production OAuth token endpoint
	EbayProductionTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
)

// Errors for eBay configuration
var (
	ErrEbayConfigMissingCredentials = errors.New("ebay: no credential path configured (auth token, refresh token or app keys required)")
	ErrEbayConfigMissingAppKeys     = errors.New("ebay: app id and cert id are required for OAuth token exchange")
)

// NewEbayConfig creates a platform configuration with defaults.
func NewEbayConfig(appID, certID string) *EbayConfig {
	return &EbayConfig{
		StoreName:           "ebay",
		AppID:               appID,
		CertID:              certID,
		APIURL:              EbayProductionAPIURL,
		TokenURL:            EbayProductionTokenURL,
		SiteID:              "0",
		CompatibilityLevel:  "1193",
		DefaultCurrency:     "USD",
		MaxLookbackDays:     90,
		PageSize:            100,
		PageDelay:           500 * time.Millisecond,
		MaxPagesIncremental: 50,
		MaxPagesHistorical:  500,
		TimeoutSeconds:      30,
	}
}

// Validate validates the configuration and fills defaults. A missing
// credential path is not fatal here: GetToken reports it at resolution
// time, so one misconfigured platform is skipped instead of failing boot.
func (c *EbayConfig) Validate() error {
	if c.StoreName == "" {
		c.StoreName = "ebay"
	}
	if c.APIURL == "" {
		c.APIURL = EbayProductionAPIURL
	}
	if c.TokenURL == "" {
		c.TokenURL = EbayProductionTokenURL
	}
	if c.SiteID == "" {
		c.SiteID = "0"
	}
	if c.CompatibilityLevel == "" {
		c.CompatibilityLevel = "1193"
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "USD"
	}
	if c.MaxLookbackDays <= 0 {
		c.MaxLookbackDays = 90
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		c.PageSize = 100
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

// HasCredentialPath reports whether at least one token resolution path is
// configured.
func (c *EbayConfig) HasCredentialPath() bool {
	return c.AuthToken != "" || c.RefreshToken != "" || (c.AppID != "" && c.CertID != "")
}

// maxPages returns the page-count safety valve for the given window kind.
func (c *EbayConfig) maxPages(historical bool) int {
	if historical {
		return c.MaxPagesHistorical
	}
	return c.MaxPagesIncremental
}
