package ecommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/domain/commerce"
)

const (
	// manualTokenRecheck bounds how long a manually issued token is served
	// from cache before the configuration is consulted again, so operator
	// rotation takes effect without a restart.
	manualTokenRecheck = 24 * time.Hour
	// tokenExpiryMargin is subtracted from the platform-declared lifetime
	// so a cached token is never presented moments before it expires.
	tokenExpiryMargin = 5 * time.Minute
)

// TokenManager resolves, caches and refreshes the bearer credential for
// the Trading-API platform. Resolution order, first match wins: the
// manually issued long-lived token, a refresh-token exchange, a
// client-credentials exchange. The manager is owned by whoever constructs
// the adapter and injected; there is no process-wide token state.
type TokenManager struct {
	config     *EbayConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	expiresAt   time.Time
	nonExpiring bool
}

// oauthTokenResponse is the token endpoint's success payload.
type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// NewTokenManager creates a token manager for the given platform config.
func NewTokenManager(config *EbayConfig, logger *zap.Logger) *TokenManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenManager{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// GetToken returns a valid bearer credential, serving from cache when
// possible.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expiresAt) {
		return m.token, nil
	}

	token, lifetime, nonExpiring, err := m.resolve(ctx)
	if err != nil {
		return "", err
	}

	m.token = token
	m.expiresAt = time.Now().Add(lifetime)
	m.nonExpiring = nonExpiring
	return token, nil
}

// Invalidate clears the cached credential. The fetch layer calls this
// exactly once after an upstream invalid/expired-credential error, forcing
// a single re-resolution.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.nonExpiring = false
}

// resolve walks the credential paths in order. Callers hold m.mu.
func (m *TokenManager) resolve(ctx context.Context) (token string, lifetime time.Duration, nonExpiring bool, err error) {
	// (a) manually issued long-lived token; never invalidated on a timer,
	// only re-checked so rotation is picked up
	if m.config.AuthToken != "" {
		return m.config.AuthToken, manualTokenRecheck, true, nil
	}

	// (b) refresh-token exchange
	if m.config.RefreshToken != "" {
		if m.config.AppID == "" || m.config.CertID == "" {
			return "", 0, false, fmt.Errorf("%w: %v", commerce.ErrPlatformNotConfigured, ErrEbayConfigMissingAppKeys)
		}
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", m.config.RefreshToken)
		resp, err := m.exchange(ctx, form)
		if err != nil {
			return "", 0, false, err
		}
		return resp.AccessToken, oauthLifetime(resp.ExpiresIn), false, nil
	}

	// (c) client-credentials exchange; application-only token, may be
	// rejected by the order APIs that require a user-scoped token
	if m.config.AppID != "" && m.config.CertID != "" {
		m.logger.Warn("No user token configured, falling back to client-credentials grant",
			zap.String("store", m.config.StoreName),
		)
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		form.Set("scope", "https://api.ebay.com/oauth/api_scope")
		resp, err := m.exchange(ctx, form)
		if err != nil {
			return "", 0, false, err
		}
		return resp.AccessToken, oauthLifetime(resp.ExpiresIn), false, nil
	}

	return "", 0, false, fmt.Errorf("%w: %v", commerce.ErrPlatformNotConfigured, ErrEbayConfigMissingCredentials)
}

// exchange performs one OAuth token request, retrying once on a transport
// failure.
func (m *TokenManager) exchange(ctx context.Context, form url.Values) (*oauthTokenResponse, error) {
	resp, err := m.doExchange(ctx, form)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	m.logger.Warn("Token exchange failed, retrying once", zap.Error(err))
	return m.doExchange(ctx, form)
}

func (m *TokenManager) doExchange(ctx context.Context, form url.Values) (*oauthTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to create token request: %w", err)
	}
	req.SetBasicAuth(m.config.AppID, m.config.CertID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", commerce.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEbayResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ebay: failed to read token response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: token endpoint HTTP %d", commerce.ErrPlatformAuthFailed, resp.StatusCode)
	}

	var tokenResp oauthTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: %v", commerce.ErrPlatformInvalidResponse, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", commerce.ErrPlatformInvalidResponse)
	}

	return &tokenResp, nil
}

// oauthLifetime converts a declared expires_in to a cache duration strictly
// below it.
func oauthLifetime(expiresIn int) time.Duration {
	lifetime := time.Duration(expiresIn) * time.Second
	if lifetime <= tokenExpiryMargin {
		// Implausibly short lifetime, cache for half of it
		return lifetime / 2
	}
	return lifetime - tokenExpiryMargin
}
