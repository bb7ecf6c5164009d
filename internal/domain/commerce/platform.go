package commerce

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("commerce: platform not configured")
	ErrPlatformUnavailable     = errors.New("commerce: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("commerce: platform request failed")
	ErrPlatformInvalidResponse = errors.New("commerce: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("commerce: platform authentication failed")
	ErrPlatformRateLimited     = errors.New("commerce: platform rate limited")

	// Sync run errors
	ErrSyncAlreadyRunning = errors.New("commerce: a sync run is already in progress")
)

// ---------------------------------------------------------------------------
// PlatformType
// ---------------------------------------------------------------------------

// PlatformType identifies the kind of external commerce system a record
// came from.
type PlatformType string

const (
	// PlatformTypeShopify is the REST-style store platform. Multiple stores
	// may be configured, each with its own domain and access token.
	PlatformTypeShopify PlatformType = "shopify"
	// PlatformTypeEbay is the Trading-API-style XML platform. A single
	// seller account is configured per deployment.
	PlatformTypeEbay PlatformType = "ebay"
)

// IsValid returns true if the platform type is known.
func (t PlatformType) IsValid() bool {
	switch t {
	case PlatformTypeShopify, PlatformTypeEbay:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformType.
func (t PlatformType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// Platform Port Interface
// ---------------------------------------------------------------------------

// Platform is the port interface one upstream source implements. Concrete
// adapters live in the infrastructure layer.
//
// Fetch methods walk the upstream list endpoint to exhaustion for the given
// window. On failure they return whatever was accumulated before the error
// together with a non-nil error: partial results are never discarded, and
// callers must consume the slice even when err != nil.
type Platform interface {
	// Type returns the platform type this adapter handles.
	Type() PlatformType

	// StoreName identifies the seller account within the platform. For
	// single-account platforms this is a fixed label.
	StoreName() string

	// FetchOrders retrieves all orders created within the window.
	FetchOrders(ctx context.Context, window SyncWindow) ([]Order, error)

	// FetchProducts retrieves all products. Platforms without a
	// creation-time filter on products ignore the window.
	FetchProducts(ctx context.Context, window SyncWindow) ([]Product, error)

	// FetchCustomers retrieves all customers created within the window.
	// Platforms that do not expose a customer directory return an empty
	// slice and no error.
	FetchCustomers(ctx context.Context, window SyncWindow) ([]Customer, error)
}

// ---------------------------------------------------------------------------
// RecordStore Port Interface
// ---------------------------------------------------------------------------

// RecordStore is the persistence port the orchestrator writes through.
// Each batch call upserts records one by one: a single record's failure is
// collected and does not stop the batch. The returned count is the number
// of records durably written.
type RecordStore interface {
	UpsertOrders(ctx context.Context, orders []Order) (int, []error)
	UpsertProducts(ctx context.Context, products []Product) (int, []error)
	UpsertCustomers(ctx context.Context, customers []Customer) (int, []error)
}
