// Package source defines the asset-source capability the engine fetches
// skyboxes through, plus the HTTP implementation used in production. The
// engine treats every transport failure uniformly as ErrUnavailable; the
// wire details stay in here.
package source

import (
	"context"
	"errors"
)

// ErrUnavailable is returned for any asset-source failure: unreachable host,
// bad status, unknown asset, malformed manifest.
var ErrUnavailable = errors.New("asset source unavailable")

// AssetInfo describes one asset the source can deliver. DeclaredHash is the
// hex SHA-256 of the payload when the source publishes one; it may be empty,
// in which case the hash computed over the downloaded bytes is authoritative.
type AssetInfo struct {
	ID           string `json:"id"`
	DeclaredHash string `json:"sha256,omitempty"`
	SizeBytes    int64  `json:"sizeBytes,omitempty"`
}

// Source lists and fetches downloadable assets.
type Source interface {
	// ListAvailable returns every asset the source offers.
	ListAvailable(ctx context.Context) ([]AssetInfo, error)
	// Fetch downloads the raw payload for one asset.
	Fetch(ctx context.Context, assetID string) ([]byte, error)
}
