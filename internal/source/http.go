package source

import (
	"context"
	"encoding/json"
	"fmt"

	"resty.dev/v3"
)

// manifestPath and payload layout mirror the upstream distribution repo: a
// single JSON manifest next to a directory of per-asset zip archives.
const (
	manifestPath  = "/manifest.json"
	payloadFormat = "/skies/%s.zip"
)

// HTTPSource fetches assets from a static HTTP distribution base.
type HTTPSource struct {
	client *resty.Client
}

// NewHTTPSource creates a Source rooted at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		client: resty.New().SetBaseURL(baseURL),
	}
}

// Close releases the underlying HTTP client.
func (s *HTTPSource) Close() error {
	return s.client.Close()
}

// ListAvailable downloads and parses the source manifest.
func (s *HTTPSource) ListAvailable(ctx context.Context) ([]AssetInfo, error) {
	resp, err := s.client.R().SetContext(ctx).Get(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %v: %w", err, ErrUnavailable)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("manifest request returned %d: %w", resp.StatusCode(), ErrUnavailable)
	}

	var manifest struct {
		Assets []AssetInfo `json:"assets"`
	}
	if err := json.Unmarshal(resp.Bytes(), &manifest); err != nil {
		return nil, fmt.Errorf("malformed manifest: %v: %w", err, ErrUnavailable)
	}
	return manifest.Assets, nil
}

// Fetch downloads the archive payload for one asset.
func (s *HTTPSource) Fetch(ctx context.Context, assetID string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(fmt.Sprintf(payloadFormat, assetID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %v: %w", assetID, err, ErrUnavailable)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s returned %d: %w", assetID, resp.StatusCode(), ErrUnavailable)
	}
	return resp.Bytes(), nil
}
