package feature

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// HTTPOracle talks to an embedding service over HTTP. The service exposes a
// single endpoint accepting base64 image payloads and returning a raw float
// vector.
type HTTPOracle struct {
	client   *resty.Client
	endpoint string
	model    string
}

// HTTPOracleConfig holds configuration for the HTTP oracle client.
type HTTPOracleConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// NewHTTPOracle creates a new HTTP-backed embedding oracle.
func NewHTTPOracle(cfg *HTTPOracleConfig) *HTTPOracle {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")

	return &HTTPOracle{
		client:   client,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded image bytes
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Detail    string    `json:"detail,omitempty"`
}

// Embed sends the image to the embedding service and returns the raw
// vector. Dimension validation is the adapter's responsibility, not the
// client's.
func (o *HTTPOracle) Embed(ctx context.Context, image []byte) ([]float32, error) {
	req := embedRequest{
		Model: o.model,
		Image: base64.StdEncoding.EncodeToString(image),
	}

	var resp embedResponse
	httpResp, err := o.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(o.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding service error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding service error: status %d", httpResp.StatusCode())
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding, nil
}
