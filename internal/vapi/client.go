package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the voice platform's public API endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

// Client is a minimal authenticated HTTP client for the voice platform's
// call-listing API, used by the sync endpoint to pull call records that were
// missed as webhooks.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 25 * time.Second},
	}
}

// CallLogItem is one call record from the platform's list endpoint, reduced
// to the fields the pipeline consumes.
type CallLogItem struct {
	ID       string   `json:"id"`
	Customer Customer `json:"customer"`
	Artifact Artifact `json:"artifact"`
}

// ListCalls fetches the platform's recent call records.
func (c *Client) ListCalls(ctx context.Context) ([]CallLogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call", nil)
	if err != nil {
		return nil, fmt.Errorf("vapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vapi: list calls: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vapi: list calls returned %d: %s", resp.StatusCode, string(body))
	}

	var items []CallLogItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("vapi: decode call list: %w", err)
	}
	return items, nil
}
