package signals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/models"
)

// WeatherProvider fetches the current weather reading for the location.
type WeatherProvider interface {
	Fetch(ctx context.Context) (*models.WeatherSignal, error)
}

// TransitProvider fetches the current transit conditions for the location.
type TransitProvider interface {
	Fetch(ctx context.Context) (*models.TransitSignal, error)
}

// FootTrafficProvider fetches the current pedestrian volume reading.
type FootTrafficProvider interface {
	Fetch(ctx context.Context) (*models.FootTrafficSignal, error)
}

// httpClient is the shared request helper for the three provider sidecars.
type httpClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func newHTTPClient(cfg config.SignalProviderConfig) *httpClient {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (c *httpClient) getJSON(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("signal provider error (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v + 0.5)
}
