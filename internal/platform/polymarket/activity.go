// Package polymarket reads the public trade activity of Polymarket
// addresses from the data API.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// DefaultDataHost is the public data API root.
const DefaultDataHost = "https://data-api.polymarket.com"

// ActivityClient implements domain.OriginFeed over GET /activity.
type ActivityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewActivityClient creates a client. A nil httpClient gets a 30s timeout.
func NewActivityClient(baseURL string, httpClient *http.Client) *ActivityClient {
	if baseURL == "" {
		baseURL = DefaultDataHost
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ActivityClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Activity returns the most recent trades made by address, newest first as
// served. Numbers are kept as json.Number so ids and sizes survive intact.
func (a *ActivityClient) Activity(ctx context.Context, address string, limit int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("user", address)
	params.Set("type", "TRADE")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := a.doGet(ctx, "/activity?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket: activity %s: %w", address, err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var trades []map[string]any
	if err := dec.Decode(&trades); err != nil {
		return nil, fmt.Errorf("polymarket: decode activity: %w", err)
	}

	for _, t := range trades {
		if w, _ := t["proxyWallet"].(string); w == "" {
			t["proxyWallet"] = address
		}
	}
	return trades, nil
}

func (a *ActivityClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

var _ domain.OriginFeed = (*ActivityClient)(nil)
