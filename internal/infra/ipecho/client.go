package ipecho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.ipify.org"

// Client asks an ipify-compatible echo service for the caller's public
// address. It is only consulted when the inbound headers expose a
// private or loopback address.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(url, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PublicIP returns the echoed address.
func (c *Client) PublicIP(ctx context.Context) (string, error) {
	endpoint := c.baseURL + "?format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build ip echo request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ip echo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("ip echo request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode ip echo response: %w", err)
	}
	if strings.TrimSpace(raw.IP) == "" {
		return "", errors.New("ip echo response missing ip")
	}
	return raw.IP, nil
}
