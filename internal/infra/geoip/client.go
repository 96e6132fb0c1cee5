package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnurm/ip2data/internal/domain/dashboard"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

const defaultBaseURL = "http://ip-api.com"

// fieldList pins the upstream response shape; the fan-out step depends
// on lat, lon, timezone and countryCode being present.
const fieldList = "status,message,country,countryCode,region,regionName,city,zip,lat,lon,timezone,isp,org,as,query"

// Client resolves an IP against an ip-api compatible geolocation
// service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client.
func NewClient(baseURL string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Locate fetches the geolocation record for an IP. A reply whose status
// field is not "success" fails with the upstream's own message, coded
// geolocation_rejected so the HTTP layer can surface it verbatim.
func (c *Client) Locate(ctx context.Context, ip string) (dashboard.GeoData, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", c.baseURL, url.PathEscape(ip), fieldList)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dashboard.GeoData{}, fmt.Errorf("build geolocation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dashboard.GeoData{}, apperrors.Wrap("upstream_unavailable", "geolocation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return dashboard.GeoData{}, apperrors.Wrap("upstream_unavailable",
			fmt.Sprintf("geolocation request error: status=%d body=%s", resp.StatusCode, string(payload)), nil)
	}

	var geo dashboard.GeoData
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return dashboard.GeoData{}, apperrors.Wrap("upstream_unavailable", "decode geolocation response", err)
	}

	if geo.Status != "success" {
		message := geo.Message
		if message == "" {
			message = "geolocation lookup rejected"
		}
		return dashboard.GeoData{}, apperrors.Wrap("geolocation_rejected", message, nil)
	}
	return geo, nil
}
