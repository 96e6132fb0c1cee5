package restcountries

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

const defaultBaseURL = "https://restcountries.com"

const fieldList = "name,capital,population,area,currencies,languages,flags,timezones,region,subregion"

// Client fetches country profiles from a REST-Countries compatible
// service. Profiles change rarely; callers may treat them as fresh for
// a day where the other upstreams get minutes.
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

// Profile fetches the country record for a 2-letter code. The upstream
// answers either a single object or a one-element list; both are
// normalized to a single object here.
func (c *Client) Profile(ctx context.Context, countryCode string) (dashboard.CountryData, error) {
	endpoint := fmt.Sprintf("%s/v3.1/alpha/%s?fields=%s", c.baseURL, url.PathEscape(countryCode), fieldList)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dashboard.CountryData{}, fmt.Errorf("build country request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dashboard.CountryData{}, apperrors.Wrap("upstream_unavailable", "country request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return dashboard.CountryData{}, apperrors.Wrap("upstream_unavailable",
			fmt.Sprintf("country request error: status=%d body=%s", resp.StatusCode, string(payload)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dashboard.CountryData{}, apperrors.Wrap("upstream_unavailable", "read country response", err)
	}

	country, err := decodeCountry(body)
	if err != nil {
		return dashboard.CountryData{}, apperrors.Wrap("upstream_unavailable", "decode country response", err)
	}
	return country, nil
}

func decodeCountry(body []byte) (dashboard.CountryData, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return dashboard.CountryData{}, fmt.Errorf("empty country response")
	}

	if trimmed[0] == '[' {
		var many []dashboard.CountryData
		if err := json.Unmarshal([]byte(trimmed), &many); err != nil {
			return dashboard.CountryData{}, err
		}
		if len(many) == 0 {
			return dashboard.CountryData{}, fmt.Errorf("country response list is empty")
		}
		return many[0], nil
	}

	var one dashboard.CountryData
	if err := json.Unmarshal([]byte(trimmed), &one); err != nil {
		return dashboard.CountryData{}, err
	}
	return one, nil
}
