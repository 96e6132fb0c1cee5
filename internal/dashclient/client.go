// Package dashclient fetches the merged dashboard payload while
// driving the cosmetic load-stage sequence.
package dashclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elnurm/ip2data/internal/domain/dashboard"
	"github.com/elnurm/ip2data/pkg/loadstage"
)

// Client calls the aggregation endpoint of an ip2data server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	stages     *loadstage.Controller
}

// New builds a dashboard client. stages may be nil when no progress
// display is wanted.
func New(baseURL string, stages *loadstage.Controller) *Client {
	if stages == nil {
		stages = loadstage.NewController(loadstage.DefaultInterval, nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stages:     stages,
	}
}

// Stages exposes the controller, mainly for displays and tests.
func (c *Client) Stages() *loadstage.Controller {
	return c.stages
}

// Fetch issues one aggregation request. The stage timer starts when the
// request goes out and is cancelled as soon as it settles; calling
// Fetch again models the manual refresh/retry action.
func (c *Client) Fetch(ctx context.Context) (dashboard.DashboardData, error) {
	c.stages.Begin()

	data, err := c.fetchOnce(ctx)
	if err != nil {
		c.stages.Fail(err.Error())
		return dashboard.DashboardData{}, err
	}
	c.stages.Succeed()
	return data, nil
}

func (c *Client) fetchOnce(ctx context.Context) (dashboard.DashboardData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/all", nil)
	if err != nil {
		return dashboard.DashboardData{}, fmt.Errorf("build dashboard request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dashboard.DashboardData{}, fmt.Errorf("dashboard request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dashboard.DashboardData{}, decodeError(resp)
	}

	var data dashboard.DashboardData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return dashboard.DashboardData{}, fmt.Errorf("decode dashboard response: %w", err)
	}
	return data, nil
}

func decodeError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error.Message != "" {
		return fmt.Errorf("dashboard request rejected: %s", body.Error.Message)
	}
	return fmt.Errorf("dashboard request rejected: status=%d", resp.StatusCode)
}
