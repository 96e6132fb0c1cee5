// Package conductorclient is the chat-side counterpart of the
// conductor backend: it owns the session id, recovers exactly once from
// session expiry, and keeps a map view in sync with returned stops.
package conductorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

// MapView is the map widget the client annotates. Implementations must
// tolerate being called with an empty stop list.
type MapView interface {
	SetUserLocation(lat, lng float64)
	ShowStops(stops []MapPoint)
}

// MapPoint is one marker on the map.
type MapPoint struct {
	Name           string
	Latitude       float64
	Longitude      float64
	DistanceMeters float64
}

// NopMapView discards all map updates.
type NopMapView struct{}

func (NopMapView) SetUserLocation(float64, float64) {}
func (NopMapView) ShowStops([]MapPoint)             {}

// Client holds the single-owner session state described by the backend
// contract. It is not safe for concurrent use; the UI loop that owns it
// is expected to be single threaded.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mapView    MapView
	logger     *slog.Logger

	sessionID    string
	latitude     *float64
	longitude    *float64
	nearestStops []conductor.Stop
}

// New builds a client for the given backend base URL.
func New(baseURL string, mapView MapView, logger *slog.Logger) *Client {
	if mapView == nil {
		mapView = NopMapView{}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		mapView:    mapView,
		logger:     logger.With("component", "conductor.client"),
	}
}

// Suggestions returns the fixed chips shown under the greeting.
func (c *Client) Suggestions() []string {
	return append([]string(nil), conductor.Suggestions...)
}

// SessionID exposes the current session token, empty when no session
// is active.
func (c *Client) SessionID() string {
	return c.sessionID
}

// StartSession opens a session, optionally seeded with coordinates, and
// plots the returned nearest stops.
func (c *Client) StartSession(ctx context.Context, lat, lng *float64) (string, error) {
	req := conductor.StartRequest{Latitude: lat, Longitude: lng}
	var resp conductor.StartResponse
	status, err := c.post(ctx, "/api/session/start", req, &resp)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("session start failed: status=%d", status)
	}

	c.sessionID = resp.SessionID
	c.latitude = lat
	c.longitude = lng
	c.nearestStops = resp.NearestStops
	if lat != nil && lng != nil {
		c.mapView.SetUserLocation(*lat, *lng)
	}
	if len(resp.NearestStops) > 0 {
		c.mapView.ShowStops(stopPoints(resp.NearestStops))
	}
	return resp.Greeting, nil
}

// Send posts one user message. On the session-expired signal it
// silently restarts the session with the last known coordinates and
// replays the unchanged message exactly once; a second expiry is an
// error. Any other failure is returned as-is without touching session
// state.
func (c *Client) Send(ctx context.Context, message string) (conductor.ChatResponse, error) {
	resp, expired, err := c.sendOnce(ctx, message)
	if err != nil {
		return conductor.ChatResponse{}, err
	}
	if expired {
		c.logger.Info("session expired, restarting once")
		if _, err := c.StartSession(ctx, c.latitude, c.longitude); err != nil {
			return conductor.ChatResponse{}, fmt.Errorf("session restart failed: %w", err)
		}
		resp, expired, err = c.sendOnce(ctx, message)
		if err != nil {
			return conductor.ChatResponse{}, err
		}
		if expired {
			return conductor.ChatResponse{}, fmt.Errorf("session expired again after restart")
		}
	}

	c.augmentMap(ctx, resp)
	return resp, nil
}

// UpdateLocation records a fresh position and recenters the map. When a
// session is active it also pushes the coordinates to the server and
// refreshes the nearest-stops overlay.
func (c *Client) UpdateLocation(ctx context.Context, lat, lng float64) error {
	c.latitude = &lat
	c.longitude = &lng
	c.mapView.SetUserLocation(lat, lng)

	if c.sessionID == "" {
		return nil
	}

	req := conductor.LocationRequest{SessionID: c.sessionID, Latitude: lat, Longitude: lng}
	var resp conductor.LocationResponse
	status, err := c.post(ctx, "/api/session/location", req, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("location update failed: status=%d", status)
	}

	c.nearestStops = resp.NearestStops
	c.mapView.ShowStops(stopPoints(resp.NearestStops))
	return nil
}

// BusInfo fetches a bus route's stop list. The boolean is false when
// the bus is unknown.
func (c *Client) BusInfo(ctx context.Context, number string) (conductor.BusInfoResponse, bool, error) {
	endpoint := c.baseURL + "/api/bus/" + number
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return conductor.BusInfoResponse{}, false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return conductor.BusInfoResponse{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return conductor.BusInfoResponse{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return conductor.BusInfoResponse{}, false, fmt.Errorf("bus lookup failed: status=%d", resp.StatusCode)
	}

	var out conductor.BusInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return conductor.BusInfoResponse{}, false, err
	}
	return out, true, nil
}

func (c *Client) sendOnce(ctx context.Context, message string) (conductor.ChatResponse, bool, error) {
	req := conductor.ChatRequest{SessionID: c.sessionID, Message: message}
	var resp conductor.ChatResponse
	status, err := c.post(ctx, "/api/chat", req, &resp)
	if err != nil {
		return conductor.ChatResponse{}, false, err
	}
	if status == http.StatusNotFound {
		return conductor.ChatResponse{}, true, nil
	}
	if status != http.StatusOK {
		return conductor.ChatResponse{}, false, fmt.Errorf("chat failed: status=%d", status)
	}
	return resp, false, nil
}

// augmentMap plots stop coordinates carried in the reply, and for
// route-find results additionally fetches the first bus's stop list.
// The secondary lookup is cosmetic enrichment: its failure is ignored.
func (c *Client) augmentMap(ctx context.Context, resp conductor.ChatResponse) {
	if len(resp.Routes) == 0 {
		return
	}

	var points []MapPoint
	for _, ref := range resp.Routes {
		if ref.Latitude != 0 || ref.Longitude != 0 {
			points = append(points, MapPoint{Name: ref.Name, Latitude: ref.Latitude, Longitude: ref.Longitude})
		}
	}
	if len(points) > 0 {
		c.mapView.ShowStops(points)
	}

	if resp.Intent != "route_find" {
		return
	}
	busNumber := resp.Routes[0].BusNumber
	if busNumber == "" {
		return
	}
	info, ok, err := c.BusInfo(ctx, busNumber)
	if err != nil || !ok {
		return
	}
	routePoints := make([]MapPoint, 0, len(info.Stops))
	for _, stop := range info.Stops {
		routePoints = append(routePoints, MapPoint{Name: stop.StopName, Latitude: stop.Latitude, Longitude: stop.Longitude})
	}
	if len(routePoints) > 0 {
		c.mapView.ShowStops(routePoints)
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
		}
		return resp.StatusCode, nil
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	return resp.StatusCode, nil
}

func stopPoints(stops []conductor.Stop) []MapPoint {
	points := make([]MapPoint, 0, len(stops))
	for _, stop := range stops {
		points = append(points, MapPoint{
			Name:           stop.Name,
			Latitude:       stop.Latitude,
			Longitude:      stop.Longitude,
			DistanceMeters: stop.DistanceMeters,
		})
	}
	return points
}
