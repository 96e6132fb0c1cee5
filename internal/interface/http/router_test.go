package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elnurm/ip2data/internal/domain/conductor"
	"github.com/elnurm/ip2data/internal/domain/dashboard"
	"github.com/elnurm/ip2data/internal/infra/config"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

func TestRouter_DashboardSuccess(t *testing.T) {
	data := dashboard.DashboardData{
		IP:  dashboard.IPData{IP: "8.8.8.8"},
		Geo: dashboard.GeoData{Status: "success", City: "Mountain View", CountryCode: "US"},
	}
	dash := &stubDashboard{
		aggregateFn: func(ctx context.Context, hints dashboard.ClientHints) (dashboard.DashboardData, error) {
			require.Equal(t, "203.0.113.7", hints.ForwardedFor)
			require.Equal(t, "198.51.100.1", hints.RealIP)
			return data, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/all", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Real-IP", "198.51.100.1")
	rec := httptest.NewRecorder()
	newRouterUnderTest(t, dash, &stubConductor{}).Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))

	var got dashboard.DashboardData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, data.IP, got.IP)
	require.Equal(t, "Mountain View", got.Geo.City)
}

func TestRouter_DashboardGeolocationRejected(t *testing.T) {
	dash := &stubDashboard{
		aggregateFn: func(ctx context.Context, hints dashboard.ClientHints) (dashboard.DashboardData, error) {
			return dashboard.DashboardData{}, apperrors.Wrap("geolocation_rejected", "reserved range", nil)
		},
	}

	rec := performGet("/api/all", newRouterUnderTest(t, dash, &stubConductor{}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "geolocation_failed", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "reserved range")
}

func TestRouter_DashboardUpstreamFailure(t *testing.T) {
	dash := &stubDashboard{
		aggregateFn: func(ctx context.Context, hints dashboard.ClientHints) (dashboard.DashboardData, error) {
			return dashboard.DashboardData{}, apperrors.Wrap("upstream_unavailable", "weather request failed", nil)
		},
	}

	rec := performGet("/api/all", newRouterUnderTest(t, dash, &stubConductor{}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Header().Get("Cache-Control"))

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "upstream_unavailable", errBody["error"]["code"])
}

func TestRouter_ChatExpiredSessionIs404(t *testing.T) {
	cond := &stubConductor{
		chatFn: func(ctx context.Context, req conductor.ChatRequest) (conductor.ChatResponse, error) {
			return conductor.ChatResponse{}, apperrors.Wrap("session_not_found", "session not found", nil)
		},
	}

	rec := performPost("/api/chat", `{"session_id":"gone","message":"hi"}`, newRouterUnderTest(t, &stubDashboard{}, cond))
	require.Equal(t, http.StatusNotFound, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "session_not_found", errBody["error"]["code"])
}

func TestRouter_ChatInvalidJSON(t *testing.T) {
	rec := performPost("/api/chat", `{"message":123}`, newRouterUnderTest(t, &stubDashboard{}, &stubConductor{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_ChatSuccess(t *testing.T) {
	cond := &stubConductor{
		chatFn: func(ctx context.Context, req conductor.ChatRequest) (conductor.ChatResponse, error) {
			require.Equal(t, "s1", req.SessionID)
			return conductor.ChatResponse{Reply: "take bus 65", Intent: "route_find"}, nil
		},
	}

	rec := performPost("/api/chat", `{"session_id":"s1","message":"how do I get there?"}`, newRouterUnderTest(t, &stubDashboard{}, cond))
	require.Equal(t, http.StatusOK, rec.Code)

	var got conductor.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "take bus 65", got.Reply)
}

func TestRouter_BusNotFoundIs404(t *testing.T) {
	cond := &stubConductor{
		busInfoFn: func(ctx context.Context, number string) (conductor.BusInfoResponse, error) {
			require.Equal(t, "999", number)
			return conductor.BusInfoResponse{}, apperrors.Wrap("bus_not_found", "bus not found", nil)
		},
	}

	rec := performGet("/api/bus/999", newRouterUnderTest(t, &stubDashboard{}, cond))
	require.Equal(t, http.StatusNotFound, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "bus_not_found", errBody["error"]["code"])
}

func TestRouter_NearbyStopsValidatesCoordinates(t *testing.T) {
	rec := performGet("/api/stops/nearby?lat=abc&lng=49.89", newRouterUnderTest(t, &stubDashboard{}, &stubConductor{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NearbyStopsSuccess(t *testing.T) {
	cond := &stubConductor{
		nearbyFn: func(ctx context.Context, lat, lng float64, radius int) ([]conductor.Stop, error) {
			require.Equal(t, 40.37, lat)
			require.Equal(t, 49.89, lng)
			require.Equal(t, 500, radius)
			return []conductor.Stop{{ID: "s1", Name: "Central Station"}}, nil
		},
	}

	rec := performGet("/api/stops/nearby?lat=40.37&lng=49.89&radius=500", newRouterUnderTest(t, &stubDashboard{}, cond))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]conductor.Stop
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got["stops"], 1)
}

func TestRouter_SessionStart(t *testing.T) {
	cond := &stubConductor{
		startFn: func(ctx context.Context, req conductor.StartRequest) (conductor.StartResponse, error) {
			require.NotNil(t, req.Latitude)
			return conductor.StartResponse{SessionID: "s1", Greeting: "hello"}, nil
		},
	}

	rec := performPost("/api/session/start", `{"latitude":40.37,"longitude":49.89}`, newRouterUnderTest(t, &stubDashboard{}, cond))
	require.Equal(t, http.StatusOK, rec.Code)

	var got conductor.StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "s1", got.SessionID)
}

func performGet(path string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performPost(path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, dash dashboard.Service, cond conductor.Service) *http.Server {
	t.Helper()
	handler := NewHandler(dash, cond, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubDashboard struct {
	aggregateFn func(ctx context.Context, hints dashboard.ClientHints) (dashboard.DashboardData, error)
}

func (s *stubDashboard) Aggregate(ctx context.Context, hints dashboard.ClientHints) (dashboard.DashboardData, error) {
	if s.aggregateFn != nil {
		return s.aggregateFn(ctx, hints)
	}
	return dashboard.DashboardData{}, nil
}

type stubConductor struct {
	startFn    func(ctx context.Context, req conductor.StartRequest) (conductor.StartResponse, error)
	locationFn func(ctx context.Context, req conductor.LocationRequest) (conductor.LocationResponse, error)
	chatFn     func(ctx context.Context, req conductor.ChatRequest) (conductor.ChatResponse, error)
	nearbyFn   func(ctx context.Context, lat, lng float64, radius int) ([]conductor.Stop, error)
	busInfoFn  func(ctx context.Context, number string) (conductor.BusInfoResponse, error)
}

func (s *stubConductor) StartSession(ctx context.Context, req conductor.StartRequest) (conductor.StartResponse, error) {
	if s.startFn != nil {
		return s.startFn(ctx, req)
	}
	return conductor.StartResponse{}, nil
}

func (s *stubConductor) UpdateLocation(ctx context.Context, req conductor.LocationRequest) (conductor.LocationResponse, error) {
	if s.locationFn != nil {
		return s.locationFn(ctx, req)
	}
	return conductor.LocationResponse{}, nil
}

func (s *stubConductor) Chat(ctx context.Context, req conductor.ChatRequest) (conductor.ChatResponse, error) {
	if s.chatFn != nil {
		return s.chatFn(ctx, req)
	}
	return conductor.ChatResponse{}, nil
}

func (s *stubConductor) NearbyStops(ctx context.Context, lat, lng float64, radius int) ([]conductor.Stop, error) {
	if s.nearbyFn != nil {
		return s.nearbyFn(ctx, lat, lng, radius)
	}
	return nil, nil
}

func (s *stubConductor) BusInfo(ctx context.Context, number string) (conductor.BusInfoResponse, error) {
	if s.busInfoFn != nil {
		return s.busInfoFn(ctx, number)
	}
	return conductor.BusInfoResponse{}, nil
}
