package conductorclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

type recordingMap struct {
	userLat, userLng float64
	located          bool
	shown            [][]MapPoint
}

func (m *recordingMap) SetUserLocation(lat, lng float64) {
	m.userLat, m.userLng = lat, lng
	m.located = true
}

func (m *recordingMap) ShowStops(stops []MapPoint) {
	m.shown = append(m.shown, stops)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_RestartsOnceOnExpiredSession(t *testing.T) {
	var (
		startCalls int
		chatBodies []conductor.ChatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			startCalls++
			json.NewEncoder(w).Encode(conductor.StartResponse{
				SessionID: fmt.Sprintf("session-%d", startCalls),
				Greeting:  "hello",
			})
		case "/api/chat":
			var req conductor.ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			chatBodies = append(chatBodies, req)
			if req.SessionID == "session-1" {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"code": "session_not_found"}})
				return
			}
			json.NewEncoder(w).Encode(conductor.ChatResponse{Reply: "here you go", Intent: "general"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := New(server.URL, nil, newTestLogger())
	_, err := client.StartSession(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "session-1", client.SessionID())

	resp, err := client.Send(context.Background(), "where is bus 65?")
	require.NoError(t, err)
	require.Equal(t, "here you go", resp.Reply)

	require.Equal(t, 2, startCalls)
	require.Len(t, chatBodies, 2)
	require.Equal(t, "session-1", chatBodies[0].SessionID)
	require.Equal(t, "session-2", chatBodies[1].SessionID)
	// The replayed message is byte for byte the original one.
	require.Equal(t, "where is bus 65?", chatBodies[0].Message)
	require.Equal(t, "where is bus 65?", chatBodies[1].Message)
}

func TestSend_SecondExpiryIsAnError(t *testing.T) {
	var startCalls, chatCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			startCalls++
			json.NewEncoder(w).Encode(conductor.StartResponse{SessionID: "s", Greeting: "hi"})
		case "/api/chat":
			chatCalls++
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := New(server.URL, nil, newTestLogger())
	_, err := client.StartSession(context.Background(), nil, nil)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired again")
	// One initial start, one restart, never a retry loop.
	require.Equal(t, 2, startCalls)
	require.Equal(t, 2, chatCalls)
}

func TestSend_RestartReusesLastCoordinates(t *testing.T) {
	var starts []conductor.StartRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			var req conductor.StartRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			starts = append(starts, req)
			json.NewEncoder(w).Encode(conductor.StartResponse{SessionID: "s", Greeting: "hi"})
		case "/api/chat":
			if len(starts) == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(conductor.ChatResponse{Reply: "ok"})
		}
	}))
	defer server.Close()

	lat, lng := 40.3777, 49.892
	client := New(server.URL, nil, newTestLogger())
	_, err := client.StartSession(context.Background(), &lat, &lng)
	require.NoError(t, err)

	_, err = client.Send(context.Background(), "hi")
	require.NoError(t, err)

	require.Len(t, starts, 2)
	require.NotNil(t, starts[1].Latitude)
	require.Equal(t, lat, *starts[1].Latitude)
	require.Equal(t, lng, *starts[1].Longitude)
}

func TestSend_RouteFindEnrichesMapBestEffort(t *testing.T) {
	var busCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			json.NewEncoder(w).Encode(conductor.StartResponse{SessionID: "s", Greeting: "hi"})
		case "/api/chat":
			json.NewEncoder(w).Encode(conductor.ChatResponse{
				Reply:  "take bus 65",
				Intent: "route_find",
				Routes: []conductor.RouteRef{{BusNumber: "65", OriginStopName: "Central Station", DestStopName: "Old Town"}},
			})
		case "/api/bus/65":
			busCalls++
			json.NewEncoder(w).Encode(conductor.BusInfoResponse{
				Bus: conductor.Bus{ID: "b1", Number: "65"},
				Stops: []conductor.RouteStop{
					{StopName: "Central Station", Latitude: 40.37, Longitude: 49.85},
					{StopName: "Old Town", Latitude: 40.366, Longitude: 49.837},
				},
			})
		}
	}))
	defer server.Close()

	mapView := &recordingMap{}
	client := New(server.URL, mapView, newTestLogger())
	_, err := client.StartSession(context.Background(), nil, nil)
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), "how do I get to old town?")
	require.NoError(t, err)
	require.Equal(t, "take bus 65", resp.Reply)
	require.Equal(t, 1, busCalls)

	require.NotEmpty(t, mapView.shown)
	last := mapView.shown[len(mapView.shown)-1]
	require.Len(t, last, 2)
	require.Equal(t, "Central Station", last[0].Name)
}

func TestSend_BusLookupFailureIsSilent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			json.NewEncoder(w).Encode(conductor.StartResponse{SessionID: "s", Greeting: "hi"})
		case "/api/chat":
			json.NewEncoder(w).Encode(conductor.ChatResponse{
				Reply:  "take bus 65",
				Intent: "route_find",
				Routes: []conductor.RouteRef{{BusNumber: "65"}},
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := New(server.URL, &recordingMap{}, newTestLogger())
	_, err := client.StartSession(context.Background(), nil, nil)
	require.NoError(t, err)

	resp, err := client.Send(context.Background(), "how do I get there?")
	require.NoError(t, err)
	require.Equal(t, "take bus 65", resp.Reply)
}

func TestUpdateLocation_RefreshesOverlay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session/start":
			json.NewEncoder(w).Encode(conductor.StartResponse{SessionID: "s", Greeting: "hi"})
		case "/api/session/location":
			var req conductor.LocationRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "s", req.SessionID)
			json.NewEncoder(w).Encode(conductor.LocationResponse{
				NearestStops: []conductor.Stop{{ID: "s1", Name: "Central Station", DistanceMeters: 120}},
			})
		}
	}))
	defer server.Close()

	mapView := &recordingMap{}
	client := New(server.URL, mapView, newTestLogger())
	_, err := client.StartSession(context.Background(), nil, nil)
	require.NoError(t, err)

	require.NoError(t, client.UpdateLocation(context.Background(), 40.3777, 49.892))
	require.True(t, mapView.located)
	require.Equal(t, 40.3777, mapView.userLat)
	last := mapView.shown[len(mapView.shown)-1]
	require.Equal(t, "Central Station", last[0].Name)
}
