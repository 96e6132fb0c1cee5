package dashclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elnurm/ip2data/pkg/loadstage"
)

func TestFetch_SuccessSettlesStages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/all", r.URL.Path)
		w.Write([]byte(`{
			"ip": {"ip": "8.8.8.8"},
			"geo": {"status": "success", "city": "Mountain View"},
			"weather": {"current": {"temperature_2m": 21.4}},
			"airQuality": {"current": {"pm2_5": 6.4}},
			"country": {"name": {"common": "United States"}}
		}`))
	}))
	defer server.Close()

	stages := loadstage.NewController(time.Hour, nil)
	client := New(server.URL, stages)

	data, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "8.8.8.8", data.IP.IP)
	require.Equal(t, "Mountain View", data.Geo.City)
	require.Equal(t, loadstage.Succeeded, stages.State())
	require.Equal(t, loadstage.Stages[len(loadstage.Stages)-1], stages.Stage())
}

func TestFetch_ErrorEnvelopeSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"geolocation_failed","message":"reserved range"}}`))
	}))
	defer server.Close()

	stages := loadstage.NewController(time.Hour, nil)
	client := New(server.URL, stages)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved range")
	require.Equal(t, loadstage.Failed, stages.State())
	require.Contains(t, stages.Err(), "reserved range")
}

func TestFetch_NonEnvelopeErrorFallsBackToStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}

func TestFetch_RetryRestartsStages(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ip":{"ip":"8.8.8.8"}}`))
	}))
	defer server.Close()

	stages := loadstage.NewController(time.Hour, nil)
	client := New(server.URL, stages)

	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.Equal(t, loadstage.Failed, stages.State())

	_, err = client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, loadstage.Succeeded, stages.State())
}
