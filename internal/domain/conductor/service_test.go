package conductor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elnurm/ip2data/internal/infra/llm/chatgpt"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

func TestStartSession_WithoutLocation(t *testing.T) {
	deps := newStubDeps()
	svc := newServiceUnderTest(deps)

	resp, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
	require.Equal(t, greeting, resp.Greeting)
	require.Empty(t, resp.NearestStops)

	saved, ok := deps.sessions.get(resp.SessionID)
	require.True(t, ok)
	require.False(t, saved.HasLocation())
	require.Equal(t, "unknown", saved.LocationSource)
}

func TestStartSession_WithLocationNamesNearestStops(t *testing.T) {
	deps := newStubDeps()
	deps.transit.nearestFn = func(ctx context.Context, lat, lng float64, radius, limit int) ([]Stop, error) {
		require.Equal(t, 40.3777, lat)
		require.Equal(t, 49.892, lng)
		return []Stop{
			{ID: "s1", Name: "Central Station", DistanceMeters: 120},
			{ID: "s2", Name: "University", DistanceMeters: 340},
		}, nil
	}
	svc := newServiceUnderTest(deps)

	lat, lng := 40.3777, 49.892
	resp, err := svc.StartSession(context.Background(), StartRequest{Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)
	require.Contains(t, resp.Greeting, "Central Station, University")
	require.Len(t, resp.NearestStops, 2)

	saved, ok := deps.sessions.get(resp.SessionID)
	require.True(t, ok)
	require.True(t, saved.HasLocation())
	require.Equal(t, "geolocation", saved.LocationSource)
}

func TestChat_UnknownSessionIsNotFound(t *testing.T) {
	deps := newStubDeps()
	svc := newServiceUnderTest(deps)

	_, err := svc.Chat(context.Background(), ChatRequest{SessionID: "expired", Message: "hi"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "session_not_found"))
	require.Zero(t, deps.llm.calls)
}

func TestChat_GeneralIntentAnswersAndExtendsHistory(t *testing.T) {
	deps := newStubDeps()
	deps.llm.script = []string{
		`{"intent": "general", "entities": {}}`,
		"Buses here run from 06:00 until midnight.",
	}
	svc := newServiceUnderTest(deps)

	start, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), ChatRequest{SessionID: start.SessionID, Message: "when do buses run?"})
	require.NoError(t, err)
	require.Equal(t, "general", resp.Intent)
	require.Equal(t, "Buses here run from 06:00 until midnight.", resp.Reply)
	require.Empty(t, resp.Routes)

	saved, ok := deps.sessions.get(start.SessionID)
	require.True(t, ok)
	// greeting + user turn + model turn
	require.Len(t, saved.History, 3)
	require.Equal(t, "user", saved.History[1].Role)
	require.Equal(t, "when do buses run?", saved.History[1].Text)
}

func TestChat_RouteFindWithoutLocationAsksForIt(t *testing.T) {
	deps := newStubDeps()
	deps.llm.script = []string{
		`{"intent": "route_find", "entities": {"origin": "user_location", "destination": "central station"}}`,
	}
	svc := newServiceUnderTest(deps)

	start, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), ChatRequest{SessionID: start.SessionID, Message: "how do I get to central station?"})
	require.NoError(t, err)
	require.Equal(t, locationRequest, resp.Reply)
	require.Empty(t, resp.Routes)
	// Only the intent parse hit the LLM.
	require.Equal(t, 1, deps.llm.calls)
}

func TestChat_RouteFindReturnsDirectRoutes(t *testing.T) {
	deps := newStubDeps()
	deps.llm.script = []string{
		`{"intent": "route_find", "entities": {"origin": "university", "destination": "old town"}}`,
		"Take bus 65 from University to Old Town.",
	}
	deps.transit.matchFn = func(ctx context.Context, name string, limit int) ([]Stop, error) {
		switch name {
		case "university":
			return []Stop{{ID: "s2", Name: "University"}}, nil
		case "old town":
			return []Stop{{ID: "s4", Name: "Old Town"}}, nil
		}
		return nil, nil
	}
	deps.transit.directFn = func(ctx context.Context, originIDs, destIDs []string) ([]RouteRef, error) {
		require.Equal(t, []string{"s2"}, originIDs)
		require.Equal(t, []string{"s4"}, destIDs)
		return []RouteRef{{BusNumber: "65", OriginStopName: "University", DestStopName: "Old Town", StopCount: 2}}, nil
	}
	svc := newServiceUnderTest(deps)

	start, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), ChatRequest{SessionID: start.SessionID, Message: "from university to old town"})
	require.NoError(t, err)
	require.Equal(t, "route_find", resp.Intent)
	require.Len(t, resp.Routes, 1)
	require.Equal(t, "65", resp.Routes[0].BusNumber)
	require.Contains(t, deps.llm.lastUserContent, "Direct routes found")
}

func TestChat_BusInfoIntent(t *testing.T) {
	deps := newStubDeps()
	deps.llm.script = []string{
		`{"intent": "bus_info", "entities": {"bus_number": "65"}}`,
		"Bus 65 runs between Central Station and Old Town.",
	}
	deps.transit.findBusFn = func(ctx context.Context, number string) (Bus, bool, error) {
		require.Equal(t, "65", number)
		return Bus{ID: "b1", Number: "65", FirstPoint: "Central Station", LastPoint: "Old Town"}, true, nil
	}
	deps.transit.routeStopsFn = func(ctx context.Context, busID string) ([]RouteStop, error) {
		require.Equal(t, "b1", busID)
		return []RouteStop{{StopName: "Central Station"}, {StopName: "Old Town"}}, nil
	}
	svc := newServiceUnderTest(deps)

	start, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)

	resp, err := svc.Chat(context.Background(), ChatRequest{SessionID: start.SessionID, Message: "tell me about bus 65"})
	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)
	require.Equal(t, "65", resp.Routes[0].BusNumber)
	require.Equal(t, 2, resp.Routes[0].StopCount)
}

func TestChat_LLMFailureSurfacesAsLLMError(t *testing.T) {
	deps := newStubDeps()
	deps.llm.script = []string{`{"intent": "general", "entities": {}}`}
	deps.llm.err = errors.New("model overloaded")
	deps.llm.errFrom = 2
	svc := newServiceUnderTest(deps)

	start, err := svc.StartSession(context.Background(), StartRequest{})
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), ChatRequest{SessionID: start.SessionID, Message: "hello"})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "llm_error"))
}

func TestBusInfo_UnknownBus(t *testing.T) {
	deps := newStubDeps()
	svc := newServiceUnderTest(deps)

	_, err := svc.BusInfo(context.Background(), "999")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "bus_not_found"))
}

func TestNearbyStops_DefaultsRadius(t *testing.T) {
	deps := newStubDeps()
	deps.transit.nearestFn = func(ctx context.Context, lat, lng float64, radius, limit int) ([]Stop, error) {
		require.Equal(t, 1000, radius)
		require.Equal(t, 3, limit)
		return []Stop{{ID: "s1", Name: "Central Station"}}, nil
	}
	svc := newServiceUnderTest(deps)

	stops, err := svc.NearbyStops(context.Background(), 40.37, 49.89, 0)
	require.NoError(t, err)
	require.Len(t, stops, 1)
}

func newServiceUnderTest(deps stubDeps) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		Model:              "gpt-4o-mini",
		Temperature:        0.2,
		SessionTTL:         30 * time.Minute,
		SearchRadiusMeters: 1000,
		NearestLimit:       3,
	}
	return NewService(cfg, deps.sessions, deps.transit, deps.llm, logger)
}

type stubDeps struct {
	sessions *stubSessionStore
	transit  *stubTransitStore
	llm      *stubChatClient
}

func newStubDeps() stubDeps {
	return stubDeps{
		sessions: &stubSessionStore{sessions: map[string]Session{}},
		transit:  &stubTransitStore{},
		llm:      &stubChatClient{},
	}
}

type stubSessionStore struct {
	sessions map[string]Session
}

func (s *stubSessionStore) Save(ctx context.Context, session Session, ttl time.Duration) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *stubSessionStore) Get(ctx context.Context, id string) (Session, bool, error) {
	session, ok := s.sessions[id]
	return session, ok, nil
}

func (s *stubSessionStore) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubSessionStore) get(id string) (Session, bool) {
	session, ok := s.sessions[id]
	return session, ok
}

type stubTransitStore struct {
	nearestFn    func(ctx context.Context, lat, lng float64, radius, limit int) ([]Stop, error)
	matchFn      func(ctx context.Context, name string, limit int) ([]Stop, error)
	findBusFn    func(ctx context.Context, number string) (Bus, bool, error)
	routeStopsFn func(ctx context.Context, busID string) ([]RouteStop, error)
	busesFn      func(ctx context.Context, stopID string) ([]Bus, error)
	directFn     func(ctx context.Context, originIDs, destIDs []string) ([]RouteRef, error)
}

func (s *stubTransitStore) NearestStops(ctx context.Context, lat, lng float64, radius, limit int) ([]Stop, error) {
	if s.nearestFn != nil {
		return s.nearestFn(ctx, lat, lng, radius, limit)
	}
	return nil, nil
}

func (s *stubTransitStore) MatchStops(ctx context.Context, name string, limit int) ([]Stop, error) {
	if s.matchFn != nil {
		return s.matchFn(ctx, name, limit)
	}
	return nil, nil
}

func (s *stubTransitStore) FindBus(ctx context.Context, number string) (Bus, bool, error) {
	if s.findBusFn != nil {
		return s.findBusFn(ctx, number)
	}
	return Bus{}, false, nil
}

func (s *stubTransitStore) RouteStops(ctx context.Context, busID string) ([]RouteStop, error) {
	if s.routeStopsFn != nil {
		return s.routeStopsFn(ctx, busID)
	}
	return nil, nil
}

func (s *stubTransitStore) BusesThroughStop(ctx context.Context, stopID string) ([]Bus, error) {
	if s.busesFn != nil {
		return s.busesFn(ctx, stopID)
	}
	return nil, nil
}

func (s *stubTransitStore) DirectRoutes(ctx context.Context, originIDs, destIDs []string) ([]RouteRef, error) {
	if s.directFn != nil {
		return s.directFn(ctx, originIDs, destIDs)
	}
	return nil, nil
}

// stubChatClient replays scripted completions in order. Calls beyond the
// script, or calls at or past errFrom when err is set, fail.
type stubChatClient struct {
	script          []string
	calls           int
	err             error
	errFrom         int
	lastUserContent string
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.calls++
	if len(req.Messages) > 0 {
		s.lastUserContent = req.Messages[len(req.Messages)-1].Content
	}
	if s.err != nil && s.calls >= s.errFrom {
		return chatgpt.ChatCompletionResponse{}, s.err
	}
	if s.calls > len(s.script) {
		return chatgpt.ChatCompletionResponse{}, errors.New("unexpected llm call")
	}
	content := s.script[s.calls-1]
	return chatgpt.ChatCompletionResponse{
		Choices: []chatgpt.Choice{{Message: chatgpt.Message{Role: "assistant", Content: content}}},
	}, nil
}
