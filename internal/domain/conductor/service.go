package conductor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elnurm/ip2data/internal/infra/llm/chatgpt"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
	"github.com/elnurm/ip2data/pkg/metrics"
)

// Service exposes the bus assistant backend.
type Service interface {
	StartSession(ctx context.Context, req StartRequest) (StartResponse, error)
	UpdateLocation(ctx context.Context, req LocationRequest) (LocationResponse, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	NearbyStops(ctx context.Context, lat, lng float64, radiusMeters int) ([]Stop, error)
	BusInfo(ctx context.Context, number string) (BusInfoResponse, error)
}

// ChatClient is the LLM dependency used for intent parsing and reply
// generation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// SessionStore persists sessions for the configured TTL. A session the
// store no longer knows is an expired one.
type SessionStore interface {
	Save(ctx context.Context, session Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
}

// TransitStore serves the stop/bus reference data.
type TransitStore interface {
	NearestStops(ctx context.Context, lat, lng float64, radiusMeters, limit int) ([]Stop, error)
	MatchStops(ctx context.Context, name string, limit int) ([]Stop, error)
	FindBus(ctx context.Context, number string) (Bus, bool, error)
	RouteStops(ctx context.Context, busID string) ([]RouteStop, error)
	BusesThroughStop(ctx context.Context, stopID string) ([]Bus, error)
	DirectRoutes(ctx context.Context, originIDs, destIDs []string) ([]RouteRef, error)
}

type service struct {
	cfg      Config
	sessions SessionStore
	transit  TransitStore
	llm      ChatClient
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires up the conductor domain.
func NewService(cfg Config, sessions SessionStore, transit TransitStore, llm ChatClient, logger *slog.Logger) Service {
	return &service{
		cfg:      cfg,
		sessions: sessions,
		transit:  transit,
		llm:      llm,
		logger:   logger.With("component", "conductor.service"),
		now:      time.Now,
	}
}

func (s *service) StartSession(ctx context.Context, req StartRequest) (StartResponse, error) {
	session := Session{
		ID:             uuid.NewString(),
		LocationSource: "unknown",
		CreatedAt:      s.now(),
	}

	reply := greeting
	if req.Latitude != nil && req.Longitude != nil {
		session.Latitude = req.Latitude
		session.Longitude = req.Longitude
		session.LocationSource = "geolocation"
		stops, err := s.transit.NearestStops(ctx, *req.Latitude, *req.Longitude, s.cfg.SearchRadiusMeters, s.cfg.NearestLimit)
		if err != nil {
			return StartResponse{}, apperrors.Wrap("transit_error", "nearest stop lookup failed", err)
		}
		session.NearestStops = stops
		if len(stops) > 0 {
			reply = fmt.Sprintf(greetingWithLocation, stopNames(stops, 3))
		}
	}

	session.History = append(session.History, Turn{Role: "model", Text: reply})
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return StartResponse{}, apperrors.Wrap("session_store_error", "save session failed", err)
	}

	s.logger.Info("session started", "session_id", session.ID, "has_location", session.HasLocation())
	return StartResponse{
		SessionID:    session.ID,
		Greeting:     reply,
		NearestStops: session.NearestStops,
	}, nil
}

func (s *service) UpdateLocation(ctx context.Context, req LocationRequest) (LocationResponse, error) {
	session, ok, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return LocationResponse{}, apperrors.Wrap("session_store_error", "load session failed", err)
	}
	if !ok {
		return LocationResponse{}, apperrors.Wrap("session_not_found", "session not found", nil)
	}

	session.Latitude = &req.Latitude
	session.Longitude = &req.Longitude
	session.LocationSource = "manual"
	stops, err := s.transit.NearestStops(ctx, req.Latitude, req.Longitude, s.cfg.SearchRadiusMeters, s.cfg.NearestLimit)
	if err != nil {
		return LocationResponse{}, apperrors.Wrap("transit_error", "nearest stop lookup failed", err)
	}
	session.NearestStops = stops

	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return LocationResponse{}, apperrors.Wrap("session_store_error", "save session failed", err)
	}
	return LocationResponse{NearestStops: stops}, nil
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	session, ok, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return ChatResponse{}, apperrors.Wrap("session_store_error", "load session failed", err)
	}
	if !ok {
		return ChatResponse{}, apperrors.Wrap("session_not_found", "session not found", nil)
	}

	history := append([]Turn(nil), session.History...)
	session.History = append(session.History, Turn{Role: "user", Text: req.Message})

	parsed := s.parseIntent(ctx, req.Message)

	var (
		reply  string
		routes []RouteRef
	)
	switch parsed.Intent {
	case intentRouteFind:
		reply, routes, err = s.handleRouteFind(ctx, &session, req.Message, parsed.Entities, history)
	case intentBusInfo, intentFareInfo, intentScheduleInfo:
		reply, routes, err = s.handleBusInfo(ctx, req.Message, parsed.Entities, history)
	case intentStopInfo:
		reply, routes, err = s.handleStopInfo(ctx, req.Message, parsed.Entities, history)
	case intentNearbyStops:
		reply, routes, err = s.handleNearbyStops(ctx, &session, req.Message, history)
	default:
		reply, err = s.generate(ctx, req.Message, "General question about the public transit system.", history)
	}
	if err != nil {
		return ChatResponse{}, err
	}

	session.History = append(session.History, Turn{Role: "model", Text: reply})
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return ChatResponse{}, apperrors.Wrap("session_store_error", "save session failed", err)
	}

	return ChatResponse{Reply: reply, Intent: parsed.Intent, Routes: routes}, nil
}

func (s *service) NearbyStops(ctx context.Context, lat, lng float64, radiusMeters int) ([]Stop, error) {
	if radiusMeters <= 0 {
		radiusMeters = s.cfg.SearchRadiusMeters
	}
	stops, err := s.transit.NearestStops(ctx, lat, lng, radiusMeters, s.cfg.NearestLimit)
	if err != nil {
		return nil, apperrors.Wrap("transit_error", "nearest stop lookup failed", err)
	}
	return stops, nil
}

func (s *service) BusInfo(ctx context.Context, number string) (BusInfoResponse, error) {
	bus, ok, err := s.transit.FindBus(ctx, number)
	if err != nil {
		return BusInfoResponse{}, apperrors.Wrap("transit_error", "bus lookup failed", err)
	}
	if !ok {
		return BusInfoResponse{}, apperrors.Wrap("bus_not_found", "bus not found", nil)
	}
	stops, err := s.transit.RouteStops(ctx, bus.ID)
	if err != nil {
		return BusInfoResponse{}, apperrors.Wrap("transit_error", "route stop lookup failed", err)
	}
	return BusInfoResponse{Bus: bus, Stops: stops}, nil
}

func (s *service) handleRouteFind(ctx context.Context, session *Session, message string, entities intentEntities, history []Turn) (string, []RouteRef, error) {
	originRaw := strings.TrimSpace(entities.Origin)
	destRaw := strings.TrimSpace(entities.Destination)

	var (
		originStops []Stop
		originName  string
		err         error
	)
	if originRaw == "" || originRaw == "user_location" {
		if !session.HasLocation() {
			return locationRequest, nil, nil
		}
		originStops, err = s.transit.NearestStops(ctx, *session.Latitude, *session.Longitude, s.cfg.SearchRadiusMeters, 5)
		originName = "your location"
	} else {
		originStops, err = s.transit.MatchStops(ctx, originRaw, 5)
		originName = originRaw
	}
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "origin stop lookup failed", err)
	}

	destStops, err := s.transit.MatchStops(ctx, destRaw, 5)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "destination stop lookup failed", err)
	}

	if len(originStops) == 0 {
		return fmt.Sprintf("No stop matching '%s' was found. Please be more specific.", originName), nil, nil
	}
	if len(destStops) == 0 {
		return fmt.Sprintf("No stop matching '%s' was found. Please be more specific.", destRaw), nil, nil
	}

	routes, err := s.transit.DirectRoutes(ctx, stopIDs(originStops), stopIDs(destStops))
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "route search failed", err)
	}

	reply, err := s.generate(ctx, message, formatRouteContext(routes, originName, destRaw), history)
	if err != nil {
		return "", nil, err
	}
	return reply, routes, nil
}

func (s *service) handleBusInfo(ctx context.Context, message string, entities intentEntities, history []Turn) (string, []RouteRef, error) {
	number := strings.TrimSpace(entities.BusNumber)
	if number == "" {
		reply, err := s.generate(ctx, message, "No bus number was given.", history)
		return reply, nil, err
	}

	bus, ok, err := s.transit.FindBus(ctx, number)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "bus lookup failed", err)
	}
	if !ok {
		return fmt.Sprintf("No bus with number %s was found.", number), nil, nil
	}

	stops, err := s.transit.RouteStops(ctx, bus.ID)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "route stop lookup failed", err)
	}

	reply, err := s.generate(ctx, message, formatBusContext(bus, stops), history)
	if err != nil {
		return "", nil, err
	}
	return reply, []RouteRef{{
		BusNumber:      bus.Number,
		Carrier:        bus.Carrier,
		OriginStopName: bus.FirstPoint,
		DestStopName:   bus.LastPoint,
		StopCount:      len(stops),
		Tariff:         bus.Tariff,
	}}, nil
}

func (s *service) handleStopInfo(ctx context.Context, message string, entities intentEntities, history []Turn) (string, []RouteRef, error) {
	name := strings.TrimSpace(entities.StopName)
	if name == "" {
		name = strings.TrimSpace(entities.Destination)
	}
	if name == "" {
		reply, err := s.generate(ctx, message, "No stop name was given.", history)
		return reply, nil, err
	}

	stops, err := s.transit.MatchStops(ctx, name, 1)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "stop lookup failed", err)
	}
	if len(stops) == 0 {
		return fmt.Sprintf("No stop matching '%s' was found.", name), nil, nil
	}

	stop := stops[0]
	buses, err := s.transit.BusesThroughStop(ctx, stop.ID)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "stop bus lookup failed", err)
	}

	reply, err := s.generate(ctx, message, formatStopContext(stop, buses), history)
	if err != nil {
		return "", nil, err
	}
	return reply, []RouteRef{{Name: stop.Name, Latitude: stop.Latitude, Longitude: stop.Longitude}}, nil
}

func (s *service) handleNearbyStops(ctx context.Context, session *Session, message string, history []Turn) (string, []RouteRef, error) {
	if !session.HasLocation() {
		return locationRequest, nil, nil
	}

	stops, err := s.transit.NearestStops(ctx, *session.Latitude, *session.Longitude, s.cfg.SearchRadiusMeters, s.cfg.NearestLimit)
	if err != nil {
		return "", nil, apperrors.Wrap("transit_error", "nearest stop lookup failed", err)
	}
	if len(stops) == 0 {
		return "No stops were found near you.", nil, nil
	}

	var b strings.Builder
	b.WriteString("Stops near the user:\n")
	for _, stop := range stops[:min(len(stops), 5)] {
		fmt.Fprintf(&b, "- %s (%.0fm)\n", stop.Name, stop.DistanceMeters)
	}

	reply, err := s.generate(ctx, message, b.String(), history)
	if err != nil {
		return "", nil, err
	}

	routes := make([]RouteRef, 0, len(stops))
	for _, stop := range stops {
		routes = append(routes, RouteRef{Name: stop.Name, Latitude: stop.Latitude, Longitude: stop.Longitude})
	}
	return reply, routes, nil
}

// generate asks the LLM for the final reply, replaying the session
// history so followup questions keep their context.
func (s *service) generate(ctx context.Context, message, contextText string, history []Turn) (string, error) {
	messages := make([]chatgpt.Message, 0, len(history)+2)
	messages = append(messages, chatgpt.Message{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		role := "assistant"
		if turn.Role == "user" {
			role = "user"
		}
		messages = append(messages, chatgpt.Message{Role: role, Content: turn.Text})
	}
	messages = append(messages, chatgpt.Message{
		Role:    "user",
		Content: fmt.Sprintf(routeContextTemplate, contextText, message),
	})

	completion, err := s.llm.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", apperrors.Wrap("llm_error", "reply generation failed", err)
	}
	if len(completion.Choices) == 0 {
		return "", apperrors.Wrap("llm_error", "reply generation returned no choices", nil)
	}

	usage := metrics.TokenUsage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	}
	if !usage.IsZero() {
		s.logger.Debug("reply generated", "prompt_tokens", usage.PromptTokens, "total_tokens", usage.TotalTokens)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func formatRouteContext(routes []RouteRef, originName, destName string) string {
	if len(routes) == 0 {
		return fmt.Sprintf("No direct route was found.\nOrigin: %s\nDestination: %s\n\nTell the user plainly and suggest alternatives (metro, taxi).", originName, destName)
	}
	var b strings.Builder
	b.WriteString("Direct routes found:\n")
	for i, r := range routes {
		fmt.Fprintf(&b, "%d. Bus #%s (%s)\n   Board: %s -> Alight: %s\n   Stop count: %d\n   Fare: %s\n",
			i+1, r.BusNumber, r.Carrier, r.OriginStopName, r.DestStopName, r.StopCount, orUnknown(r.Tariff))
	}
	return b.String()
}

func formatBusContext(bus Bus, stops []RouteStop) string {
	names := make([]string, 0, len(stops))
	for _, stop := range stops {
		names = append(names, stop.StopName)
	}
	return fmt.Sprintf("Bus #%s (%s)\nRoute: %s -> %s\nLength: %.1f km\nDuration: %d minutes\nFare: %s\nPayment: %s\nStops: %s",
		bus.Number, bus.Carrier, bus.FirstPoint, bus.LastPoint, bus.RouteLengthKm, bus.DurationMinutes,
		orUnknown(bus.Tariff), orUnknown(bus.PaymentType), strings.Join(names, " -> "))
}

func formatStopContext(stop Stop, buses []Bus) string {
	lines := make([]string, 0, len(buses))
	for _, bus := range buses {
		lines = append(lines, fmt.Sprintf("#%s (%s -> %s)", bus.Number, bus.FirstPoint, bus.LastPoint))
	}
	return fmt.Sprintf("Stop: %s\nCoordinates: %f, %f\nBuses serving this stop: %s",
		stop.Name, stop.Latitude, stop.Longitude, strings.Join(lines, ", "))
}

func stopNames(stops []Stop, limit int) string {
	names := make([]string, 0, limit)
	for _, stop := range stops[:min(len(stops), limit)] {
		names = append(names, stop.Name)
	}
	return strings.Join(names, ", ")
}

func stopIDs(stops []Stop) []string {
	ids := make([]string, 0, len(stops))
	for _, stop := range stops {
		ids = append(ids, stop.ID)
	}
	return ids
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "?"
	}
	return v
}
