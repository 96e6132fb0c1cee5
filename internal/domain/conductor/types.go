package conductor

import "time"

// Session is one conversational context. It lives only in the session
// store; expiry there is what produces the not-found path chat clients
// recover from.
type Session struct {
	ID             string    `json:"id"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	NearestStops   []Stop    `json:"nearestStops,omitempty"`
	LocationSource string    `json:"locationSource"`
	History        []Turn    `json:"history,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasLocation reports whether the session knows the user's position.
func (s *Session) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Turn is one message of the conversation history.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Stop is a transit stop, optionally annotated with the distance from
// the user's position.
type Stop struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distanceMeters,omitempty"`
}

// Bus describes one route's service metadata.
type Bus struct {
	ID              string  `json:"id"`
	Number          string  `json:"number"`
	Carrier         string  `json:"carrier,omitempty"`
	FirstPoint      string  `json:"firstPoint,omitempty"`
	LastPoint       string  `json:"lastPoint,omitempty"`
	RouteLengthKm   float64 `json:"routeLengthKm,omitempty"`
	DurationMinutes int     `json:"durationMinutes,omitempty"`
	Tariff          string  `json:"tariff,omitempty"`
	PaymentType     string  `json:"paymentType,omitempty"`
}

// RouteStop is one stop along a bus route, in traversal order.
type RouteStop struct {
	StopName  string  `json:"stopName"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteRef is one entry of a chat reply's route data. Depending on the
// intent it references a direct route, a bus, or a plain map point, so
// every field is optional; the map layer reads whatever is set.
type RouteRef struct {
	BusNumber      string  `json:"busNumber,omitempty"`
	Carrier        string  `json:"carrier,omitempty"`
	OriginStopName string  `json:"originStopName,omitempty"`
	DestStopName   string  `json:"destStopName,omitempty"`
	StopCount      int     `json:"stopCount,omitempty"`
	Tariff         string  `json:"tariff,omitempty"`
	Name           string  `json:"name,omitempty"`
	Latitude       float64 `json:"latitude,omitempty"`
	Longitude      float64 `json:"longitude,omitempty"`
}

// StartRequest opens a new session, optionally seeded with coordinates.
type StartRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// StartResponse returns the issued session id plus the greeting shown
// in the chat window.
type StartResponse struct {
	SessionID    string `json:"session_id"`
	Greeting     string `json:"greeting"`
	NearestStops []Stop `json:"nearest_stops"`
}

// LocationRequest updates the position of an existing session.
type LocationRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationResponse carries the refreshed nearest-stop overlay.
type LocationResponse struct {
	NearestStops []Stop `json:"nearest_stops"`
}

// ChatRequest is one user message within a session.
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is the assistant's reply plus optional route data for
// the map overlay.
type ChatResponse struct {
	Reply  string     `json:"reply"`
	Intent string     `json:"intent,omitempty"`
	Routes []RouteRef `json:"routes,omitempty"`
}

// BusInfoResponse answers the bus lookup endpoint.
type BusInfoResponse struct {
	Bus   Bus         `json:"bus"`
	Stops []RouteStop `json:"stops"`
}

// Config wires runtime knobs for the conductor domain.
type Config struct {
	Model              string
	Temperature        float32
	SessionTTL         time.Duration
	SearchRadiusMeters int
	NearestLimit       int
}
