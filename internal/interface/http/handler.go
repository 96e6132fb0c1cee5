package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elnurm/ip2data/internal/domain/conductor"
	"github.com/elnurm/ip2data/internal/domain/dashboard"
	apperrors "github.com/elnurm/ip2data/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	dashboardSvc dashboard.Service
	conductorSvc conductor.Service
	logger       *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(dashboardSvc dashboard.Service, conductorSvc conductor.Service, logger *slog.Logger) *Handler {
	return &Handler{
		dashboardSvc: dashboardSvc,
		conductorSvc: conductorSvc,
		logger:       logger.With("component", "http.handler"),
	}
}

// Dashboard aggregates every upstream lookup for the caller's IP into a
// single payload. The response is all or nothing; any upstream failure
// fails the whole request.
func (h *Handler) Dashboard(c *gin.Context) {
	hints := dashboard.ClientHints{
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		RealIP:       c.GetHeader("X-Real-IP"),
	}

	data, err := h.dashboardSvc.Aggregate(c.Request.Context(), hints)
	if err != nil {
		code := "upstream_unavailable"
		if apperrors.IsCode(err, "geolocation_rejected") {
			code = "geolocation_failed"
		}
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, code, errMessage(err), err))
		return
	}

	// Weather carries the shortest freshness window of the merged payload.
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, data)
}

// StartSession opens a new chat session, optionally seeded with the
// caller's coordinates.
func (h *Handler) StartSession(c *gin.Context) {
	var req conductor.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.conductorSvc.StartSession(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, conductorHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateLocation stores fresh coordinates on an existing session.
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req conductor.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.conductorSvc.UpdateLocation(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, conductorHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Chat handles one user message within a session. An expired or unknown
// session yields 404, which signals the client to restart.
func (h *Handler) Chat(c *gin.Context) {
	var req conductor.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.conductorSvc.Chat(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, conductorHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NearbyStops lists transit stops around a coordinate.
func (h *Handler) NearbyStops(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "lat and lng must be numbers", nil))
		return
	}
	radius := 0
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "radius must be a positive integer", err))
			return
		}
		radius = parsed
	}

	stops, err := h.conductorSvc.NearbyStops(c.Request.Context(), lat, lng, radius)
	if err != nil {
		abortWithError(c, conductorHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": stops})
}

// BusInfo returns one bus route with its ordered stops.
func (h *Handler) BusInfo(c *gin.Context) {
	resp, err := h.conductorSvc.BusInfo(c.Request.Context(), c.Param("number"))
	if err != nil {
		abortWithError(c, conductorHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func conductorHTTPError(err error) *HTTPError {
	status := http.StatusInternalServerError
	code := apperrors.CodeOf(err)
	switch code {
	case "session_not_found", "bus_not_found":
		status = http.StatusNotFound
	case "llm_error":
		status = http.StatusBadGateway
	case "":
		code = "transit_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
