package conductor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elnurm/ip2data/internal/infra/llm/chatgpt"
)

const (
	intentRouteFind    = "route_find"
	intentBusInfo      = "bus_info"
	intentStopInfo     = "stop_info"
	intentNearbyStops  = "nearby_stops"
	intentFareInfo     = "fare_info"
	intentScheduleInfo = "schedule_info"
	intentGeneral      = "general"
)

type intentEntities struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	BusNumber   string `json:"bus_number"`
	StopName    string `json:"stop_name"`
}

type parsedIntent struct {
	Intent   string         `json:"intent"`
	Entities intentEntities `json:"entities"`
}

// parseIntent classifies the message via the LLM. Anything the model
// gets wrong (transport failure, malformed JSON, unknown intent)
// degrades to the general intent instead of failing the chat turn.
func (s *service) parseIntent(ctx context.Context, message string) parsedIntent {
	fallback := parsedIntent{Intent: intentGeneral}

	completion, err := s.llm.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    []chatgpt.Message{{Role: "user", Content: fmt.Sprintf(intentParsePrompt, message)}},
		Temperature: 0,
	})
	if err != nil {
		s.logger.Warn("intent parse failed, treating as general", "error", err)
		return fallback
	}
	if len(completion.Choices) == 0 {
		return fallback
	}

	var parsed parsedIntent
	if err := json.Unmarshal([]byte(stripCodeFences(completion.Choices[0].Message.Content)), &parsed); err != nil {
		s.logger.Warn("intent parse returned malformed json", "error", err)
		return fallback
	}
	if !knownIntent(parsed.Intent) {
		parsed.Intent = intentGeneral
	}
	return parsed
}

func knownIntent(intent string) bool {
	switch intent {
	case intentRouteFind, intentBusInfo, intentStopInfo, intentNearbyStops, intentFareInfo, intentScheduleInfo, intentGeneral:
		return true
	}
	return false
}

func stripCodeFences(raw string) string {
	sanitized := strings.TrimSpace(raw)
	sanitized = strings.TrimPrefix(sanitized, "```json")
	sanitized = strings.TrimSuffix(sanitized, "```")
	sanitized = strings.Trim(sanitized, "`")
	return strings.TrimSpace(strings.TrimPrefix(sanitized, "json"))
}
