package transit

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

// Route couples a bus with its ordered stop ids.
type Route struct {
	Bus     conductor.Bus
	StopIDs []string
}

// MemoryStore serves transit reference data from process memory. It
// backs tests and the dev fallback when Postgres is not configured.
type MemoryStore struct {
	stops  map[string]conductor.Stop
	routes []Route
}

// NewMemoryStore constructs a store over the given dataset.
func NewMemoryStore(stops []conductor.Stop, routes []Route) *MemoryStore {
	index := make(map[string]conductor.Stop, len(stops))
	for _, stop := range stops {
		index[stop.ID] = stop
	}
	return &MemoryStore{stops: index, routes: routes}
}

// NearestStops implements conductor.TransitStore.
func (s *MemoryStore) NearestStops(_ context.Context, lat, lng float64, radiusMeters, limit int) ([]conductor.Stop, error) {
	out := make([]conductor.Stop, 0, limit)
	for _, stop := range s.stops {
		distance := haversineMeters(lat, lng, stop.Latitude, stop.Longitude)
		if radiusMeters > 0 && distance > float64(radiusMeters) {
			continue
		}
		annotated := stop
		annotated.DistanceMeters = math.Round(distance)
		out = append(out, annotated)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters == out[j].DistanceMeters {
			return out[i].Name < out[j].Name
		}
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MatchStops implements conductor.TransitStore using normalized
// substring matching.
func (s *MemoryStore) MatchStops(_ context.Context, name string, limit int) ([]conductor.Stop, error) {
	needle := normalizeName(name)
	if needle == "" {
		return nil, nil
	}
	out := make([]conductor.Stop, 0, limit)
	for _, stop := range s.stops {
		if strings.Contains(normalizeName(stop.Name), needle) {
			out = append(out, stop)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindBus implements conductor.TransitStore.
func (s *MemoryStore) FindBus(_ context.Context, number string) (conductor.Bus, bool, error) {
	wanted := strings.TrimSpace(number)
	for _, route := range s.routes {
		if strings.EqualFold(route.Bus.Number, wanted) {
			return route.Bus, true, nil
		}
	}
	return conductor.Bus{}, false, nil
}

// RouteStops implements conductor.TransitStore.
func (s *MemoryStore) RouteStops(_ context.Context, busID string) ([]conductor.RouteStop, error) {
	for _, route := range s.routes {
		if route.Bus.ID != busID {
			continue
		}
		out := make([]conductor.RouteStop, 0, len(route.StopIDs))
		for _, stopID := range route.StopIDs {
			stop, ok := s.stops[stopID]
			if !ok {
				continue
			}
			out = append(out, conductor.RouteStop{
				StopName:  stop.Name,
				Latitude:  stop.Latitude,
				Longitude: stop.Longitude,
			})
		}
		return out, nil
	}
	return nil, nil
}

// BusesThroughStop implements conductor.TransitStore.
func (s *MemoryStore) BusesThroughStop(_ context.Context, stopID string) ([]conductor.Bus, error) {
	var out []conductor.Bus
	for _, route := range s.routes {
		for _, id := range route.StopIDs {
			if id == stopID {
				out = append(out, route.Bus)
				break
			}
		}
	}
	return out, nil
}

// DirectRoutes implements conductor.TransitStore: a direct route exists
// when one bus passes an origin candidate strictly before a destination
// candidate.
func (s *MemoryStore) DirectRoutes(_ context.Context, originIDs, destIDs []string) ([]conductor.RouteRef, error) {
	origins := toSet(originIDs)
	dests := toSet(destIDs)

	var out []conductor.RouteRef
	for _, route := range s.routes {
		originIdx, destIdx := -1, -1
		for i, stopID := range route.StopIDs {
			if originIdx < 0 {
				if _, ok := origins[stopID]; ok {
					originIdx = i
				}
			}
			if _, ok := dests[stopID]; ok {
				destIdx = i
			}
		}
		if originIdx < 0 || destIdx <= originIdx {
			continue
		}
		out = append(out, conductor.RouteRef{
			BusNumber:      route.Bus.Number,
			Carrier:        route.Bus.Carrier,
			OriginStopName: s.stops[route.StopIDs[originIdx]].Name,
			DestStopName:   s.stops[route.StopIDs[destIdx]].Name,
			StopCount:      destIdx - originIdx,
			Tariff:         route.Bus.Tariff,
		})
	}
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

var _ conductor.TransitStore = (*MemoryStore)(nil)
