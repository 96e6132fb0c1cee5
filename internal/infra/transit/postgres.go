package transit

import (
	"context"
	"math"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elnurm/ip2data/internal/domain/conductor"
)

// PostgresStore implements conductor.TransitStore over pgx.
//
// Schema:
//
//	stops(id text pk, name text, latitude double precision, longitude double precision)
//	buses(id text pk, number text, carrier text, first_point text, last_point text,
//	      route_length_km double precision, duration_minutes int, tariff text, payment_type text)
//	route_stops(bus_id text, seq int, stop_id text, primary key (bus_id, seq))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NearestStops pre-filters with a bounding box, then ranks by exact
// haversine distance in Go. Good enough at city scale without PostGIS.
func (r *PostgresStore) NearestStops(ctx context.Context, lat, lng float64, radiusMeters, limit int) ([]conductor.Stop, error) {
	if limit <= 0 {
		limit = 10
	}
	latDelta := float64(radiusMeters) / 111320.0
	lngDelta := latDelta / math.Max(math.Cos(lat*math.Pi/180), 0.01)

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, latitude, longitude
		FROM stops
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
	`, lat-latDelta, lat+latDelta, lng-lngDelta, lng+lngDelta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []conductor.Stop
	for rows.Next() {
		var stop conductor.Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Latitude, &stop.Longitude); err != nil {
			return nil, err
		}
		distance := haversineMeters(lat, lng, stop.Latitude, stop.Longitude)
		if radiusMeters > 0 && distance > float64(radiusMeters) {
			continue
		}
		stop.DistanceMeters = math.Round(distance)
		candidates = append(candidates, stop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortStopsByDistance(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// MatchStops implements conductor.TransitStore.
func (r *PostgresStore) MatchStops(ctx context.Context, name string, limit int) ([]conductor.Stop, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, latitude, longitude
		FROM stops
		WHERE lower(name) LIKE '%' || lower($1) || '%'
		ORDER BY name
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conductor.Stop
	for rows.Next() {
		var stop conductor.Stop
		if err := rows.Scan(&stop.ID, &stop.Name, &stop.Latitude, &stop.Longitude); err != nil {
			return nil, err
		}
		out = append(out, stop)
	}
	return out, rows.Err()
}

// FindBus implements conductor.TransitStore.
func (r *PostgresStore) FindBus(ctx context.Context, number string) (conductor.Bus, bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, number, carrier, first_point, last_point, route_length_km, duration_minutes, tariff, payment_type
		FROM buses
		WHERE lower(number) = lower($1)
		LIMIT 1
	`, number)
	if err != nil {
		return conductor.Bus{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return conductor.Bus{}, false, rows.Err()
	}
	var bus conductor.Bus
	if err := rows.Scan(&bus.ID, &bus.Number, &bus.Carrier, &bus.FirstPoint, &bus.LastPoint,
		&bus.RouteLengthKm, &bus.DurationMinutes, &bus.Tariff, &bus.PaymentType); err != nil {
		return conductor.Bus{}, false, err
	}
	return bus, true, rows.Err()
}

// RouteStops implements conductor.TransitStore.
func (r *PostgresStore) RouteStops(ctx context.Context, busID string) ([]conductor.RouteStop, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.name, s.latitude, s.longitude
		FROM route_stops rs
		JOIN stops s ON s.id = rs.stop_id
		WHERE rs.bus_id = $1
		ORDER BY rs.seq
	`, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conductor.RouteStop
	for rows.Next() {
		var stop conductor.RouteStop
		if err := rows.Scan(&stop.StopName, &stop.Latitude, &stop.Longitude); err != nil {
			return nil, err
		}
		out = append(out, stop)
	}
	return out, rows.Err()
}

// BusesThroughStop implements conductor.TransitStore.
func (r *PostgresStore) BusesThroughStop(ctx context.Context, stopID string) ([]conductor.Bus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT b.id, b.number, b.carrier, b.first_point, b.last_point,
		       b.route_length_km, b.duration_minutes, b.tariff, b.payment_type
		FROM route_stops rs
		JOIN buses b ON b.id = rs.bus_id
		WHERE rs.stop_id = $1
		ORDER BY b.number
	`, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conductor.Bus
	for rows.Next() {
		var bus conductor.Bus
		if err := rows.Scan(&bus.ID, &bus.Number, &bus.Carrier, &bus.FirstPoint, &bus.LastPoint,
			&bus.RouteLengthKm, &bus.DurationMinutes, &bus.Tariff, &bus.PaymentType); err != nil {
			return nil, err
		}
		out = append(out, bus)
	}
	return out, rows.Err()
}

// DirectRoutes implements conductor.TransitStore.
func (r *PostgresStore) DirectRoutes(ctx context.Context, originIDs, destIDs []string) ([]conductor.RouteRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.number, b.carrier, so.name, sd.name, d.seq - o.seq, b.tariff
		FROM route_stops o
		JOIN route_stops d ON d.bus_id = o.bus_id AND d.seq > o.seq
		JOIN buses b ON b.id = o.bus_id
		JOIN stops so ON so.id = o.stop_id
		JOIN stops sd ON sd.id = d.stop_id
		WHERE o.stop_id = ANY($1)
		  AND d.stop_id = ANY($2)
		ORDER BY d.seq - o.seq
	`, originIDs, destIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conductor.RouteRef
	seen := make(map[string]struct{})
	for rows.Next() {
		var ref conductor.RouteRef
		if err := rows.Scan(&ref.BusNumber, &ref.Carrier, &ref.OriginStopName, &ref.DestStopName, &ref.StopCount, &ref.Tariff); err != nil {
			return nil, err
		}
		if _, dup := seen[ref.BusNumber]; dup {
			continue
		}
		seen[ref.BusNumber] = struct{}{}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func sortStopsByDistance(stops []conductor.Stop) {
	sort.Slice(stops, func(i, j int) bool {
		return stops[i].DistanceMeters < stops[j].DistanceMeters
	})
}

var _ conductor.TransitStore = (*PostgresStore)(nil)
