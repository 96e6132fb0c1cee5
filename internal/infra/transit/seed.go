package transit

import "github.com/elnurm/ip2data/internal/domain/conductor"

// SeedStore returns a memory store preloaded with a small demo network
// so the conductor endpoints work without a Postgres instance.
func SeedStore() *MemoryStore {
	stops := []conductor.Stop{
		{ID: "s1", Name: "Central Station", Latitude: 40.4093, Longitude: 49.8671},
		{ID: "s2", Name: "University", Latitude: 40.3989, Longitude: 49.8687},
		{ID: "s3", Name: "Seaside Park", Latitude: 40.3716, Longitude: 49.8442},
		{ID: "s4", Name: "Old Town", Latitude: 40.3662, Longitude: 49.8372},
		{ID: "s5", Name: "Airport Road", Latitude: 40.4675, Longitude: 50.0467},
		{ID: "s6", Name: "Harbor Terminal", Latitude: 40.3725, Longitude: 49.8533},
	}
	routes := []Route{
		{
			Bus: conductor.Bus{
				ID: "b65", Number: "65", Carrier: "CityBus",
				FirstPoint: "Central Station", LastPoint: "Old Town",
				RouteLengthKm: 7.5, DurationMinutes: 35, Tariff: "0.60", PaymentType: "card",
			},
			StopIDs: []string{"s1", "s2", "s6", "s4"},
		},
		{
			Bus: conductor.Bus{
				ID: "b14", Number: "14", Carrier: "CityBus",
				FirstPoint: "University", LastPoint: "Seaside Park",
				RouteLengthKm: 5.2, DurationMinutes: 25, Tariff: "0.60", PaymentType: "card",
			},
			StopIDs: []string{"s2", "s1", "s3"},
		},
		{
			Bus: conductor.Bus{
				ID: "bH1", Number: "H1", Carrier: "AirportExpress",
				FirstPoint: "Central Station", LastPoint: "Airport Road",
				RouteLengthKm: 22.4, DurationMinutes: 40, Tariff: "1.30", PaymentType: "card",
			},
			StopIDs: []string{"s1", "s5"},
		},
	}
	return NewMemoryStore(stops, routes)
}
