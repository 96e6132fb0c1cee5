// Command dashcli fetches the aggregated dashboard payload from a
// running server, printing the loading stages while the request is in
// flight.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/elnurm/ip2data/internal/dashclient"
	"github.com/elnurm/ip2data/pkg/loadstage"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the dashboard server")
	flag.Parse()

	stages := loadstage.NewController(loadstage.DefaultInterval, func(stage string) {
		fmt.Printf("  %s\n", stage)
	})
	client := dashclient.New(*server, stages)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	data, err := client.Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("IP:        %s\n", data.IP.IP)
	fmt.Printf("Location:  %s, %s, %s (%s)\n", data.Geo.City, data.Geo.RegionName, data.Geo.Country, data.Geo.Timezone)
	fmt.Printf("ISP:       %s\n", data.Geo.ISP)
	fmt.Printf("Weather:   %.1f°C, wind %.1f km/h\n", data.Weather.Current.Temperature2m, data.Weather.Current.WindSpeed10m)
	if data.AirQuality.Current.EuropeanAQI != nil {
		fmt.Printf("Air (EU):  %.0f AQI\n", *data.AirQuality.Current.EuropeanAQI)
	}
	fmt.Printf("Country:   %s [%s]\n", data.Country.Name.Common, data.Country.Region)
}
