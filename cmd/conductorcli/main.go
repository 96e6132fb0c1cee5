// Command conductorcli is a terminal chat client for the transit
// assistant. It keeps the session alive across server restarts and
// renders map updates as plain text.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/elnurm/ip2data/internal/conductorclient"
)

// textMap prints map updates instead of drawing them.
type textMap struct {
	out io.Writer
}

func (m *textMap) SetUserLocation(lat, lng float64) {
	fmt.Fprintf(m.out, "[map] you are at %.5f, %.5f\n", lat, lng)
}

func (m *textMap) ShowStops(stops []conductorclient.MapPoint) {
	for _, stop := range stops {
		if stop.DistanceMeters > 0 {
			fmt.Fprintf(m.out, "[map] %s (%.0f m)\n", stop.Name, stop.DistanceMeters)
		} else {
			fmt.Fprintf(m.out, "[map] %s\n", stop.Name)
		}
	}
}

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the conductor server")
	lat := flag.Float64("lat", 0, "initial latitude, 0 to omit")
	lng := flag.Float64("lng", 0, "initial longitude, 0 to omit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := conductorclient.New(*server, &textMap{out: os.Stdout}, logger)

	var latPtr, lngPtr *float64
	if *lat != 0 || *lng != 0 {
		latPtr, lngPtr = lat, lng
	}

	ctx := context.Background()
	greeting, err := client.StartSession(ctx, latPtr, lngPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start session: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(greeting)
	fmt.Printf("try: %s\n\n", strings.Join(client.Suggestions(), " | "))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "/quit" {
			break
		}
		if after, ok := strings.CutPrefix(message, "/loc "); ok {
			if err := applyLocation(ctx, client, after); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		resp, err := client.Send(ctx, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(resp.Reply)
	}
}

// applyLocation parses "/loc <lat> <lng>" and pushes the position.
func applyLocation(ctx context.Context, client *conductorclient.Client, args string) error {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return fmt.Errorf("usage: /loc <lat> <lng>")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	return client.UpdateLocation(ctx, lat, lng)
}
