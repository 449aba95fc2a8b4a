package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/suuupra/livetrack/internal/core/domain"
	"github.com/suuupra/livetrack/internal/pkg/config"
)

// The simulator publishes synthetic device reports on track.report.>
// so the ingestor pipeline can be exercised without real hardware.
// Each simulated entity random-walks from a shared starting point.
func main() {
	entities := flag.Int("entities", 10, "number of simulated entities")
	interval := flag.Duration("interval", 1*time.Second, "report interval per entity")
	startLat := flag.Float64("lat", 12.9716, "starting latitude")
	startLon := flag.Float64("lon", 77.5946, "starting longitude")
	flag.Parse()

	cfg, err := config.Load("livetrack-simulator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer nc.Drain()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("jetstream: %v", err)
	}

	type walker struct {
		entityID string
		lat, lon float64
	}

	walkers := make([]*walker, *entities)
	for i := range walkers {
		walkers[i] = &walker{
			entityID: fmt.Sprintf("sim-%03d", i),
			lat:      *startLat + rand.Float64()*0.01,
			lon:      *startLon + rand.Float64()*0.01,
		}
	}

	log.Printf("simulating %d entities every %s", *entities, *interval)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			for _, w := range walkers {
				// ~5-10m steps in a random direction
				w.lat += (rand.Float64() - 0.5) * 0.0002
				w.lon += (rand.Float64() - 0.5) * 0.0002

				accuracy := 5 + rand.Float64()*15
				report := domain.PositionSample{
					EntityID:       w.entityID,
					Latitude:       w.lat,
					Longitude:      w.lon,
					AccuracyMeters: &accuracy,
					CapturedAt:     time.Now().UTC(),
				}
				data, err := json.Marshal(&report)
				if err != nil {
					continue
				}
				if _, err := js.Publish("track.report."+w.entityID, data); err != nil {
					log.Printf("publish %s: %v", w.entityID, err)
				}
			}
		case sig := <-quit:
			log.Printf("received signal %v, stopping simulator", sig)
			return
		}
	}
}
