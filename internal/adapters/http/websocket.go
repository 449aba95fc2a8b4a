package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/suuupra/livetrack/internal/core/fanout"
	"github.com/suuupra/livetrack/internal/pkg/metrics"
)

// WebSocketHandler streams live events for one entity (or all entities
// when the path has no entity_id) from the fan-out broker. Frames are
// JSON: position samples, geofence transitions, and gap markers when
// the subscriber's queue overflowed and events were discarded.
func WebSocketHandler(broker *fanout.Broker) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		entityID := c.Params("entity_id") // "" subscribes to everything
		remoteAddr := c.RemoteAddr().String()

		sub := broker.Subscribe(entityID)
		defer broker.Unsubscribe(sub)

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		slog.Info("ws client connected", "remote", remoteAddr, "entity_id", entityID)

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		done := make(chan struct{})

		// Writer: drain the subscription until it closes or the socket dies.
		go func() {
			defer close(done)
			for ev := range sub.Events() {
				if ev.Kind == fanout.KindGap {
					metrics.FanoutDropped.Add(float64(ev.Dropped))
				}
				if err := writeJSON(ev); err != nil {
					return
				}
			}
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read loop only detects disconnect; clients send nothing.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}

		broker.Unsubscribe(sub) // closes the channel, stops the writer
		<-done
		slog.Info("ws client disconnected", "remote", remoteAddr, "entity_id", entityID)
	}
}
