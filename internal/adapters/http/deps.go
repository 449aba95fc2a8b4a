package http

import (
	natsadapter "github.com/suuupra/livetrack/internal/adapters/nats"
	"github.com/suuupra/livetrack/internal/adapters/postgres"
	"github.com/suuupra/livetrack/internal/adapters/valkey"
	"github.com/suuupra/livetrack/internal/core/fanout"
	"github.com/suuupra/livetrack/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Ingest    *usecases.IngestService
	Queries   *usecases.QueryService
	Geofences *usecases.GeofenceService
	Broker    *fanout.Broker
	Publisher *natsadapter.Publisher
	DB        *postgres.DB
	Cache     *valkey.Cache
}
