package http

import (
	"github.com/nats-io/nats.go"

	"github.com/nishantpoudel/assettrace/internal/adapters/postgres"
	"github.com/nishantpoudel/assettrace/internal/adapters/valkey"
	"github.com/nishantpoudel/assettrace/internal/core/ports"
	"github.com/nishantpoudel/assettrace/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Ingest       *usecases.IngestService
	Violations   *usecases.ViolationService
	Containments *usecases.ContainmentService
	Offices      ports.OfficeRepository
	Readers      ports.ReaderRepository
	Tags         ports.TagRepository
	Events       ports.DetectionEventRepository
	Alerts       ports.AlertRepository
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}
