package http

import (
	"github.com/nats-io/nats.go"

	"github.com/arboimoveis/mapexplorer/internal/adapters/postgres"
	"github.com/arboimoveis/mapexplorer/internal/adapters/valkey"
	"github.com/arboimoveis/mapexplorer/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Properties *usecases.PropertyService
	Explorers  *usecases.ExplorerService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
