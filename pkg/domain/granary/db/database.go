package db

import (
	"github.com/granary-project/granary/pkg/conn/db/postgres/pool/proxy"
	kcopyjob "github.com/granary-project/granary/pkg/domain/copyjob/db"
	kinitseries "github.com/granary-project/granary/pkg/domain/initseries/db"
	kpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	kqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	kregistry "github.com/granary-project/granary/pkg/domain/registry/db"
	kschema "github.com/granary-project/granary/pkg/domain/schema/db"
)

type GranaryDatabase interface {
	// Events exposes hooks invoked around every SQL statement.
	Events() *proxy.SQLEvents
	Registry() kregistry.Interface
	Queue() kqueue.Interface
	Publishing() kpublishing.Interface
	CopyJob() kcopyjob.Interface
	InitSeries() kinitseries.Interface
	Schema() kschema.SchemaInterface
	Close() error
}
