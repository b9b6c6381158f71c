package postgres

import (
	"context"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/conn/db/postgres/pool/proxy"
	kcopyjob "github.com/granary-project/granary/pkg/domain/copyjob/db"
	kpgcopyjob "github.com/granary-project/granary/pkg/domain/copyjob/db/postgres"
	dbInterface "github.com/granary-project/granary/pkg/domain/granary/db"
	kinitseries "github.com/granary-project/granary/pkg/domain/initseries/db"
	kpginitseries "github.com/granary-project/granary/pkg/domain/initseries/db/postgres"
	kpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	kpgpublishing "github.com/granary-project/granary/pkg/domain/publishing/db/postgres"
	kqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	kpgqueue "github.com/granary-project/granary/pkg/domain/queue/db/postgres"
	kregistry "github.com/granary-project/granary/pkg/domain/registry/db"
	kpgregistry "github.com/granary-project/granary/pkg/domain/registry/db/postgres"
	kschema "github.com/granary-project/granary/pkg/domain/schema/db"
	kpgschema "github.com/granary-project/granary/pkg/domain/schema/db/postgres"
	xe "github.com/granary-project/granary/pkg/errors"
	"github.com/jackc/pgx/v4/pgxpool"
)

type granaryDBPostgres struct {
	pool       *pgxpool.Pool
	events     *proxy.SQLEvents
	registry   kregistry.Interface
	queue      kqueue.Interface
	publishing kpublishing.Interface
	copyjob    kcopyjob.Interface
	initseries kinitseries.Interface
	schema     kschema.SchemaInterface
}

type Config struct {
	SchemaRepository string
}

func DefaultConfig() Config {
	return Config{}
}

type Option func(*Config) *Config

func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(
	ctx context.Context,
	url string,
	options ...Option,
) (dbInterface.GranaryDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	// every repository shares the proxy, so its hooks see all statements
	p := proxy.Wrap(kpool.Wrap(pool))
	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &granaryDBPostgres{
		pool:       pool,
		events:     p.Events(),
		registry:   kpgregistry.New(p),
		queue:      kpgqueue.New(p),
		publishing: kpgpublishing.New(p),
		copyjob:    kpgcopyjob.New(p),
		initseries: kpginitseries.New(p),
		schema:     schema,
	}, nil
}

func (g *granaryDBPostgres) Events() *proxy.SQLEvents {
	return g.events
}

func (g *granaryDBPostgres) Registry() kregistry.Interface {
	return g.registry
}

func (g *granaryDBPostgres) Queue() kqueue.Interface {
	return g.queue
}

func (g *granaryDBPostgres) Publishing() kpublishing.Interface {
	return g.publishing
}

func (g *granaryDBPostgres) CopyJob() kcopyjob.Interface {
	return g.copyjob
}

func (g *granaryDBPostgres) InitSeries() kinitseries.Interface {
	return g.initseries
}

func (g *granaryDBPostgres) Schema() kschema.SchemaInterface {
	return g.schema
}

func (g *granaryDBPostgres) Close() error {
	g.pool.Close()
	return nil
}
