package granary

import (
	"context"

	"github.com/granary-project/granary/pkg/conn/db/postgres/pool/proxy"
	"github.com/granary-project/granary/pkg/domain/copyjob"
	"github.com/granary-project/granary/pkg/domain/granary/db/postgres"
	"github.com/granary-project/granary/pkg/domain/initseries"
	"github.com/granary-project/granary/pkg/domain/publishing"
	"github.com/granary-project/granary/pkg/domain/queue"
	"github.com/granary-project/granary/pkg/domain/registry"
	"github.com/granary-project/granary/pkg/domain/schema"
)

type Granary interface {
	Registry() registry.Interface
	Queue() queue.Interface
	Publishing() publishing.Interface
	CopyJob() copyjob.Interface
	InitSeries() initseries.Interface
	Schema() schema.Interface

	// Events exposes hooks invoked around every SQL statement.
	Events() *proxy.SQLEvents

	Close() error
}

type granary struct {
	events     *proxy.SQLEvents
	registry   registry.Interface
	queue      queue.Interface
	publishing publishing.Interface
	copyjob    copyjob.Interface
	initseries initseries.Interface
	schema     schema.Interface

	close func() error
}

func New(
	ctx context.Context,
	database string,
	options ...Option,
) (Granary, error) {
	opt := &_options{}
	for _, o := range options {
		o(opt)
	}

	pg, err := postgres.New(ctx, database, opt.pg...)
	if err != nil {
		return nil, err
	}

	return &granary{
		events:     pg.Events(),
		registry:   registry.New(pg.Registry()),
		queue:      queue.NewConcern(pg.Queue()),
		publishing: publishing.New(pg.Publishing()),
		copyjob:    copyjob.NewConcern(pg.CopyJob()),
		initseries: initseries.NewConcern(pg.InitSeries()),
		schema:     schema.New(pg.Schema()),

		close: pg.Close,
	}, nil
}

type Option func(*_options)

type _options struct {
	pg []postgres.Option
}

func WithSchemaRepository(repository string) Option {
	return func(o *_options) {
		o.pg = append(o.pg, postgres.WithSchemaRepository(repository))
	}
}

func (g *granary) Events() *proxy.SQLEvents {
	return g.events
}

func (g *granary) Registry() registry.Interface {
	return g.registry
}

func (g *granary) Queue() queue.Interface {
	return g.queue
}

func (g *granary) Publishing() publishing.Interface {
	return g.publishing
}

func (g *granary) CopyJob() copyjob.Interface {
	return g.copyjob
}

func (g *granary) InitSeries() initseries.Interface {
	return g.initseries
}

func (g *granary) Schema() schema.Interface {
	return g.schema
}

func (g *granary) Close() error {
	return g.close()
}
