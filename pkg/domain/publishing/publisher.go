package publishing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/pool"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	"github.com/granary-project/granary/pkg/domain/publishing/store"
)

// Publisher lands PENDING publications on disk.
//
// For each pending publication it places every declared file in the pool,
// then flips the row to PUBLISHED. A publication whose files collide with
// the pool stays PENDING: the collision is logged and the rest of the batch
// proceeds, so one bad upload never blocks a publisher run.
type Publisher struct {
	db     dbpublishing.Interface
	store  store.Interface
	pool   *pool.DiskPool
	logger *log.Logger

	now func() time.Time
}

type PublisherOption func(*Publisher) *Publisher

func WithLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) *Publisher {
		p.logger = logger
		return p
	}
}

func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) *Publisher {
		p.now = now
		return p
	}
}

func NewPublisher(db dbpublishing.Interface, st store.Interface, diskpool *pool.DiskPool, options ...PublisherOption) *Publisher {
	p := &Publisher{
		db:     db,
		store:  st,
		pool:   diskpool,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, o := range options {
		p = o(p)
	}
	return p
}

// PublishPending publishes the pending publications of one suite.
//
// Returns how many publications were flipped to PUBLISHED.
func (p *Publisher) PublishPending(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) (int, error) {
	sources, err := p.db.LiveSources(ctx, archiveId, seriesId, pocket)
	if err != nil {
		return 0, err
	}
	binaries, err := p.db.LiveBinaries(ctx, archiveId, seriesId, pocket)
	if err != nil {
		return 0, err
	}

	placedSources := []int{}
	for _, pub := range sources {
		if pub.Status != domain.PubPending {
			continue
		}
		if err := p.place(ctx, pub.Component, pub.Source.Name, pub.Source.Files); err != nil {
			if errors.Is(err, ctx.Err()) {
				return 0, err
			}
			p.logger.Printf(
				"cannot publish source %s into pocket %s: %s",
				pub.Source.Title(), pocket, err,
			)
			continue
		}
		placedSources = append(placedSources, pub.Id)
	}

	placedBinaries := []int{}
	for _, pub := range binaries {
		if pub.Status != domain.PubPending {
			continue
		}
		if err := p.place(ctx, pub.Component, pub.Binary.SourceName, pub.Binary.Files); err != nil {
			if errors.Is(err, ctx.Err()) {
				return 0, err
			}
			p.logger.Printf(
				"cannot publish binary %s [%s]: %s",
				pub.Binary.Title(), pub.ArchTag, err,
			)
			continue
		}
		placedBinaries = append(placedBinaries, pub.Id)
	}

	if len(placedSources) == 0 && len(placedBinaries) == 0 {
		return 0, nil
	}
	if err := p.db.MarkPublished(ctx, p.now(), placedSources, placedBinaries); err != nil {
		return 0, err
	}
	return len(placedSources) + len(placedBinaries), nil
}

func (p *Publisher) place(ctx context.Context, component, sourceName string, files []domain.PackageFile) error {
	for _, file := range files {
		content, err := p.store.Contents(ctx, file.SHA256)
		if err != nil {
			return err
		}
		if _, err := p.pool.Place(component, sourceName, file.Filename, content); err != nil {
			return err
		}
	}
	return nil
}
