package db

import (
	"context"

	"github.com/granary-project/granary/pkg/domain"
)

// Interface looks up the archive topology: distributions, archives, series
// and their architectures. It is read-only, series initialization is the
// only writer and has its own interface.
type Interface interface {
	// GetArchive fetches an archive by id.
	//
	// Returns error wrapping ErrMissing when no such archive exists.
	GetArchive(ctx context.Context, archiveId int) (domain.Archive, error)

	// FindArchive fetches an archive by distribution and name.
	//
	// Returns error wrapping ErrMissing when no such archive exists.
	FindArchive(ctx context.Context, distribution string, name string) (domain.Archive, error)

	// GetSeries fetches a series by id, parent ids attached.
	//
	// Returns error wrapping ErrMissing when no such series exists.
	GetSeries(ctx context.Context, seriesId int) (domain.Series, error)

	// FindSeries fetches a series by distribution and name.
	//
	// Returns error wrapping ErrMissing when no such series exists.
	FindSeries(ctx context.Context, distribution string, name string) (domain.Series, error)

	// SeriesOfDistribution lists every series of the distribution, newest
	// first by id.
	SeriesOfDistribution(ctx context.Context, distribution string) ([]domain.Series, error)

	// ArchSerieses lists the architectures of a series, enabled or not.
	ArchSerieses(ctx context.Context, seriesId int) ([]domain.ArchSeries, error)

	// PermittedComponents lists the component names uploads into the series
	// may target.
	PermittedComponents(ctx context.Context, seriesId int) ([]string, error)

	// Sections lists every known section name.
	Sections(ctx context.Context) ([]string, error)

	// PublisherConfig fetches the publisher configuration of a distribution.
	//
	// Returns error wrapping ErrMissing when the distribution has none.
	PublisherConfig(ctx context.Context, distribution string) (domain.PublisherConfig, error)
}
