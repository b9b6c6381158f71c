package publishing

import (
	"context"
	"fmt"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	dbregistry "github.com/granary-project/granary/pkg/domain/registry/db"
)

// Override names the columns an override change updates. Nil fields keep
// their current value; at least one must be set.
type Override struct {
	Component *string
	Section   *string

	// binaries only
	Priority *domain.PackagePriority
}

func (o Override) empty() bool {
	return o.Component == nil && o.Section == nil && o.Priority == nil
}

// Overrider changes the overrides of live publications.
//
// An override change never mutates a ledger row: it appends a new PENDING
// publication carrying the new overrides, and the dominator closes the old
// one on the next pass. Propose and Apply share all validation; Propose
// writes nothing, so an admin can preview the rows a change would append.
type Overrider struct {
	db       dbpublishing.Interface
	registry dbregistry.Interface

	now func() time.Time
}

type OverriderOption func(*Overrider) *Overrider

func WithOverrideClock(now func() time.Time) OverriderOption {
	return func(o *Overrider) *Overrider {
		o.now = now
		return o
	}
}

func NewOverrider(db dbpublishing.Interface, registry dbregistry.Interface, options ...OverriderOption) *Overrider {
	o := &Overrider{
		db:       db,
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range options {
		o = opt(o)
	}
	return o
}

// checkSuite refuses override changes into suites which can no longer be
// modified, so no row is ever appended that could not be published.
func (o *Overrider) checkSuite(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) error {
	archive, err := o.registry.GetArchive(ctx, archiveId)
	if err != nil {
		return err
	}
	series, err := o.registry.GetSeries(ctx, seriesId)
	if err != nil {
		return err
	}
	if !archive.CanModifySuite(series, pocket) {
		return &domerr.Conflict{Reason: fmt.Sprintf(
			"cannot change overrides in suite %s", pocket.Suite(series.Name),
		)}
	}
	return nil
}

// ProposeSourceOverride validates an override change against the live
// publication of the named source package and returns the PENDING row the
// change would append. Nothing is written.
//
// A change that leaves every column as it is yields no row and no error.
func (o *Overrider) ProposeSourceOverride(
	ctx context.Context,
	archiveId, seriesId int, pocket domain.Pocket,
	name string, change Override,
) (*domain.SourcePublication, error) {
	if change.empty() {
		return nil, fmt.Errorf(
			"override change for source %s names neither component nor section", name,
		)
	}
	if change.Priority != nil {
		return nil, fmt.Errorf(
			"source %s: priority is a binary override", name,
		)
	}

	current, err := o.db.ActiveSource(ctx, archiveId, seriesId, pocket, name)
	if err != nil {
		return nil, err
	}

	component, section := current.Component, current.Section
	if change.Component != nil {
		component = *change.Component
	}
	if change.Section != nil {
		section = *change.Section
	}
	if component == current.Component && section == current.Section {
		return nil, nil
	}

	if err := o.checkSuite(ctx, archiveId, seriesId, pocket); err != nil {
		return nil, err
	}

	return &domain.SourcePublication{
		ArchiveId:   archiveId,
		SeriesId:    seriesId,
		Pocket:      pocket,
		Component:   component,
		Section:     section,
		DateCreated: o.now(),
		Source:      current.Source,
	}, nil
}

// ApplySourceOverride appends the row ProposeSourceOverride validated.
func (o *Overrider) ApplySourceOverride(
	ctx context.Context,
	archiveId, seriesId int, pocket domain.Pocket,
	name string, change Override,
) (*domain.SourcePublication, error) {
	proposed, err := o.ProposeSourceOverride(ctx, archiveId, seriesId, pocket, name, change)
	if err != nil || proposed == nil {
		return nil, err
	}
	created, err := o.db.NewSource(ctx, *proposed)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ProposeBinaryOverride validates an override change against the live
// publications of the named binary package and returns the PENDING rows the
// change would append: one per architecture row of the current release, plus
// one per live debug-symbol shadow of the same builds. Nothing is written.
//
// Debug packages cannot be overridden directly; override the deb and the
// shadow follows.
func (o *Overrider) ProposeBinaryOverride(
	ctx context.Context,
	archiveId, seriesId int, pocket domain.Pocket,
	name string, change Override,
) ([]domain.BinaryPublication, error) {
	if change.empty() {
		return nil, fmt.Errorf(
			"override change for binary %s names neither component, section nor priority",
			name,
		)
	}

	live, err := o.db.LiveBinaries(ctx, archiveId, seriesId, pocket)
	if err != nil {
		return nil, err
	}

	current := []*domain.BinaryPublication{}
	builds := map[int]bool{}
	for _, pub := range live {
		if pub.Binary.Name != name {
			continue
		}
		if pub.Binary.IsDebug() {
			return nil, &domerr.Conflict{Reason: fmt.Sprintf(
				"cannot override debug package %s directly; override %s instead",
				name, pub.Binary.SourceName,
			)}
		}
		current = append(current, pub)
		builds[pub.Binary.BuildId] = true
	}
	if len(current) == 0 {
		return nil, domerr.ErrMissing
	}

	// All rows of one release carry one override; the first row is as good
	// as any for the change-detection baseline.
	baseline := current[0]
	component, section, priority := baseline.Component, baseline.Section, baseline.Priority
	if change.Component != nil {
		component = *change.Component
	}
	if change.Section != nil {
		section = *change.Section
	}
	if change.Priority != nil {
		priority = *change.Priority
	}
	if component == baseline.Component &&
		section == baseline.Section &&
		priority == baseline.Priority {
		return nil, nil
	}

	if err := o.checkSuite(ctx, archiveId, seriesId, pocket); err != nil {
		return nil, err
	}

	// debug-symbol shadows of the overridden builds follow along
	targets := append([]*domain.BinaryPublication{}, current...)
	for _, pub := range live {
		if pub.Binary.IsDebug() && builds[pub.Binary.BuildId] {
			targets = append(targets, pub)
		}
	}

	when := o.now()
	rows := []domain.BinaryPublication{}
	for _, pub := range targets {
		rows = append(rows, domain.BinaryPublication{
			ArchiveId:    archiveId,
			SeriesId:     seriesId,
			ArchSeriesId: pub.ArchSeriesId,
			ArchTag:      pub.ArchTag,
			Pocket:       pocket,
			Component:    component,
			Section:      section,
			Priority:     priority,
			DateCreated:  when,
			Binary:       pub.Binary,
		})
	}
	return rows, nil
}

// ApplyBinaryOverride appends the rows ProposeBinaryOverride validated.
func (o *Overrider) ApplyBinaryOverride(
	ctx context.Context,
	archiveId, seriesId int, pocket domain.Pocket,
	name string, change Override,
) ([]domain.BinaryPublication, error) {
	proposed, err := o.ProposeBinaryOverride(ctx, archiveId, seriesId, pocket, name, change)
	if err != nil || len(proposed) == 0 {
		return nil, err
	}
	return o.db.NewBinaries(ctx, proposed)
}
