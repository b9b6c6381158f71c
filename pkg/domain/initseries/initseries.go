// Package initseries opens a new series from one or more parents.
//
// Initialization is split in two phases. Check is strictly read-only and
// raises one of the named initialization failures; Initialize runs Check
// and then executes the resolved plan in a single transaction. A failed
// check never leaves partial state behind.
package initseries

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbinitseries "github.com/granary-project/granary/pkg/domain/initseries/db"
	dbregistry "github.com/granary-project/granary/pkg/domain/registry/db"
	"github.com/granary-project/granary/pkg/utils/slices"
)

// Request describes one initialization as the operator asked for it.
// Everything but SeriesId is optional; Check resolves the rest.
type Request struct {
	// The series to initialize.
	SeriesId int

	// Parents to clone from, in precedence order. Empty infers a single
	// parent: the previous series when the target names one, the newest
	// initialized series of the distribution otherwise.
	ParentIds []int

	// Architecture tags to initialize. Empty takes every enabled
	// architecture of the parents.
	Arches []string

	// The architecture to build arch-independent packages on. Empty
	// inherits the first parent's nomination.
	ArchIndep string

	// Packagesets restricting which sources are cloned and checked.
	// Empty clones everything.
	PacksetIds []int

	// Clone source publications only and rebuild the binaries.
	Rebuild bool
}

type Initializer struct {
	db       dbinitseries.Interface
	registry dbregistry.Interface
	req      Request

	now func() time.Time
}

type Option func(*Initializer) *Initializer

func WithClock(now func() time.Time) Option {
	return func(i *Initializer) *Initializer {
		i.now = now
		return i
	}
}

func New(
	db dbinitseries.Interface,
	registry dbregistry.Interface,
	req Request,
	options ...Option,
) *Initializer {
	i := &Initializer{
		db:       db,
		registry: registry,
		req:      req,
		now:      time.Now,
	}
	for _, o := range options {
		i = o(i)
	}
	return i
}

// Check runs every pre-flight check and resolves the request into an
// executable plan. It performs no writes.
//
// Returns error wrapping ErrInitialization when a check fails; the carried
// Initialization names which one.
func (i *Initializer) Check(ctx context.Context) (dbinitseries.Plan, error) {
	none := dbinitseries.Plan{}

	target, err := i.registry.GetSeries(ctx, i.req.SeriesId)
	if err != nil {
		return none, err
	}
	if err := i.checkUninitialized(ctx, target); err != nil {
		return none, err
	}

	if _, err := i.registry.PublisherConfig(ctx, target.Distribution); err != nil {
		if errors.Is(err, domerr.ErrMissing) {
			return none, domerr.NewInitialization(
				domerr.InitNoPublisherConfig,
				"distribution %s has no publisher configuration",
				target.Distribution,
			)
		}
		return none, err
	}

	dist, err := i.db.Distribution(ctx, target.Distribution)
	if err != nil {
		return none, err
	}
	targetArchive, err := i.db.PrimaryArchive(ctx, target.Distribution)
	if err != nil {
		return none, err
	}

	parents, err := i.resolveParents(ctx, target)
	if err != nil {
		return none, err
	}

	arches, archIndep, err := i.resolveArches(ctx, parents)
	if err != nil {
		return none, err
	}

	// the packageset scope narrows every remaining check
	scope := []string{}
	if len(i.req.PacksetIds) > 0 {
		if scope, err = i.db.PacksetSourceNames(ctx, i.req.PacksetIds); err != nil {
			return none, err
		}
	}

	for _, parent := range parents {
		if err := i.checkNoPendingBuilds(ctx, parent, arches, scope); err != nil {
			return none, err
		}
		if err := i.checkQueueClear(ctx, parent, scope); err != nil {
			return none, err
		}
	}
	if err := i.checkUnambiguous(ctx, parents); err != nil {
		return none, err
	}

	return dbinitseries.Plan{
		Target:          target,
		TargetArchiveId: targetArchive.Id,
		TargetOwner:     dist.Owner,
		Parents:         parents,
		Arches:          arches,
		ArchIndep:       archIndep,
		PacksetIds:      i.req.PacksetIds,
		Rebuild:         i.req.Rebuild,
		When:            i.now(),
	}, nil
}

// Initialize checks and, when everything passes, executes the plan.
func (i *Initializer) Initialize(ctx context.Context) error {
	plan, err := i.Check(ctx)
	if err != nil {
		return err
	}
	if err := i.db.Initialize(ctx, plan); err != nil {
		return domerr.NewInitialization(
			domerr.InitCopyFailed,
			"initializing %s failed: %s", plan.Target.Name, err,
		)
	}
	return nil
}

func (i *Initializer) checkUninitialized(ctx context.Context, target domain.Series) error {
	if target.Initialized() {
		return domerr.NewInitialization(
			domerr.InitAlreadyInitialized,
			"series %s is already initialized", target.Name,
		)
	}
	arches, err := i.registry.ArchSerieses(ctx, target.Id)
	if err != nil {
		return err
	}
	if len(arches) > 0 {
		return domerr.NewInitialization(
			domerr.InitAlreadyInitialized,
			"series %s already has architectures", target.Name,
		)
	}
	return nil
}

func (i *Initializer) resolveParents(ctx context.Context, target domain.Series) ([]dbinitseries.Parent, error) {
	parentIds := i.req.ParentIds
	if len(parentIds) == 0 {
		inferred, err := i.inferParent(ctx, target)
		if err != nil {
			return nil, err
		}
		parentIds = []int{inferred}
	}

	parents := []dbinitseries.Parent{}
	for _, parentId := range parentIds {
		series, err := i.registry.GetSeries(ctx, parentId)
		if err != nil {
			return nil, err
		}
		archive, err := i.db.PrimaryArchive(ctx, series.Distribution)
		if err != nil {
			return nil, err
		}
		parents = append(parents, dbinitseries.Parent{
			Series:           series,
			ArchiveId:        archive.Id,
			SameDistribution: series.Distribution == target.Distribution,
		})
	}
	return parents, nil
}

// inferParent picks the parent of a parentless request: the previous
// series when the target names one, the newest initialized series of the
// distribution otherwise.
func (i *Initializer) inferParent(ctx context.Context, target domain.Series) (int, error) {
	if target.PreviousSeriesId != nil {
		return *target.PreviousSeriesId, nil
	}

	serieses, err := i.registry.SeriesOfDistribution(ctx, target.Distribution)
	if err != nil {
		return 0, err
	}
	others := slices.Filter(serieses, func(s domain.Series) bool {
		return s.Id != target.Id
	})
	if len(others) == 0 {
		return 0, domerr.NewInitialization(
			domerr.InitNoParents,
			"%s is the first series of %s; pass an explicit parent list",
			target.Name, target.Distribution,
		)
	}
	// newest first
	parent, ok := slices.First(others, domain.Series.Initialized)
	if !ok {
		return 0, domerr.NewInitialization(
			domerr.InitNoPreviousSeries,
			"%s has no initialized series to infer a parent from",
			target.Distribution,
		)
	}
	return parent.Id, nil
}

func (i *Initializer) resolveArches(ctx context.Context, parents []dbinitseries.Parent) ([]string, string, error) {
	inherited := []string{}
	seen := map[string]bool{}
	nominated := ""
	for _, parent := range parents {
		arches, err := i.registry.ArchSerieses(ctx, parent.Series.Id)
		if err != nil {
			return nil, "", err
		}
		for _, arch := range arches {
			if !arch.Enabled || seen[arch.ArchTag] {
				continue
			}
			seen[arch.ArchTag] = true
			inherited = append(inherited, arch.ArchTag)
			if nominated == "" && arch.NominatedArchIndep {
				nominated = arch.ArchTag
			}
		}
	}

	selected := inherited
	if len(i.req.Arches) > 0 {
		selected = slices.Filter(i.req.Arches, func(tag string) bool {
			return seen[tag]
		})
	}
	if len(selected) == 0 {
		return nil, "", domerr.NewInitialization(
			domerr.InitNoArchIndep,
			"no architecture of the parents matches the selection",
		)
	}

	archIndep := i.req.ArchIndep
	if archIndep == "" {
		archIndep = nominated
	}
	if _, ok := slices.First(selected, func(tag string) bool {
		return tag == archIndep
	}); !ok {
		return nil, "", domerr.NewInitialization(
			domerr.InitNoArchIndep,
			"the selected architectures leave nowhere to build arch-independent packages",
		)
	}
	return selected, archIndep, nil
}

func (i *Initializer) checkNoPendingBuilds(ctx context.Context, parent dbinitseries.Parent, arches []string, scope []string) error {
	titles, err := i.db.PendingBuildSources(ctx, parent.Series.Id, arches, scope)
	if err != nil {
		return err
	}
	if len(titles) > 0 {
		return domerr.NewInitialization(
			domerr.InitPendingBuilds,
			"parent series %s has pending builds for %s",
			parent.Series.Name, strings.Join(titles, ", "),
		)
	}
	return nil
}

func (i *Initializer) checkQueueClear(ctx context.Context, parent dbinitseries.Parent, scope []string) error {
	names, err := i.db.HeldUploadNames(
		ctx, parent.Series.Id, domain.InitPockets(), scope,
	)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return domerr.NewInitialization(
			domerr.InitQueueConflict,
			"parent series %s still has queue items for %s",
			parent.Series.Name, strings.Join(names, ", "),
		)
	}
	return nil
}

// checkUnambiguous refuses initializations where two parents would
// contribute the exact same source release. Picking one arbitrarily is
// worse than failing.
func (i *Initializer) checkUnambiguous(ctx context.Context, parents []dbinitseries.Parent) error {
	if len(parents) < 2 {
		return nil
	}

	contributors := map[string]int{}
	for _, parent := range parents {
		titles, err := i.db.ActiveSourceTitles(
			ctx, parent.ArchiveId, parent.Series.Id, domain.InitPockets(),
		)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, title := range titles {
			if seen[title] {
				continue
			}
			seen[title] = true
			contributors[title]++
		}
	}

	duplicated := slices.Filter(slices.KeysOf(contributors), func(title string) bool {
		return contributors[title] > 1
	})
	if len(duplicated) > 0 {
		return domerr.NewInitialization(
			domerr.InitAmbiguousParents,
			"more than one parent publishes %s",
			strings.Join(
				slices.Sorted(duplicated, func(a, b string) bool { return a < b }),
				", ",
			),
		)
	}
	return nil
}
