package db

import (
	"context"
	"time"

	"github.com/granary-project/granary/pkg/domain"
)

// Parent is one series publications are cloned from, resolved to its
// primary archive.
type Parent struct {
	Series    domain.Series
	ArchiveId int

	// The parent belongs to the target's distribution. Same-distribution
	// parents carry their uploader permissions and packageset ownership
	// over; cross-distribution parents carry neither, and cloned
	// packagesets are re-owned by the target distribution's owner.
	SameDistribution bool
}

// Plan is the outcome of the read-only check phase: everything the write
// phase needs, fully resolved. Initialize trusts it blindly.
type Plan struct {
	Target          domain.Series
	TargetArchiveId int

	// Owner of the target distribution, the new owner of packagesets
	// cloned from cross-distribution parents.
	TargetOwner string

	// Parents in precedence order. The first parent contributing a source
	// package wins; Check has already ruled out ties.
	Parents []Parent

	// Architecture tags to initialize, and which of them publishes the
	// arch-independent binaries.
	Arches    []string
	ArchIndep string

	// Packageset ids restricting which sources are cloned. Empty clones
	// everything.
	PacksetIds []int

	// Clone source publications only, leaving the binaries to be rebuilt.
	Rebuild bool

	When time.Time
}

// Interface covers series initialization: the read-only queries behind the
// pre-flight checks and the one write that executes a checked plan.
type Interface interface {
	// Distribution fetches a distribution by name.
	//
	// Returns error wrapping ErrMissing when no such distribution exists.
	Distribution(ctx context.Context, name string) (domain.Distribution, error)

	// PrimaryArchive fetches the distribution's primary archive.
	//
	// Returns error wrapping ErrMissing when the distribution has none.
	PrimaryArchive(ctx context.Context, distribution string) (domain.Archive, error)

	// PendingBuildSources lists titles (name/version) of source releases
	// with unfinished builds in the series. archTags and names scope the
	// query when non-empty; pending builds outside the scope are invisible.
	PendingBuildSources(ctx context.Context, seriesId int, archTags []string, names []string) ([]string, error)

	// HeldUploadNames lists package names of uploads still holding the
	// series queue (status NEW, ACCEPTED or UNAPPROVED) in the given
	// pockets. names scopes the query when non-empty.
	HeldUploadNames(ctx context.Context, seriesId int, pockets []domain.Pocket, names []string) ([]string, error)

	// ActiveSourceTitles lists titles (name/version) of sources live in
	// the archive's series under the given pockets.
	ActiveSourceTitles(ctx context.Context, archiveId, seriesId int, pockets []domain.Pocket) ([]string, error)

	// PacksetSourceNames lists the source package names the given
	// packagesets contain, deduplicated.
	PacksetSourceNames(ctx context.Context, packsetIds []int) ([]string, error)

	// Initialize executes a checked plan in one transaction: parent links,
	// architecture rows, permitted components, PENDING publications,
	// packageset clones and permission copies.
	Initialize(ctx context.Context, plan Plan) error
}
