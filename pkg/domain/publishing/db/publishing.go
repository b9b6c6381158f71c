package db

import (
	"context"
	"time"

	"github.com/granary-project/granary/pkg/domain"
)

// Interface is the publishing ledger.
//
// Rows are append-only: new publications enter as PENDING, the publisher
// flips them to PUBLISHED once their files are on disk, and the dominator
// or a deletion request closes them. A closed row never becomes live again.
type Interface interface {
	// NewSource appends one PENDING source publication.
	//
	// The returned publication carries its assigned id.
	NewSource(ctx context.Context, pub domain.SourcePublication) (domain.SourcePublication, error)

	// NewBinaries appends PENDING binary publications in bulk, one row per
	// (binary release, architecture) pair the caller expanded.
	NewBinaries(ctx context.Context, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error)

	// NewPublicationSet appends the source and binary publications of one
	// realised upload or copy in a single transaction: either every row
	// lands or none does.
	//
	// With doneUploadId nonzero, the upload behind the set is closed
	// (ACCEPTED to DONE) in the same transaction, so a retried operation
	// never finds the rows without the flip or the flip without the rows.
	NewPublicationSet(ctx context.Context, doneUploadId int, sources []domain.SourcePublication, binaries []domain.BinaryPublication) ([]domain.SourcePublication, []domain.BinaryPublication, error)

	// MarkPublished flips PENDING publications to PUBLISHED with the given
	// datepublished. Rows not in PENDING are left untouched.
	MarkPublished(ctx context.Context, when time.Time, sourceIds []int, binaryIds []int) error

	// LiveSources lists source publications still taking part in the suite
	// (status PENDING or PUBLISHED), with their source releases attached.
	LiveSources(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.SourcePublication, error)

	// LiveBinaries lists live binary publications of the suite across all
	// architectures, with their binary releases attached.
	LiveBinaries(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.BinaryPublication, error)

	// ActiveSource finds the current live publication of a source package
	// in a suite, the most recent when several are live.
	//
	// Returns error wrapping ErrMissing when the package is not live there.
	ActiveSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, name string) (*domain.SourcePublication, error)

	// ActiveBinariesOfSource lists live binary publications built from the
	// given source release in a suite.
	ActiveBinariesOfSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, sourceReleaseId int) ([]*domain.BinaryPublication, error)

	// Apply commits one domination run: every supersession and deletion
	// schedule in the decisions, in a single transaction.
	Apply(ctx context.Context, decisions domain.DominationDecisions) error

	// RequestDeletion closes live publications with status DELETED and
	// schedules their pool files for removal.
	RequestDeletion(ctx context.Context, when time.Time, scheduledFor time.Time, sourceIds []int, binaryIds []int) error

	// ConflictingFiles reports which of the candidate files are already
	// carried by a live publication of the archive under a different
	// content hash. Same name with same hash is not a conflict.
	ConflictingFiles(ctx context.Context, archiveId int, candidates []domain.PackageFile) ([]string, error)
}
