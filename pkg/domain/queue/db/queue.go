package db

import (
	"context"

	"github.com/granary-project/granary/pkg/domain"
)

// Filter narrows List. Zero value lists everything.
type Filter struct {
	Statuses  []domain.UploadStatus
	ArchiveId *int
	SeriesId  *int
}

// Interface is the upload queue ledger.
//
// Uploads are never deleted; status transitions are the only writes after
// New, and every transition is guarded by the statuses it may leave from.
type Interface interface {
	// New appends an upload in status NEW with its sources, builds and
	// custom files attached.
	//
	// The returned upload carries its assigned id.
	New(ctx context.Context, upload domain.Upload) (domain.Upload, error)

	// Get fetches an upload with everything it carries.
	//
	// Returns error wrapping ErrMissing when no such upload exists.
	Get(ctx context.Context, uploadId int) (*domain.Upload, error)

	// List fetches the uploads matching filter, oldest first.
	List(ctx context.Context, filter Filter) ([]*domain.Upload, error)

	// UpdateStatus moves an upload to status to, provided its current
	// status is one of from.
	//
	// Returns error wrapping ErrMissing when no such upload exists, and an
	// illegal-transition error wrapping ErrInconsistentState when the
	// current status is not in from. The row is untouched either way.
	UpdateStatus(ctx context.Context, uploadId int, from []domain.UploadStatus, to domain.UploadStatus) error

	// AcceptedSeries lists the names of series into which an upload of the
	// named source version is already accepted or done, archive-wide.
	//
	// Version strings are unique per distribution, so any hit blocks
	// accepting the same version again whatever series it targets.
	AcceptedSeries(ctx context.Context, archiveId int, name string, version string) ([]string, error)
}
