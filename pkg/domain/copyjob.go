package domain

import "time"

// CopyJob is a durable description of one cross-archive or cross-series
// copy. It is queued, then resumed and executed as an idempotent
// copy-and-publish operation; its lifecycle is independent of the upload
// queue's state machine.
type CopyJob struct {
	Id     int
	Status CopyJobStatus

	// A held job waits for queue review: the runner skips it until the
	// upload backing it is accepted.
	Held bool

	SourceArchiveId int
	SourceSeriesId  int
	SourcePocket    Pocket
	TargetArchiveId int
	TargetSeriesId  int
	TargetPocket    Pocket

	PackageName    string
	PackageVersion string

	// Copy the built binaries along with the source.
	IncludeBinaries bool

	Attempts    int
	Error       string
	DateCreated time.Time
	DateStarted *time.Time
	DateDone    *time.Time
}
