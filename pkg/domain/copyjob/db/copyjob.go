package db

import (
	"context"

	"github.com/granary-project/granary/pkg/domain"
)

// Interface is the copy job ledger.
//
// Jobs enter as QUEUED, held when their upload still waits for review. The
// runner pops runnable jobs one at a time; a popped job ends the attempt as
// COMPLETED or FAILED, never QUEUED.
type Interface interface {
	// New appends a job. The returned job carries its assigned id.
	New(ctx context.Context, job domain.CopyJob) (domain.CopyJob, error)

	// Get fetches a job.
	//
	// Returns error wrapping ErrMissing when no such job exists.
	Get(ctx context.Context, jobId int) (domain.CopyJob, error)

	// Pop picks one runnable QUEUED job, locks it against other runners,
	// bumps its attempt count and hands it to callback. The job ends up
	// COMPLETED, or FAILED carrying the callback's error message.
	//
	// Returns whether a job was popped. A callback failure is recorded on
	// the job, not returned.
	Pop(ctx context.Context, callback func(domain.CopyJob) error) (bool, error)

	// Release lets a held job run, and requeues it when an earlier attempt
	// failed.
	Release(ctx context.Context, jobId int) error

	// Cancel fails a job that has not completed. Idempotent on an already
	// cancelled job.
	Cancel(ctx context.Context, jobId int) error
}
