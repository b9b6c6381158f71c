package queue

import (
	"context"
	"time"

	"github.com/granary-project/granary/pkg/domain"
)

// Announcer tells the world about a queue action, typically by mail to the
// uploader and the changes lists. Failures are the announcer's problem, the
// queue never rolls back over a lost announcement.
type Announcer interface {
	Announce(ctx context.Context, upload *domain.Upload, action string)
}

// AuditLogger records who got what accepted, fire and forget.
type AuditLogger interface {
	Accepted(ctx context.Context, upload *domain.Upload, when time.Time)
}

// BugCloser receives the changes file text of an accepted upload so the
// bugs it claims to fix can be closed.
type BugCloser interface {
	Close(ctx context.Context, upload *domain.Upload, changes []byte)
}

// CopyRunner drives the copy job behind a copy upload: acceptance resumes
// the job, rejection cancels it.
type CopyRunner interface {
	Resume(ctx context.Context, jobId int) error
	Cancel(ctx context.Context, jobId int) error
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(context.Context, *domain.Upload, string) {}

type nopAuditLogger struct{}

func (nopAuditLogger) Accepted(context.Context, *domain.Upload, time.Time) {}

type nopBugCloser struct{}

func (nopBugCloser) Close(context.Context, *domain.Upload, []byte) {}
