// Package queue runs the upload queue state machine.
//
// An upload enters as NEW, passes review into ACCEPTED (or UNAPPROVED, or
// REJECTED), and is realised into publications, landing at DONE. Every
// transition checks its preconditions against the current row and has no
// partial effect on failure.
package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/custom"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	"github.com/granary-project/granary/pkg/domain/publishing/store"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	dbregistry "github.com/granary-project/granary/pkg/domain/registry/db"
	"github.com/granary-project/granary/pkg/utils/slices"
)

type Queue struct {
	db       dbqueue.Interface
	registry dbregistry.Interface
	pub      dbpublishing.Interface
	store    store.Interface

	copies    CopyRunner
	announcer Announcer
	audit     AuditLogger
	bugs      BugCloser
	logger    *log.Logger
	now       func() time.Time
}

type Option func(*Queue) *Queue

func WithCopyRunner(copies CopyRunner) Option {
	return func(q *Queue) *Queue {
		q.copies = copies
		return q
	}
}

func WithAnnouncer(announcer Announcer) Option {
	return func(q *Queue) *Queue {
		q.announcer = announcer
		return q
	}
}

func WithAuditLogger(audit AuditLogger) Option {
	return func(q *Queue) *Queue {
		q.audit = audit
		return q
	}
}

func WithBugCloser(bugs BugCloser) Option {
	return func(q *Queue) *Queue {
		q.bugs = bugs
		return q
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(q *Queue) *Queue {
		q.logger = logger
		return q
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) *Queue {
		q.now = now
		return q
	}
}

func New(
	db dbqueue.Interface,
	registry dbregistry.Interface,
	pub dbpublishing.Interface,
	st store.Interface,
	options ...Option,
) *Queue {
	q := &Queue{
		db:        db,
		registry:  registry,
		pub:       pub,
		store:     st,
		announcer: nopAnnouncer{},
		audit:     nopAuditLogger{},
		bugs:      nopBugCloser{},
		logger:    log.Default(),
		now:       time.Now,
	}
	for _, o := range options {
		q = o(q)
	}
	return q
}

// Enqueue files a new upload.
//
// With policy.AutoAccept set, an upload into a still-open RELEASE pocket is
// accepted on the spot; when that acceptance fails its error is returned
// along with the enqueued upload, which stays NEW for operator review.
func (q *Queue) Enqueue(ctx context.Context, upload domain.Upload, policy domain.PolicyConfig) (domain.Upload, error) {
	upload.Status = domain.UploadNew
	upload.DateCreated = q.now()

	created, err := q.db.New(ctx, upload)
	if err != nil {
		return domain.Upload{}, err
	}

	if policy.AutoAccept && created.Pocket == domain.PocketRelease {
		series, err := q.registry.GetSeries(ctx, created.SeriesId)
		if err != nil {
			return created, err
		}
		if !series.Status.Released() {
			if err := q.Accept(ctx, created.Id, policy); err != nil {
				return created, err
			}
			created.Status = domain.UploadAccepted
		}
	}
	return created, nil
}

// SetUnapproved parks a NEW upload for queue-admin review.
func (q *Queue) SetUnapproved(ctx context.Context, uploadId int) error {
	return q.db.UpdateStatus(
		ctx, uploadId,
		[]domain.UploadStatus{domain.UploadNew},
		domain.UploadUnapproved,
	)
}

// Accept runs every acceptance check and moves the upload to ACCEPTED.
//
// A copy upload skips the content checks: its job carries them out itself
// when it runs, so acceptance just resumes the job.
func (q *Queue) Accept(ctx context.Context, uploadId int, policy domain.PolicyConfig) error {
	upload, err := q.db.Get(ctx, uploadId)
	if err != nil {
		return err
	}
	switch upload.Status {
	case domain.UploadNew, domain.UploadUnapproved, domain.UploadRejected:
	default:
		return domerr.NewIllegalTransition(upload.Status, domain.UploadAccepted)
	}

	archive, err := q.registry.GetArchive(ctx, upload.ArchiveId)
	if err != nil {
		return err
	}
	series, err := q.registry.GetSeries(ctx, upload.SeriesId)
	if err != nil {
		return err
	}
	if !archive.CanModifySuite(series, upload.Pocket) {
		return domerr.NewInconsistentState(
			"%s does not accept uploads into pocket %s",
			series.Name, upload.Pocket,
		)
	}

	if upload.ContainsCopy() {
		if q.copies == nil {
			return domerr.NewInconsistentState(
				"upload %d is backed by a copy job but no copy runner is configured",
				upload.Id,
			)
		}
		if err := q.db.UpdateStatus(
			ctx, uploadId, acceptableFrom(), domain.UploadAccepted,
		); err != nil {
			return err
		}
		if err := q.copies.Resume(ctx, *upload.CopyJobId); err != nil {
			return err
		}
		q.afterAccept(ctx, upload)
		return nil
	}

	if err := q.verifyBeforeAccept(ctx, upload, series, policy); err != nil {
		return err
	}

	if err := q.db.UpdateStatus(
		ctx, uploadId, acceptableFrom(), domain.UploadAccepted,
	); err != nil {
		return err
	}
	q.afterAccept(ctx, upload)
	return nil
}

func acceptableFrom() []domain.UploadStatus {
	return []domain.UploadStatus{
		domain.UploadNew, domain.UploadUnapproved, domain.UploadRejected,
	}
}

func (q *Queue) verifyBeforeAccept(ctx context.Context, upload *domain.Upload, series domain.Series, policy domain.PolicyConfig) error {
	for _, s := range upload.Sources {
		taken, err := q.db.AcceptedSeries(
			ctx, upload.ArchiveId, s.Source.Name, s.Source.Version,
		)
		if err != nil {
			return err
		}
		if len(taken) != 0 {
			return &domerr.Conflict{Reason: fmt.Sprintf(
				"source %s is already accepted into %s",
				s.Source.Title(), strings.Join(taken, ", "),
			)}
		}
	}

	if err := q.checkComponentAndSection(ctx, upload, series, policy); err != nil {
		return err
	}

	files := []domain.PackageFile{}
	for _, b := range upload.Builds {
		for _, bin := range b.Binaries {
			files = append(files, bin.Files...)
		}
	}
	conflicts, err := q.pub.ConflictingFiles(ctx, upload.ArchiveId, files)
	if err != nil {
		return err
	}
	if len(conflicts) != 0 {
		return &domerr.Conflict{
			Reason: "files already published in the archive with different contents",
			Files:  conflicts,
		}
	}
	return nil
}

func (q *Queue) checkComponentAndSection(ctx context.Context, upload *domain.Upload, series domain.Series, policy domain.PolicyConfig) error {
	sections, err := q.registry.Sections(ctx)
	if err != nil {
		return err
	}
	knownSection := func(section string) bool {
		_, ok := slices.First(sections, func(s string) bool { return s == section })
		return ok
	}

	permitted := func(string) bool { return true }
	if !policy.RelaxedComponentChecks {
		components, err := q.registry.PermittedComponents(ctx, series.Id)
		if err != nil {
			return err
		}
		permitted = func(component string) bool {
			_, ok := slices.First(components, func(c string) bool { return c == component })
			return ok
		}
	}

	check := func(title, component, section string) error {
		if !permitted(component) {
			return domerr.NewInconsistentState(
				"%s targets component %s, not permitted in %s",
				title, component, series.Name,
			)
		}
		if !knownSection(section) {
			return domerr.NewInconsistentState(
				"%s targets unknown section %s", title, section,
			)
		}
		return nil
	}

	for _, s := range upload.Sources {
		if err := check(s.Source.Title(), s.Source.Component, s.Source.Section); err != nil {
			return err
		}
	}
	for _, b := range upload.Builds {
		for _, bin := range b.Binaries {
			if err := check(bin.Title(), bin.Component, bin.Section); err != nil {
				return err
			}
		}
	}
	return nil
}

func (q *Queue) afterAccept(ctx context.Context, upload *domain.Upload) {
	q.audit.Accepted(ctx, upload, q.now())
	q.announcer.Announce(ctx, upload, "accepted")
	if upload.ChangesFile == "" {
		return
	}
	changes, err := q.store.Contents(ctx, upload.ChangesFile)
	if err != nil {
		q.logger.Printf(
			"cannot read changes file of upload %d: %s", upload.Id, err,
		)
		return
	}
	q.bugs.Close(ctx, upload, changes)
}

// Reject turns an upload down. A copy upload's job goes through its own
// cancel path first.
func (q *Queue) Reject(ctx context.Context, uploadId int) error {
	upload, err := q.db.Get(ctx, uploadId)
	if err != nil {
		return err
	}
	switch upload.Status {
	case domain.UploadNew, domain.UploadUnapproved, domain.UploadAccepted:
	default:
		return domerr.NewIllegalTransition(upload.Status, domain.UploadRejected)
	}

	if upload.ContainsCopy() {
		if q.copies == nil {
			return domerr.NewInconsistentState(
				"upload %d is backed by a copy job but no copy runner is configured",
				upload.Id,
			)
		}
		if err := q.copies.Cancel(ctx, *upload.CopyJobId); err != nil {
			return err
		}
	}

	if err := q.db.UpdateStatus(
		ctx, uploadId,
		[]domain.UploadStatus{
			domain.UploadNew, domain.UploadUnapproved, domain.UploadAccepted,
		},
		domain.UploadRejected,
	); err != nil {
		return err
	}
	q.announcer.Announce(ctx, upload, "rejected")
	return nil
}

// SetDone closes the upload. Closing twice is an error, not a no-op.
func (q *Queue) SetDone(ctx context.Context, uploadId int) error {
	return q.db.UpdateStatus(
		ctx, uploadId,
		[]domain.UploadStatus{
			domain.UploadNew, domain.UploadUnapproved,
			domain.UploadAccepted, domain.UploadRejected,
		},
		domain.UploadDone,
	)
}

// Realise turns an ACCEPTED upload into PENDING publications and publishes
// its custom files, then closes it.
//
// Source and binary publication is all or nothing: any namespace conflict
// aborts before the first row is written, and the rows land in the same
// transaction that flips the upload to DONE. Custom files are best effort,
// a failing one is logged and skipped while the rest proceed.
func (q *Queue) Realise(ctx context.Context, uploadId int) error {
	upload, err := q.db.Get(ctx, uploadId)
	if err != nil {
		return err
	}
	if upload.Status != domain.UploadAccepted {
		return domerr.NewIllegalTransition(upload.Status, domain.UploadDone)
	}

	archive, err := q.registry.GetArchive(ctx, upload.ArchiveId)
	if err != nil {
		return err
	}
	series, err := q.registry.GetSeries(ctx, upload.SeriesId)
	if err != nil {
		return err
	}

	if err := q.verifyBeforePublish(ctx, upload); err != nil {
		return err
	}

	when := q.now()
	sources := []domain.SourcePublication{}
	for _, s := range upload.Sources {
		sources = append(sources, domain.SourcePublication{
			ArchiveId:   upload.ArchiveId,
			SeriesId:    upload.SeriesId,
			Pocket:      upload.Pocket,
			Component:   s.Source.Component,
			Section:     s.Source.Section,
			DateCreated: when,
			Source:      s.Source,
		})
	}

	binaries, err := q.binaryPublications(ctx, upload, when)
	if err != nil {
		return err
	}

	if _, _, err := q.pub.NewPublicationSet(ctx, uploadId, sources, binaries); err != nil {
		return err
	}

	q.publishCustoms(ctx, upload, archive, series)
	return nil
}

// verifyBeforePublish re-checks the archive namespace right before rows are
// written. Acceptance already checked, but the archive moved on since.
func (q *Queue) verifyBeforePublish(ctx context.Context, upload *domain.Upload) error {
	files := []domain.PackageFile{}
	for _, s := range upload.Sources {
		files = append(files, s.Source.Files...)
	}
	for _, b := range upload.Builds {
		for _, bin := range b.Binaries {
			files = append(files, bin.Files...)
		}
	}
	conflicts, err := q.pub.ConflictingFiles(ctx, upload.ArchiveId, files)
	if err != nil {
		return err
	}
	if len(conflicts) != 0 {
		return &domerr.Conflict{
			Reason: "files already published in the archive with different contents",
			Files:  conflicts,
		}
	}
	return nil
}

// binaryPublications expands the upload's binaries into publication rows:
// one per build architecture for arch-specific binaries, one per enabled
// architecture of the series for arch-independent ones.
func (q *Queue) binaryPublications(ctx context.Context, upload *domain.Upload, when time.Time) ([]domain.BinaryPublication, error) {
	pubs := []domain.BinaryPublication{}
	var enabledArches []domain.ArchSeries

	for i := range upload.Builds {
		b := &upload.Builds[i]
		for j := range b.Binaries {
			bin := &b.Binaries[j]
			row := domain.BinaryPublication{
				ArchiveId:   upload.ArchiveId,
				SeriesId:    upload.SeriesId,
				Pocket:      upload.Pocket,
				Component:   bin.Component,
				Section:     bin.Section,
				Priority:    bin.Priority,
				DateCreated: when,
				Binary:      bin,
			}

			if !bin.ArchIndependent {
				row.ArchSeriesId = b.Build.ArchSeriesId
				row.ArchTag = b.Build.ArchTag
				pubs = append(pubs, row)
				continue
			}

			if enabledArches == nil {
				arches, err := q.registry.ArchSerieses(ctx, upload.SeriesId)
				if err != nil {
					return nil, err
				}
				enabledArches = slices.Filter(
					arches, func(a domain.ArchSeries) bool { return a.Enabled },
				)
			}
			for _, arch := range enabledArches {
				row.ArchSeriesId = arch.Id
				row.ArchTag = arch.ArchTag
				pubs = append(pubs, row)
			}
		}
	}
	return pubs, nil
}

func (q *Queue) publishCustoms(ctx context.Context, upload *domain.Upload, archive domain.Archive, series domain.Series) {
	if len(upload.Customs) == 0 {
		return
	}

	config, err := q.registry.PublisherConfig(ctx, archive.Distribution)
	if err != nil {
		q.logger.Printf(
			"cannot publish custom files of upload %d: %s", upload.Id, err,
		)
		return
	}
	env := custom.Environment{
		RootDir: config.RootDir,
		Suite:   upload.Pocket.Suite(series.Name),
	}

	for _, c := range upload.Customs {
		format, err := custom.AsFormat(c.Format)
		if err != nil {
			q.logger.Printf("skipping custom file %s: %s", c.Filename, err)
			continue
		}
		content, err := q.store.Contents(ctx, c.SHA256)
		if err != nil {
			q.logger.Printf("skipping custom file %s: %s", c.Filename, err)
			continue
		}
		if err := format.Publish(ctx, env, custom.Blob{
			Filename: c.Filename, Content: content,
		}); err != nil {
			q.logger.Printf(
				"cannot publish custom file %s (%s): %s", c.Filename, format, err,
			)
		}
	}
}
