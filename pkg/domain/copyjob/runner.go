// Package copyjob executes queued package copies.
//
// A copy job moves one source package, optionally with its binaries, from
// one suite to another. Execution runs the same namespace validation as a
// native upload and creates publications shaped identically to native
// ones, so downstream publishing and domination cannot tell a copy apart.
package copyjob

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	dbcopyjob "github.com/granary-project/granary/pkg/domain/copyjob/db"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	dbregistry "github.com/granary-project/granary/pkg/domain/registry/db"
)

type Runner struct {
	db       dbcopyjob.Interface
	registry dbregistry.Interface
	pub      dbpublishing.Interface
	queue    dbqueue.Interface

	logger *log.Logger
	now    func() time.Time
}

type Option func(*Runner) *Runner

func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) *Runner {
		r.logger = logger
		return r
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) *Runner {
		r.now = now
		return r
	}
}

func New(
	db dbcopyjob.Interface,
	registry dbregistry.Interface,
	pub dbpublishing.Interface,
	queue dbqueue.Interface,
	options ...Option,
) *Runner {
	r := &Runner{
		db:       db,
		registry: registry,
		pub:      pub,
		queue:    queue,
		logger:   log.Default(),
		now:      time.Now,
	}
	for _, o := range options {
		r = o(r)
	}
	return r
}

// Resume releases the job behind an accepted copy upload.
func (r *Runner) Resume(ctx context.Context, jobId int) error {
	return r.db.Release(ctx, jobId)
}

// Cancel fails the job behind a rejected copy upload.
func (r *Runner) Cancel(ctx context.Context, jobId int) error {
	return r.db.Cancel(ctx, jobId)
}

// RunOnce pops and executes one runnable job. Returns whether a job ran;
// the job's own failure lands on its row, not here.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	return r.db.Pop(ctx, func(job domain.CopyJob) error {
		return r.execute(ctx, job)
	})
}

func (r *Runner) execute(ctx context.Context, job domain.CopyJob) error {
	src, err := r.pub.ActiveSource(
		ctx, job.SourceArchiveId, job.SourceSeriesId, job.SourcePocket,
		job.PackageName,
	)
	if err != nil {
		if errors.Is(err, domerr.ErrMissing) {
			return fmt.Errorf(
				"%s is not published in the source suite", job.PackageName,
			)
		}
		return err
	}
	if src.Source.Version != job.PackageVersion {
		return fmt.Errorf(
			"the source suite publishes %s, not %s",
			src.Source.Title(), job.PackageVersion,
		)
	}

	// re-running a completed copy is a no-op
	existing, err := r.pub.ActiveSource(
		ctx, job.TargetArchiveId, job.TargetSeriesId, job.TargetPocket,
		job.PackageName,
	)
	if err == nil && existing.Source.Version == job.PackageVersion {
		return nil
	}
	if err != nil && !errors.Is(err, domerr.ErrMissing) {
		return err
	}

	var binaries []*domain.BinaryPublication
	if job.IncludeBinaries {
		binaries, err = r.pub.ActiveBinariesOfSource(
			ctx, job.SourceArchiveId, job.SourceSeriesId, job.SourcePocket,
			src.Source.Id,
		)
		if err != nil {
			return err
		}
	}

	if err := r.verify(ctx, job, src, binaries); err != nil {
		return err
	}

	when := r.now()
	rows, err := r.binaryRows(ctx, job, binaries, when)
	if err != nil {
		return err
	}

	// one transaction: the source never lands without its binaries
	_, _, err = r.pub.NewPublicationSet(
		ctx, 0,
		[]domain.SourcePublication{{
			ArchiveId:   job.TargetArchiveId,
			SeriesId:    job.TargetSeriesId,
			Pocket:      job.TargetPocket,
			Component:   src.Component,
			Section:     src.Section,
			DateCreated: when,
			Source:      src.Source,
		}},
		rows,
	)
	return err
}

// verify runs the native upload's namespace checks against the target.
func (r *Runner) verify(ctx context.Context, job domain.CopyJob, src *domain.SourcePublication, binaries []*domain.BinaryPublication) error {
	taken, err := r.queue.AcceptedSeries(
		ctx, job.TargetArchiveId, job.PackageName, job.PackageVersion,
	)
	if err != nil {
		return err
	}
	if len(taken) != 0 {
		return &domerr.Conflict{Reason: fmt.Sprintf(
			"source %s/%s is already accepted into %s",
			job.PackageName, job.PackageVersion, strings.Join(taken, ", "),
		)}
	}

	files := append([]domain.PackageFile{}, src.Source.Files...)
	seen := map[int]bool{}
	for _, bp := range binaries {
		if seen[bp.Binary.Id] {
			continue
		}
		seen[bp.Binary.Id] = true
		files = append(files, bp.Binary.Files...)
	}
	conflicts, err := r.pub.ConflictingFiles(ctx, job.TargetArchiveId, files)
	if err != nil {
		return err
	}
	if len(conflicts) != 0 {
		return &domerr.Conflict{
			Reason: "files already published in the target archive with different contents",
			Files:  conflicts,
		}
	}
	return nil
}

// binaryRows maps the source suite's binary publications onto the target
// series' architectures. Arch-specific binaries follow their architecture
// tag and are skipped when the target lacks it; arch-independent binaries
// spread over every enabled target architecture once.
func (r *Runner) binaryRows(ctx context.Context, job domain.CopyJob, binaries []*domain.BinaryPublication, when time.Time) ([]domain.BinaryPublication, error) {
	if len(binaries) == 0 {
		return []domain.BinaryPublication{}, nil
	}

	arches, err := r.registry.ArchSerieses(ctx, job.TargetSeriesId)
	if err != nil {
		return nil, err
	}
	byTag := map[string]domain.ArchSeries{}
	enabled := []domain.ArchSeries{}
	for _, arch := range arches {
		if !arch.Enabled {
			continue
		}
		byTag[arch.ArchTag] = arch
		enabled = append(enabled, arch)
	}

	rows := []domain.BinaryPublication{}
	expanded := map[int]bool{}
	for _, bp := range binaries {
		row := domain.BinaryPublication{
			ArchiveId:   job.TargetArchiveId,
			SeriesId:    job.TargetSeriesId,
			Pocket:      job.TargetPocket,
			Component:   bp.Component,
			Section:     bp.Section,
			Priority:    bp.Priority,
			DateCreated: when,
			Binary:      bp.Binary,
		}

		if bp.Binary.ArchIndependent {
			if expanded[bp.Binary.Id] {
				continue
			}
			expanded[bp.Binary.Id] = true
			for _, arch := range enabled {
				row.ArchSeriesId = arch.Id
				row.ArchTag = arch.ArchTag
				rows = append(rows, row)
			}
			continue
		}

		arch, ok := byTag[bp.ArchTag]
		if !ok {
			r.logger.Printf(
				"copy job %d: target series has no %s, skipping %s",
				job.Id, bp.ArchTag, bp.Binary.Title(),
			)
			continue
		}
		row.ArchSeriesId = arch.Id
		row.ArchTag = arch.ArchTag
		rows = append(rows, row)
	}
	return rows, nil
}
