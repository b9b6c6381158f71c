package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/domain"
	dbcopyjob "github.com/granary-project/granary/pkg/domain/copyjob/db"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
)

type pgCopyJob struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) dbcopyjob.Interface {
	return &pgCopyJob{pool: pool}
}

const jobColumns = `
	"id", "status", "held",
	"source_archive_id", "source_series_id", "source_pocket",
	"target_archive_id", "target_series_id", "target_pocket",
	"package_name", "package_version", "include_binaries",
	"attempts", "error", "date_created", "date_started", "date_done"
`

func scanJob(row pgx.Row) (domain.CopyJob, error) {
	job := domain.CopyJob{}
	var status, sourcePocket, targetPocket string
	if err := row.Scan(
		&job.Id, &status, &job.Held,
		&job.SourceArchiveId, &job.SourceSeriesId, &sourcePocket,
		&job.TargetArchiveId, &job.TargetSeriesId, &targetPocket,
		&job.PackageName, &job.PackageVersion, &job.IncludeBinaries,
		&job.Attempts, &job.Error, &job.DateCreated, &job.DateStarted, &job.DateDone,
	); err != nil {
		return domain.CopyJob{}, err
	}
	var err error
	if job.Status, err = domain.AsCopyJobStatus(status); err != nil {
		return domain.CopyJob{}, err
	}
	if job.SourcePocket, err = domain.AsPocket(sourcePocket); err != nil {
		return domain.CopyJob{}, err
	}
	if job.TargetPocket, err = domain.AsPocket(targetPocket); err != nil {
		return domain.CopyJob{}, err
	}
	return job, nil
}

func (c *pgCopyJob) New(ctx context.Context, job domain.CopyJob) (domain.CopyJob, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return domain.CopyJob{}, err
	}
	defer conn.Release()

	job.Status = domain.CopyJobQueued
	if err := conn.QueryRow(
		ctx,
		`
		insert into "copy_job" (
			"status", "held",
			"source_archive_id", "source_series_id", "source_pocket",
			"target_archive_id", "target_series_id", "target_pocket",
			"package_name", "package_version", "include_binaries",
			"date_created"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning "id"
		`,
		string(job.Status), job.Held,
		job.SourceArchiveId, job.SourceSeriesId, string(job.SourcePocket),
		job.TargetArchiveId, job.TargetSeriesId, string(job.TargetPocket),
		job.PackageName, job.PackageVersion, job.IncludeBinaries,
		job.DateCreated,
	).Scan(&job.Id); err != nil {
		return domain.CopyJob{}, err
	}
	return job, nil
}

func (c *pgCopyJob) Get(ctx context.Context, jobId int) (domain.CopyJob, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return domain.CopyJob{}, err
	}
	defer conn.Release()

	job, err := scanJob(conn.QueryRow(
		ctx, `select `+jobColumns+` from "copy_job" where "id" = $1`, jobId,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CopyJob{}, domerr.NewMissing("copy job", jobId)
	}
	return job, err
}

func (c *pgCopyJob) Pop(ctx context.Context, callback func(domain.CopyJob) error) (bool, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	job, err := scanJob(tx.QueryRow(
		ctx,
		`
		update "copy_job"
		set "status" = 'running',
			"attempts" = "attempts" + 1,
			"date_started" = now()
		where "id" in (
			select "id" from "copy_job"
			where "status" = 'queued' and not "held"
			order by "id"
			limit 1
			for update skip locked
		)
		returning `+jobColumns,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	result := callback(job)
	if result != nil {
		if _, err := tx.Exec(
			ctx,
			`
			update "copy_job"
			set "status" = 'failed', "error" = $1, "date_done" = now()
			where "id" = $2
			`,
			result.Error(), job.Id,
		); err != nil {
			return false, err
		}
	} else {
		if _, err := tx.Exec(
			ctx,
			`
			update "copy_job"
			set "status" = 'completed', "error" = '', "date_done" = now()
			where "id" = $1
			`,
			job.Id,
		); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *pgCopyJob) Release(ctx context.Context, jobId int) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`
		update "copy_job"
		set "held" = false,
			"status" = 'queued',
			"error" = '',
			"date_done" = null
		where "id" = $1 and "status" in ('queued', 'failed')
		`,
		jobId,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerr.NewMissing("releasable copy job", jobId)
	}
	return nil
}

func (c *pgCopyJob) Cancel(ctx context.Context, jobId int) error {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`
		update "copy_job"
		set "status" = 'failed', "error" = 'cancelled', "date_done" = now()
		where "id" = $1 and "status" in ('queued', 'running', 'failed')
		`,
		jobId,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domerr.NewMissing("cancellable copy job", jobId)
	}
	return nil
}
