package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	pgerr "github.com/granary-project/granary/pkg/domain/errors/dberrors/postgres"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	"github.com/granary-project/granary/pkg/utils/slices"
)

type pgQueue struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) dbqueue.Interface {
	return &pgQueue{pool: pool}
}

func (q *pgQueue) New(ctx context.Context, upload domain.Upload) (domain.Upload, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return domain.Upload{}, err
	}
	defer tx.Rollback(ctx)

	upload.Status = domain.UploadNew
	if err := tx.QueryRow(
		ctx,
		`
		insert into "upload" (
			"status", "archive_id", "series_id", "pocket",
			"changes_file", "signing_key", "copy_job_id", "date_created"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning "id"
		`,
		string(upload.Status), upload.ArchiveId, upload.SeriesId,
		string(upload.Pocket), upload.ChangesFile, upload.SigningKey,
		upload.CopyJobId, upload.DateCreated,
	).Scan(&upload.Id); err != nil {
		return domain.Upload{}, pgerr.Translate(err)
	}

	for i := range upload.Sources {
		upload.Sources[i].UploadId = upload.Id
		if err := tx.QueryRow(
			ctx,
			`
			insert into "upload_source" ("upload_id", "source_release_id")
			values ($1, $2)
			returning "id"
			`,
			upload.Id, upload.Sources[i].Source.Id,
		).Scan(&upload.Sources[i].Id); err != nil {
			return domain.Upload{}, pgerr.Translate(err)
		}
	}
	for i := range upload.Builds {
		upload.Builds[i].UploadId = upload.Id
		if err := tx.QueryRow(
			ctx,
			`
			insert into "upload_build" ("upload_id", "build_id")
			values ($1, $2)
			returning "id"
			`,
			upload.Id, upload.Builds[i].Build.Id,
		).Scan(&upload.Builds[i].Id); err != nil {
			return domain.Upload{}, err
		}
	}
	for i := range upload.Customs {
		upload.Customs[i].UploadId = upload.Id
		if err := tx.QueryRow(
			ctx,
			`
			insert into "upload_custom" ("upload_id", "format", "filename", "sha256")
			values ($1, $2, $3, $4)
			returning "id"
			`,
			upload.Id, upload.Customs[i].Format,
			upload.Customs[i].Filename, upload.Customs[i].SHA256,
		).Scan(&upload.Customs[i].Id); err != nil {
			return domain.Upload{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Upload{}, err
	}
	return upload, nil
}

func (q *pgQueue) Get(ctx context.Context, uploadId int) (*domain.Upload, error) {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	uploads, err := q.uploads(ctx, conn, `where "id" = $1`, uploadId)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, domerr.NewMissing("upload", uploadId)
	}
	return uploads[0], nil
}

func (q *pgQueue) List(ctx context.Context, filter dbqueue.Filter) ([]*domain.Upload, error) {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := `where true`
	args := []interface{}{}
	if len(filter.Statuses) != 0 {
		args = append(args, slices.Map(
			filter.Statuses, func(s domain.UploadStatus) string { return string(s) },
		))
		where += fmt.Sprintf(` and "status" = any($%d::varchar[])`, len(args))
	}
	if filter.ArchiveId != nil {
		args = append(args, *filter.ArchiveId)
		where += fmt.Sprintf(` and "archive_id" = $%d`, len(args))
	}
	if filter.SeriesId != nil {
		args = append(args, *filter.SeriesId)
		where += fmt.Sprintf(` and "series_id" = $%d`, len(args))
	}

	return q.uploads(ctx, conn, where, args...)
}

func (q *pgQueue) uploads(ctx context.Context, conn kpool.Queryer, where string, args ...interface{}) ([]*domain.Upload, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"id", "status", "archive_id", "series_id", "pocket",
			"changes_file", "signing_key", "copy_job_id", "date_created"
		from "upload"
		`+where+`
		order by "id"
		`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []*domain.Upload{}
	for rows.Next() {
		upload := &domain.Upload{}
		var status, pocket string
		if err := rows.Scan(
			&upload.Id, &status, &upload.ArchiveId, &upload.SeriesId, &pocket,
			&upload.ChangesFile, &upload.SigningKey, &upload.CopyJobId,
			&upload.DateCreated,
		); err != nil {
			return nil, err
		}
		if upload.Status, err = domain.AsUploadStatus(status); err != nil {
			return nil, err
		}
		if upload.Pocket, err = domain.AsPocket(pocket); err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return uploads, nil
	}

	byId := slices.ToMap(uploads, func(u *domain.Upload) int { return u.Id })
	if err := q.attachSources(ctx, conn, byId); err != nil {
		return nil, err
	}
	if err := q.attachBuilds(ctx, conn, byId); err != nil {
		return nil, err
	}
	if err := q.attachCustoms(ctx, conn, byId); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (q *pgQueue) attachSources(ctx context.Context, conn kpool.Queryer, uploads map[int]*domain.Upload) error {
	rows, err := conn.Query(
		ctx,
		`
		select
			"u"."id", "u"."upload_id",
			"r"."id", "r"."name", "r"."version",
			"r"."component", "r"."section", "r"."changelog"
		from "upload_source" as "u"
		inner join "source_release" as "r" on "r"."id" = "u"."source_release_id"
		where "u"."upload_id" = any($1::int[])
		order by "u"."id"
		`,
		slices.KeysOf(uploads),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	releases := []*domain.SourceRelease{}
	for rows.Next() {
		us := domain.UploadSource{Source: &domain.SourceRelease{}}
		if err := rows.Scan(
			&us.Id, &us.UploadId,
			&us.Source.Id, &us.Source.Name, &us.Source.Version,
			&us.Source.Component, &us.Source.Section, &us.Source.Changelog,
		); err != nil {
			return err
		}
		if upload, ok := uploads[us.UploadId]; ok {
			upload.Sources = append(upload.Sources, us)
			releases = append(releases, us.Source)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return q.attachSourceFiles(ctx, conn, releases)
}

func (q *pgQueue) attachSourceFiles(ctx context.Context, conn kpool.Queryer, releases []*domain.SourceRelease) error {
	if len(releases) == 0 {
		return nil
	}
	byId := map[int][]*domain.SourceRelease{}
	for _, r := range releases {
		byId[r.Id] = append(byId[r.Id], r)
	}

	rows, err := conn.Query(
		ctx,
		`
		select "source_release_id", "filename", "sha256", "size"
		from "source_release_file"
		where "source_release_id" = any($1::int[])
		order by "filename"
		`,
		slices.KeysOf(byId),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var releaseId int
		var file domain.PackageFile
		if err := rows.Scan(&releaseId, &file.Filename, &file.SHA256, &file.Size); err != nil {
			return err
		}
		for _, release := range byId[releaseId] {
			release.Files = append(release.Files, file)
		}
	}
	return rows.Err()
}

func (q *pgQueue) attachBuilds(ctx context.Context, conn kpool.Queryer, uploads map[int]*domain.Upload) error {
	rows, err := conn.Query(
		ctx,
		`
		select
			"u"."id", "u"."upload_id",
			"b"."id", "b"."source_release_id", "b"."arch_series_id",
			"a"."arch_tag", "b"."status"
		from "upload_build" as "u"
		inner join "build" as "b" on "b"."id" = "u"."build_id"
		inner join "arch_series" as "a" on "a"."id" = "b"."arch_series_id"
		where "u"."upload_id" = any($1::int[])
		order by "u"."id"
		`,
		slices.KeysOf(uploads),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	builds := map[int][]*domain.UploadBuild{}
	for rows.Next() {
		ub := &domain.UploadBuild{Build: &domain.Build{}}
		var status string
		if err := rows.Scan(
			&ub.Id, &ub.UploadId,
			&ub.Build.Id, &ub.Build.SourceReleaseId, &ub.Build.ArchSeriesId,
			&ub.Build.ArchTag, &status,
		); err != nil {
			return err
		}
		var err error
		if ub.Build.Status, err = domain.AsBuildStatus(status); err != nil {
			return err
		}
		builds[ub.Build.Id] = append(builds[ub.Build.Id], ub)
		if upload, ok := uploads[ub.UploadId]; ok {
			upload.Builds = append(upload.Builds, *ub)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(builds) == 0 {
		return nil
	}

	binaries, err := q.binariesOfBuilds(ctx, conn, slices.KeysOf(builds))
	if err != nil {
		return err
	}
	for _, upload := range uploads {
		for i := range upload.Builds {
			upload.Builds[i].Binaries = binaries[upload.Builds[i].Build.Id]
		}
	}
	return nil
}

func (q *pgQueue) binariesOfBuilds(ctx context.Context, conn kpool.Queryer, buildIds []int) (map[int][]domain.BinaryRelease, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"r"."id", "r"."build_id", "r"."source_release_id", "s"."name",
			"r"."name", "r"."version", "r"."format", "r"."arch_independent",
			"r"."component", "r"."section", "r"."priority"
		from "binary_release" as "r"
		inner join "source_release" as "s" on "s"."id" = "r"."source_release_id"
		where "r"."build_id" = any($1::int[])
		order by "r"."id"
		`,
		buildIds,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byBuild := map[int][]domain.BinaryRelease{}
	byRelease := map[int][]*domain.BinaryRelease{}
	for rows.Next() {
		release := domain.BinaryRelease{}
		var format, priority string
		if err := rows.Scan(
			&release.Id, &release.BuildId, &release.SourceReleaseId, &release.SourceName,
			&release.Name, &release.Version, &format, &release.ArchIndependent,
			&release.Component, &release.Section, &priority,
		); err != nil {
			return nil, err
		}
		var err error
		if release.Format, err = domain.AsBinaryFormat(format); err != nil {
			return nil, err
		}
		if release.Priority, err = domain.AsPackagePriority(priority); err != nil {
			return nil, err
		}
		byBuild[release.BuildId] = append(byBuild[release.BuildId], release)
		last := &byBuild[release.BuildId][len(byBuild[release.BuildId])-1]
		byRelease[release.Id] = append(byRelease[release.Id], last)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byRelease) == 0 {
		return byBuild, nil
	}

	files, err := conn.Query(
		ctx,
		`
		select "binary_release_id", "filename", "sha256", "size"
		from "binary_release_file"
		where "binary_release_id" = any($1::int[])
		order by "filename"
		`,
		slices.KeysOf(byRelease),
	)
	if err != nil {
		return nil, err
	}
	defer files.Close()

	for files.Next() {
		var releaseId int
		var file domain.PackageFile
		if err := files.Scan(&releaseId, &file.Filename, &file.SHA256, &file.Size); err != nil {
			return nil, err
		}
		for _, release := range byRelease[releaseId] {
			release.Files = append(release.Files, file)
		}
	}
	return byBuild, files.Err()
}

func (q *pgQueue) attachCustoms(ctx context.Context, conn kpool.Queryer, uploads map[int]*domain.Upload) error {
	rows, err := conn.Query(
		ctx,
		`
		select "id", "upload_id", "format", "filename", "sha256"
		from "upload_custom"
		where "upload_id" = any($1::int[])
		order by "id"
		`,
		slices.KeysOf(uploads),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		uc := domain.UploadCustom{}
		if err := rows.Scan(
			&uc.Id, &uc.UploadId, &uc.Format, &uc.Filename, &uc.SHA256,
		); err != nil {
			return err
		}
		if upload, ok := uploads[uc.UploadId]; ok {
			upload.Customs = append(upload.Customs, uc)
		}
	}
	return rows.Err()
}

func (q *pgQueue) UpdateStatus(ctx context.Context, uploadId int, from []domain.UploadStatus, to domain.UploadStatus) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current string
	if err := tx.QueryRow(
		ctx,
		`select "status" from "upload" where "id" = $1 for update`,
		uploadId,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domerr.NewMissing("upload", uploadId)
		}
		return err
	}

	currentStatus, err := domain.AsUploadStatus(current)
	if err != nil {
		return err
	}
	if _, ok := slices.First(from, func(s domain.UploadStatus) bool { return s == currentStatus }); !ok {
		return domerr.NewIllegalTransition(currentStatus, to)
	}

	if _, err := tx.Exec(
		ctx,
		`update "upload" set "status" = $1 where "id" = $2`,
		string(to), uploadId,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (q *pgQueue) AcceptedSeries(ctx context.Context, archiveId int, name string, version string) ([]string, error) {
	conn, err := q.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select distinct "s"."name"
		from "upload" as "u"
		inner join "upload_source" as "us" on "us"."upload_id" = "u"."id"
		inner join "source_release" as "r" on "r"."id" = "us"."source_release_id"
		inner join "series" as "s" on "s"."id" = "u"."series_id"
		where "u"."archive_id" = $1
			and "u"."status" in ('accepted', 'done')
			and "r"."name" = $2
			and "r"."version" = $3
		order by "s"."name"
		`,
		archiveId, name, version,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var seriesName string
		if err := rows.Scan(&seriesName); err != nil {
			return nil, err
		}
		names = append(names, seriesName)
	}
	return names, rows.Err()
}
