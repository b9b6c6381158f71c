package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/conn/db/postgres/scanner"
	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	pgerr "github.com/granary-project/granary/pkg/domain/errors/dberrors/postgres"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	"github.com/granary-project/granary/pkg/utils/slices"
)

type pgPublishing struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) dbpublishing.Interface {
	return &pgPublishing{pool: pool}
}

func (p *pgPublishing) NewSource(ctx context.Context, pub domain.SourcePublication) (domain.SourcePublication, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.SourcePublication{}, err
	}
	defer conn.Release()

	return insertSource(ctx, conn, pub)
}

func insertSource(ctx context.Context, conn kpool.Queryer, pub domain.SourcePublication) (domain.SourcePublication, error) {
	pub.Status = domain.PubPending
	if err := conn.QueryRow(
		ctx,
		`
		insert into "source_publication" (
			"archive_id", "series_id", "pocket", "source_release_id",
			"status", "component", "section", "date_created"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning "id"
		`,
		pub.ArchiveId, pub.SeriesId, string(pub.Pocket), pub.Source.Id,
		string(pub.Status), pub.Component, pub.Section, pub.DateCreated,
	).Scan(&pub.Id); err != nil {
		return domain.SourcePublication{}, pgerr.Translate(err)
	}
	return pub, nil
}

func (p *pgPublishing) NewBinaries(ctx context.Context, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error) {
	if len(pubs) == 0 {
		return []domain.BinaryPublication{}, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := insertBinaries(ctx, tx, pubs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func insertBinaries(ctx context.Context, conn kpool.Queryer, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error) {
	created := make([]domain.BinaryPublication, 0, len(pubs))
	for _, pub := range pubs {
		pub.Status = domain.PubPending
		if err := conn.QueryRow(
			ctx,
			`
			insert into "binary_publication" (
				"archive_id", "series_id", "arch_series_id", "pocket",
				"binary_release_id", "status", "component", "section",
				"priority", "phased_update_percentage", "date_created"
			)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			returning "id"
			`,
			pub.ArchiveId, pub.SeriesId, pub.ArchSeriesId, string(pub.Pocket),
			pub.Binary.Id, string(pub.Status), pub.Component, pub.Section,
			string(pub.Priority), pub.PhasedUpdatePercentage, pub.DateCreated,
		).Scan(&pub.Id); err != nil {
			return nil, pgerr.Translate(err)
		}
		created = append(created, pub)
	}
	return created, nil
}

func (p *pgPublishing) NewPublicationSet(ctx context.Context, doneUploadId int, sources []domain.SourcePublication, binaries []domain.BinaryPublication) ([]domain.SourcePublication, []domain.BinaryPublication, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	createdSources := make([]domain.SourcePublication, 0, len(sources))
	for _, pub := range sources {
		created, err := insertSource(ctx, tx, pub)
		if err != nil {
			return nil, nil, err
		}
		createdSources = append(createdSources, created)
	}

	createdBinaries, err := insertBinaries(ctx, tx, binaries)
	if err != nil {
		return nil, nil, err
	}

	if doneUploadId != 0 {
		var current string
		if err := tx.QueryRow(
			ctx,
			`select "status" from "upload" where "id" = $1 for update`,
			doneUploadId,
		).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, domerr.NewMissing("upload", doneUploadId)
			}
			return nil, nil, err
		}
		currentStatus, err := domain.AsUploadStatus(current)
		if err != nil {
			return nil, nil, err
		}
		if currentStatus != domain.UploadAccepted {
			return nil, nil, domerr.NewIllegalTransition(currentStatus, domain.UploadDone)
		}
		if _, err := tx.Exec(
			ctx,
			`update "upload" set "status" = $1 where "id" = $2`,
			string(domain.UploadDone), doneUploadId,
		); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return createdSources, createdBinaries, nil
}

func (p *pgPublishing) MarkPublished(ctx context.Context, when time.Time, sourceIds []int, binaryIds []int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(sourceIds) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "source_publication"
			set "status" = 'published', "date_published" = $1
			where "id" = any($2::int[]) and "status" = 'pending'
			`,
			when, sourceIds,
		); err != nil {
			return err
		}
	}
	if len(binaryIds) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "binary_publication"
			set "status" = 'published', "date_published" = $1
			where "id" = any($2::int[]) and "status" = 'pending'
			`,
			when, binaryIds,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (p *pgPublishing) LiveSources(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.SourcePublication, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select
			"p"."id", "p"."archive_id", "p"."series_id", "p"."pocket",
			"p"."status", "p"."component", "p"."section",
			"p"."date_created", "p"."date_published", "p"."date_superseded",
			"p"."scheduled_deletion_date", "p"."date_removed", "p"."superseded_by_id",
			"r"."id", "r"."name", "r"."version",
			"r"."component", "r"."section", "r"."changelog"
		from "source_publication" as "p"
		inner join "source_release" as "r" on "r"."id" = "p"."source_release_id"
		where "p"."archive_id" = $1
			and "p"."series_id" = $2
			and "p"."pocket" = $3
			and "p"."status" in ('pending', 'published')
		order by "p"."id"
		`,
		archiveId, seriesId, string(pocket),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pubs := []*domain.SourcePublication{}
	for rows.Next() {
		pub := &domain.SourcePublication{Source: &domain.SourceRelease{}}
		var status string
		var pocket string
		if err := rows.Scan(
			&pub.Id, &pub.ArchiveId, &pub.SeriesId, &pocket,
			&status, &pub.Component, &pub.Section,
			&pub.DateCreated, &pub.DatePublished, &pub.DateSuperseded,
			&pub.ScheduledDeletionDate, &pub.DateRemoved, &pub.SupersededById,
			&pub.Source.Id, &pub.Source.Name, &pub.Source.Version,
			&pub.Source.Component, &pub.Source.Section, &pub.Source.Changelog,
		); err != nil {
			return nil, err
		}
		if pub.Status, err = domain.AsPublicationStatus(status); err != nil {
			return nil, err
		}
		if pub.Pocket, err = domain.AsPocket(pocket); err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.attachSourceFiles(ctx, conn, slices.Map(
		pubs, func(p *domain.SourcePublication) *domain.SourceRelease { return p.Source },
	)); err != nil {
		return nil, err
	}
	return pubs, nil
}

func (p *pgPublishing) attachSourceFiles(ctx context.Context, conn kpool.Queryer, releases []*domain.SourceRelease) error {
	if len(releases) == 0 {
		return nil
	}
	byId := slices.ToMap(releases, func(r *domain.SourceRelease) int { return r.Id })

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
		if release, ok := byId[releaseId]; ok {
			release.Files = append(release.Files, file)
		}
	}
	return rows.Err()
}

func (p *pgPublishing) LiveBinaries(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.BinaryPublication, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return p.liveBinaries(
		ctx, conn,
		`
		where "p"."archive_id" = $1
			and "p"."series_id" = $2
			and "p"."pocket" = $3
			and "p"."status" in ('pending', 'published')
		`,
		archiveId, seriesId, string(pocket),
	)
}

func (p *pgPublishing) ActiveBinariesOfSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, sourceReleaseId int) ([]*domain.BinaryPublication, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return p.liveBinaries(
		ctx, conn,
		`
		where "p"."archive_id" = $1
			and "p"."series_id" = $2
			and "p"."pocket" = $3
			and "p"."status" in ('pending', 'published')
			and "r"."source_release_id" = $4
		`,
		archiveId, seriesId, string(pocket), sourceReleaseId,
	)
}

func (p *pgPublishing) liveBinaries(ctx context.Context, conn kpool.Queryer, where string, args ...interface{}) ([]*domain.BinaryPublication, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"p"."id", "p"."archive_id", "p"."series_id", "p"."arch_series_id",
			"a"."arch_tag", "p"."pocket", "p"."status",
			"p"."component", "p"."section", "p"."priority",
			"p"."phased_update_percentage",
			"p"."date_created", "p"."date_published", "p"."date_superseded",
			"p"."scheduled_deletion_date", "p"."date_removed", "p"."superseded_by_id",
			"r"."id", "r"."build_id", "r"."source_release_id", "s"."name",
			"r"."name", "r"."version", "r"."format", "r"."arch_independent",
			"r"."component", "r"."section", "r"."priority"
		from "binary_publication" as "p"
		inner join "binary_release" as "r" on "r"."id" = "p"."binary_release_id"
		inner join "source_release" as "s" on "s"."id" = "r"."source_release_id"
		inner join "arch_series" as "a" on "a"."id" = "p"."arch_series_id"
		`+where+`
		order by "p"."id"
		`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pubs := []*domain.BinaryPublication{}
	for rows.Next() {
		pub := &domain.BinaryPublication{Binary: &domain.BinaryRelease{}}
		var status, pocket, priority, format, releasePriority string
		if err := rows.Scan(
			&pub.Id, &pub.ArchiveId, &pub.SeriesId, &pub.ArchSeriesId,
			&pub.ArchTag, &pocket, &status,
			&pub.Component, &pub.Section, &priority,
			&pub.PhasedUpdatePercentage,
			&pub.DateCreated, &pub.DatePublished, &pub.DateSuperseded,
			&pub.ScheduledDeletionDate, &pub.DateRemoved, &pub.SupersededById,
			&pub.Binary.Id, &pub.Binary.BuildId, &pub.Binary.SourceReleaseId, &pub.Binary.SourceName,
			&pub.Binary.Name, &pub.Binary.Version, &format, &pub.Binary.ArchIndependent,
			&pub.Binary.Component, &pub.Binary.Section, &releasePriority,
		); err != nil {
			return nil, err
		}
		var err error
		if pub.Status, err = domain.AsPublicationStatus(status); err != nil {
			return nil, err
		}
		if pub.Pocket, err = domain.AsPocket(pocket); err != nil {
			return nil, err
		}
		if pub.Priority, err = domain.AsPackagePriority(priority); err != nil {
			return nil, err
		}
		if pub.Binary.Format, err = domain.AsBinaryFormat(format); err != nil {
			return nil, err
		}
		if pub.Binary.Priority, err = domain.AsPackagePriority(releasePriority); err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := p.attachBinaryFiles(ctx, conn, slices.Map(
		pubs, func(p *domain.BinaryPublication) *domain.BinaryRelease { return p.Binary },
	)); err != nil {
		return nil, err
	}
	return pubs, nil
}

func (p *pgPublishing) attachBinaryFiles(ctx context.Context, conn kpool.Queryer, releases []*domain.BinaryRelease) error {
	if len(releases) == 0 {
		return nil
	}
	byId := map[int][]*domain.BinaryRelease{}
	for _, r := range releases {
		byId[r.Id] = append(byId[r.Id], r)
	}

	rows, err := conn.Query(
		ctx,
		`
		select "binary_release_id", "filename", "sha256", "size"
		from "binary_release_file"
		where "binary_release_id" = any($1::int[])
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

func (p *pgPublishing) ActiveSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, name string) (*domain.SourcePublication, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	pub := &domain.SourcePublication{Source: &domain.SourceRelease{}}
	var status, pocketName string
	if err := conn.QueryRow(
		ctx,
		`
		select
			"p"."id", "p"."archive_id", "p"."series_id", "p"."pocket",
			"p"."status", "p"."component", "p"."section",
			"p"."date_created", "p"."date_published", "p"."date_superseded",
			"p"."scheduled_deletion_date", "p"."date_removed", "p"."superseded_by_id",
			"r"."id", "r"."name", "r"."version",
			"r"."component", "r"."section", "r"."changelog"
		from "source_publication" as "p"
		inner join "source_release" as "r" on "r"."id" = "p"."source_release_id"
		where "p"."archive_id" = $1
			and "p"."series_id" = $2
			and "p"."pocket" = $3
			and "p"."status" in ('pending', 'published')
			and "r"."name" = $4
		order by "p"."date_created" desc, "p"."id" desc
		limit 1
		`,
		archiveId, seriesId, string(pocket), name,
	).Scan(
		&pub.Id, &pub.ArchiveId, &pub.SeriesId, &pocketName,
		&status, &pub.Component, &pub.Section,
		&pub.DateCreated, &pub.DatePublished, &pub.DateSuperseded,
		&pub.ScheduledDeletionDate, &pub.DateRemoved, &pub.SupersededById,
		&pub.Source.Id, &pub.Source.Name, &pub.Source.Version,
		&pub.Source.Component, &pub.Source.Section, &pub.Source.Changelog,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: source package %s", domerr.ErrMissing, name)
		}
		return nil, err
	}
	if pub.Status, err = domain.AsPublicationStatus(status); err != nil {
		return nil, err
	}
	if pub.Pocket, err = domain.AsPocket(pocketName); err != nil {
		return nil, err
	}

	if err := p.attachSourceFiles(ctx, conn, []*domain.SourceRelease{pub.Source}); err != nil {
		return nil, err
	}
	return pub, nil
}

func (p *pgPublishing) Apply(ctx context.Context, decisions domain.DominationDecisions) error {
	if decisions.Empty() {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range decisions.Sources {
		if _, err := tx.Exec(
			ctx,
			`
			update "source_publication"
			set "status" = 'superseded',
				"date_superseded" = $1,
				"superseded_by_id" = $2
			where "id" = $3 and "status" in ('pending', 'published')
			`,
			decisions.When, s.DominantSourceReleaseId, s.PublicationId,
		); err != nil {
			return err
		}
	}
	for _, b := range decisions.Binaries {
		if _, err := tx.Exec(
			ctx,
			`
			update "binary_publication"
			set "status" = 'superseded',
				"date_superseded" = $1,
				"superseded_by_id" = $2
			where "id" = $3 and "status" in ('pending', 'published')
			`,
			decisions.When, b.DominantBuildId, b.PublicationId,
		); err != nil {
			return err
		}
	}

	if len(decisions.DeletedSources) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "source_publication"
			set "status" = 'deleted',
				"date_superseded" = $1,
				"scheduled_deletion_date" = $2
			where "id" = any($3::int[]) and "status" in ('pending', 'published')
			`,
			decisions.When, decisions.ScheduledFor, decisions.DeletedSources,
		); err != nil {
			return err
		}
	}

	if len(decisions.ScheduledSources) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "source_publication"
			set "scheduled_deletion_date" = $1
			where "id" = any($2::int[]) and "scheduled_deletion_date" is null
			`,
			decisions.ScheduledFor, decisions.ScheduledSources,
		); err != nil {
			return err
		}
	}
	if len(decisions.ScheduledBinaries) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "binary_publication"
			set "scheduled_deletion_date" = $1
			where "id" = any($2::int[]) and "scheduled_deletion_date" is null
			`,
			decisions.ScheduledFor, decisions.ScheduledBinaries,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (p *pgPublishing) RequestDeletion(ctx context.Context, when time.Time, scheduledFor time.Time, sourceIds []int, binaryIds []int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(sourceIds) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "source_publication"
			set "status" = 'deleted',
				"date_superseded" = $1,
				"scheduled_deletion_date" = $2
			where "id" = any($3::int[]) and "status" in ('pending', 'published')
			`,
			when, scheduledFor, sourceIds,
		); err != nil {
			return err
		}
	}
	if len(binaryIds) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "binary_publication"
			set "status" = 'deleted',
				"date_superseded" = $1,
				"scheduled_deletion_date" = $2
			where "id" = any($3::int[]) and "status" in ('pending', 'published')
			`,
			when, scheduledFor, binaryIds,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (p *pgPublishing) ConflictingFiles(ctx context.Context, archiveId int, candidates []domain.PackageFile) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	names := slices.Map(candidates, func(f domain.PackageFile) string { return f.Filename })

	type publishedFile struct {
		Filename string
		SHA256   string `sql:"sha256"`
	}
	found, err := scanner.New[publishedFile]().QueryAll(
		ctx, conn,
		`
		select "f"."filename", "f"."sha256"
		from "binary_release_file" as "f"
		inner join "binary_publication" as "p" on "p"."binary_release_id" = "f"."binary_release_id"
		where "p"."archive_id" = $1
			and "p"."status" in ('pending', 'published')
			and "f"."filename" = any($2::varchar[])

		union

		select "f"."filename", "f"."sha256"
		from "source_release_file" as "f"
		inner join "source_publication" as "p" on "p"."source_release_id" = "f"."source_release_id"
		where "p"."archive_id" = $1
			and "p"."status" in ('pending', 'published')
			and "f"."filename" = any($2::varchar[])
		`,
		archiveId, names,
	)
	if err != nil {
		return nil, err
	}

	published := map[string]string{}
	for _, f := range found {
		published[f.Filename] = f.SHA256
	}

	conflicts := []string{}
	for _, candidate := range candidates {
		hash, ok := published[candidate.Filename]
		if ok && hash != candidate.SHA256 {
			conflicts = append(conflicts, candidate.Filename)
		}
	}
	return conflicts, nil
}
