package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbinitseries "github.com/granary-project/granary/pkg/domain/initseries/db"
	"github.com/granary-project/granary/pkg/utils/slices"
)

type pgInitSeries struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) dbinitseries.Interface {
	return &pgInitSeries{pool: pool}
}

func (s *pgInitSeries) Distribution(ctx context.Context, name string) (domain.Distribution, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Distribution{}, err
	}
	defer conn.Release()

	dist := domain.Distribution{}
	if err := conn.QueryRow(
		ctx,
		`select "name", "owner" from "distribution" where "name" = $1`,
		name,
	).Scan(&dist.Name, &dist.Owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Distribution{}, fmt.Errorf(
				"%w: distribution %s", domerr.ErrMissing, name,
			)
		}
		return domain.Distribution{}, err
	}
	return dist, nil
}

func (s *pgInitSeries) PrimaryArchive(ctx context.Context, distribution string) (domain.Archive, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Archive{}, err
	}
	defer conn.Release()

	archive := domain.Archive{}
	var purpose string
	if err := conn.QueryRow(
		ctx,
		`
		select "id", "distribution", "name", "purpose"
		from "archive"
		where "distribution" = $1 and "purpose" = 'primary'
		`,
		distribution,
	).Scan(
		&archive.Id, &archive.Distribution, &archive.Name, &purpose,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Archive{}, fmt.Errorf(
				"%w: primary archive of %s", domerr.ErrMissing, distribution,
			)
		}
		return domain.Archive{}, err
	}
	if archive.Purpose, err = domain.AsArchivePurpose(purpose); err != nil {
		return domain.Archive{}, err
	}
	return archive, nil
}

func (s *pgInitSeries) PendingBuildSources(ctx context.Context, seriesId int, archTags []string, names []string) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := `
		where "a"."series_id" = $1
			and "b"."status" in ('needsbuild', 'building')
	`
	args := []interface{}{seriesId}
	if len(archTags) != 0 {
		args = append(args, archTags)
		where += fmt.Sprintf(` and "a"."arch_tag" = any($%d::varchar[])`, len(args))
	}
	if len(names) != 0 {
		args = append(args, names)
		where += fmt.Sprintf(` and "r"."name" = any($%d::varchar[])`, len(args))
	}

	return s.names(
		ctx, conn,
		`
		select distinct "r"."name" || '/' || "r"."version"
		from "build" as "b"
		inner join "arch_series" as "a" on "a"."id" = "b"."arch_series_id"
		inner join "source_release" as "r" on "r"."id" = "b"."source_release_id"
		`+where+`
		order by 1
		`,
		args...,
	)
}

func (s *pgInitSeries) HeldUploadNames(ctx context.Context, seriesId int, pockets []domain.Pocket, names []string) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	where := `
		where "u"."series_id" = $1
			and "u"."status" = any($2::varchar[])
			and "u"."pocket" = any($3::varchar[])
	`
	args := []interface{}{
		seriesId,
		slices.Map(
			domain.UploadHoldingStatuses(),
			func(s domain.UploadStatus) string { return string(s) },
		),
		slices.Map(pockets, domain.Pocket.String),
	}
	if len(names) != 0 {
		args = append(args, names)
		where += fmt.Sprintf(` and "r"."name" = any($%d::varchar[])`, len(args))
	}

	return s.names(
		ctx, conn,
		`
		select distinct "r"."name"
		from "upload" as "u"
		inner join "upload_source" as "us" on "us"."upload_id" = "u"."id"
		inner join "source_release" as "r" on "r"."id" = "us"."source_release_id"
		`+where+`
		order by 1
		`,
		args...,
	)
}

func (s *pgInitSeries) ActiveSourceTitles(ctx context.Context, archiveId, seriesId int, pockets []domain.Pocket) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return s.names(
		ctx, conn,
		`
		select distinct "r"."name" || '/' || "r"."version"
		from "source_publication" as "p"
		inner join "source_release" as "r" on "r"."id" = "p"."source_release_id"
		where "p"."archive_id" = $1
			and "p"."series_id" = $2
			and "p"."pocket" = any($3::varchar[])
			and "p"."status" in ('pending', 'published')
		order by 1
		`,
		archiveId, seriesId, slices.Map(pockets, domain.Pocket.String),
	)
}

func (s *pgInitSeries) PacksetSourceNames(ctx context.Context, packsetIds []int) ([]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return s.names(
		ctx, conn,
		`
		select distinct "source_name"
		from "packageset_source"
		where "packageset_id" = any($1::int[])
		order by 1
		`,
		packsetIds,
	)
}

func (s *pgInitSeries) names(ctx context.Context, conn kpool.Queryer, query string, args ...interface{}) ([]string, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Initialize executes a checked plan: parent links, architecture rows,
// permitted components, PENDING publications into the RELEASE pocket,
// packageset clones and permission copies. One transaction.
func (s *pgInitSeries) Initialize(ctx context.Context, plan dbinitseries.Plan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for ordering, parent := range plan.Parents {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "series_parent" ("series_id", "parent_id", "ordering")
			values ($1, $2, $3)
			`,
			plan.Target.Id, parent.Series.Id, ordering,
		); err != nil {
			return err
		}
	}

	for _, tag := range plan.Arches {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "arch_series"
				("series_id", "arch_tag", "enabled", "nominated_arch_indep")
			values ($1, $2, true, $3)
			`,
			plan.Target.Id, tag, tag == plan.ArchIndep,
		); err != nil {
			return err
		}
	}

	parentSeriesIds := slices.Map(
		plan.Parents,
		func(p dbinitseries.Parent) int { return p.Series.Id },
	)
	if _, err := tx.Exec(
		ctx,
		`
		insert into "series_component" ("series_id", "component")
		select distinct $1, "component"
		from "series_component"
		where "series_id" = any($2::int[])
		`,
		plan.Target.Id, parentSeriesIds,
	); err != nil {
		return err
	}

	// parents are walked in precedence order; the not-exists guards make
	// the first contributor of a package name win
	for _, parent := range plan.Parents {
		if err := s.cloneSources(ctx, tx, plan, parent); err != nil {
			return err
		}
		if !plan.Rebuild {
			if err := s.cloneBinaries(ctx, tx, plan, parent); err != nil {
				return err
			}
		}
		if err := s.clonePackagesets(ctx, tx, plan, parent); err != nil {
			return err
		}
	}

	if err := s.linkPackagesetSources(ctx, tx, plan); err != nil {
		return err
	}

	for _, parent := range plan.Parents {
		if !parent.SameDistribution {
			continue
		}
		if err := s.copyPermissions(ctx, tx, plan, parent); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// cloneSources clones the parent's live sources into the target's RELEASE
// pocket as PENDING. A source live in several pockets is taken once, the
// newest publication winning.
func (s *pgInitSeries) cloneSources(ctx context.Context, tx kpool.Tx, plan dbinitseries.Plan, parent dbinitseries.Parent) error {
	where, args := s.cloneScope(plan, parent, `"r"."name"`)
	_, err := tx.Exec(
		ctx,
		`
		insert into "source_publication" (
			"archive_id", "series_id", "pocket", "source_release_id",
			"status", "component", "section", "date_created"
		)
		select distinct on ("r"."name")
			$1, $2, 'release', "p"."source_release_id",
			'pending', "p"."component", "p"."section", $3
		from "source_publication" as "p"
		inner join "source_release" as "r" on "r"."id" = "p"."source_release_id"
		`+where+`
			and not exists (
				select 1
				from "source_publication" as "t"
				inner join "source_release" as "tr"
					on "tr"."id" = "t"."source_release_id"
				where "t"."archive_id" = $1
					and "t"."series_id" = $2
					and "tr"."name" = "r"."name"
			)
		order by "r"."name", "p"."id" desc
		`,
		args...,
	)
	return err
}

// cloneBinaries clones the parent's live binaries, re-homing each row onto
// the target's architecture of the same tag. Architectures left out of the
// plan have no target row and contribute nothing.
func (s *pgInitSeries) cloneBinaries(ctx context.Context, tx kpool.Tx, plan dbinitseries.Plan, parent dbinitseries.Parent) error {
	where, args := s.cloneScope(plan, parent, `"sr"."name"`)
	_, err := tx.Exec(
		ctx,
		`
		insert into "binary_publication" (
			"archive_id", "series_id", "arch_series_id", "pocket",
			"binary_release_id", "status", "component", "section",
			"priority", "phased_update_percentage", "date_created"
		)
		select distinct on ("br"."name", "na"."id")
			$1, $2, "na"."id", 'release',
			"p"."binary_release_id", 'pending', "p"."component", "p"."section",
			"p"."priority", null, $3
		from "binary_publication" as "p"
		inner join "binary_release" as "br" on "br"."id" = "p"."binary_release_id"
		inner join "source_release" as "sr" on "sr"."id" = "br"."source_release_id"
		inner join "arch_series" as "pa" on "pa"."id" = "p"."arch_series_id"
		inner join "arch_series" as "na"
			on "na"."series_id" = $2 and "na"."arch_tag" = "pa"."arch_tag"
		`+where+`
			and not exists (
				select 1
				from "binary_publication" as "t"
				inner join "binary_release" as "tb"
					on "tb"."id" = "t"."binary_release_id"
				where "t"."archive_id" = $1
					and "t"."series_id" = $2
					and "t"."arch_series_id" = "na"."id"
					and "tb"."name" = "br"."name"
			)
		order by "br"."name", "na"."id", "p"."id" desc
		`,
		args...,
	)
	return err
}

// cloneScope builds the shared where clause of the publication clones:
// the parent suite's live rows in the propagated pockets, narrowed to the
// packageset selection when one was made. nameColumn is the quoted source
// name column of the caller's query.
func (s *pgInitSeries) cloneScope(plan dbinitseries.Plan, parent dbinitseries.Parent, nameColumn string) (string, []interface{}) {
	where := `
		where "p"."archive_id" = $4
			and "p"."series_id" = $5
			and "p"."pocket" in ('release', 'security', 'updates')
			and "p"."status" in ('pending', 'published')
	`
	args := []interface{}{
		plan.TargetArchiveId, plan.Target.Id, plan.When,
		parent.ArchiveId, parent.Series.Id,
	}
	if len(plan.PacksetIds) != 0 {
		args = append(args, plan.PacksetIds)
		where += fmt.Sprintf(
			` and %s in (
				select "source_name" from "packageset_source"
				where "packageset_id" = any($%d::int[])
			)`,
			nameColumn, len(args),
		)
	}
	return where, args
}

// clonePackagesets clones the parent's packagesets, remembering the origin
// in related_set_id. Cross-distribution clones are re-owned by the target
// distribution's owner.
func (s *pgInitSeries) clonePackagesets(ctx context.Context, tx kpool.Tx, plan dbinitseries.Plan, parent dbinitseries.Parent) error {
	where := `where "series_id" = $4`
	args := []interface{}{
		plan.Target.Id, parent.SameDistribution, plan.TargetOwner,
		parent.Series.Id,
	}
	if len(plan.PacksetIds) != 0 {
		args = append(args, plan.PacksetIds)
		where += fmt.Sprintf(` and "id" = any($%d::int[])`, len(args))
	}

	_, err := tx.Exec(
		ctx,
		`
		insert into "packageset"
			("name", "description", "owner", "series_id", "related_set_id")
		select
			"name", "description",
			case when $2::bool then "owner" else $3 end,
			$1, "id"
		from "packageset"
		`+where+`
			and not exists (
				select 1 from "packageset" as "t"
				where "t"."series_id" = $1 and "t"."name" = "packageset"."name"
			)
		`,
		args...,
	)
	return err
}

func (s *pgInitSeries) linkPackagesetSources(ctx context.Context, tx kpool.Tx, plan dbinitseries.Plan) error {
	_, err := tx.Exec(
		ctx,
		`
		insert into "packageset_source" ("packageset_id", "source_name")
		select "t"."id", "ps"."source_name"
		from "packageset" as "t"
		inner join "packageset_source" as "ps"
			on "ps"."packageset_id" = "t"."related_set_id"
		where "t"."series_id" = $1
		`,
		plan.Target.Id,
	)
	return err
}

// copyPermissions carries the parent archive's upload rights over. Rights
// scoped to the parent series re-scope to the target; rights scoped to a
// packageset re-scope to its clone. Only called for same-distribution
// parents.
func (s *pgInitSeries) copyPermissions(ctx context.Context, tx kpool.Tx, plan dbinitseries.Plan, parent dbinitseries.Parent) error {
	if _, err := tx.Exec(
		ctx,
		`
		insert into "archive_permission" (
			"person", "permission", "archive_id", "component",
			"packageset_id", "series_id", "pocket", "explicit"
		)
		select
			"person", "permission", $1, "component",
			null, case when "series_id" is null then null else $2::int end,
			"pocket", "explicit"
		from "archive_permission"
		where "archive_id" = $3
			and "packageset_id" is null
			and ("series_id" is null or "series_id" = $4)
		`,
		plan.TargetArchiveId, plan.Target.Id,
		parent.ArchiveId, parent.Series.Id,
	); err != nil {
		return err
	}

	_, err := tx.Exec(
		ctx,
		`
		insert into "archive_permission" (
			"person", "permission", "archive_id", "component",
			"packageset_id", "series_id", "pocket", "explicit"
		)
		select
			"ap"."person", "ap"."permission", $1, "ap"."component",
			"t"."id", null, "ap"."pocket", "ap"."explicit"
		from "archive_permission" as "ap"
		inner join "packageset" as "t"
			on "t"."related_set_id" = "ap"."packageset_id"
		where "ap"."archive_id" = $2
			and "t"."series_id" = $3
		`,
		plan.TargetArchiveId, parent.ArchiveId, plan.Target.Id,
	)
	return err
}
