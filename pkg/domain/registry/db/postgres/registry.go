package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	kpool "github.com/granary-project/granary/pkg/conn/db/postgres/pool"
	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	dbregistry "github.com/granary-project/granary/pkg/domain/registry/db"
)

type pgRegistry struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) dbregistry.Interface {
	return &pgRegistry{pool: pool}
}

func (r *pgRegistry) GetArchive(ctx context.Context, archiveId int) (domain.Archive, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.Archive{}, err
	}
	defer conn.Release()

	return r.archive(
		ctx, conn, `where "id" = $1`, archiveId,
	)
}

func (r *pgRegistry) FindArchive(ctx context.Context, distribution string, name string) (domain.Archive, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.Archive{}, err
	}
	defer conn.Release()

	return r.archive(
		ctx, conn, `where "distribution" = $1 and "name" = $2`, distribution, name,
	)
}

func (r *pgRegistry) archive(ctx context.Context, conn kpool.Queryer, where string, args ...interface{}) (domain.Archive, error) {
	archive := domain.Archive{}
	var purpose string
	if err := conn.QueryRow(
		ctx,
		`
		select "id", "distribution", "name", "purpose"
		from "archive"
		`+where,
		args...,
	).Scan(
		&archive.Id, &archive.Distribution, &archive.Name, &purpose,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Archive{}, fmt.Errorf("%w: archive", domerr.ErrMissing)
		}
		return domain.Archive{}, err
	}
	var err error
	if archive.Purpose, err = domain.AsArchivePurpose(purpose); err != nil {
		return domain.Archive{}, err
	}
	return archive, nil
}

func (r *pgRegistry) GetSeries(ctx context.Context, seriesId int) (domain.Series, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.Series{}, err
	}
	defer conn.Release()

	serieses, err := r.serieses(ctx, conn, `where "s"."id" = $1`, seriesId)
	if err != nil {
		return domain.Series{}, err
	}
	if len(serieses) == 0 {
		return domain.Series{}, fmt.Errorf("%w: series %d", domerr.ErrMissing, seriesId)
	}
	return serieses[0], nil
}

func (r *pgRegistry) FindSeries(ctx context.Context, distribution string, name string) (domain.Series, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.Series{}, err
	}
	defer conn.Release()

	serieses, err := r.serieses(
		ctx, conn, `where "s"."distribution" = $1 and "s"."name" = $2`,
		distribution, name,
	)
	if err != nil {
		return domain.Series{}, err
	}
	if len(serieses) == 0 {
		return domain.Series{}, fmt.Errorf(
			"%w: series %s in %s", domerr.ErrMissing, name, distribution,
		)
	}
	return serieses[0], nil
}

func (r *pgRegistry) SeriesOfDistribution(ctx context.Context, distribution string) ([]domain.Series, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return r.serieses(ctx, conn, `where "s"."distribution" = $1`, distribution)
}

func (r *pgRegistry) serieses(ctx context.Context, conn kpool.Queryer, where string, args ...interface{}) ([]domain.Series, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"s"."id", "s"."distribution", "s"."name", "s"."version",
			"s"."status", "s"."previous_series_id"
		from "series" as "s"
		`+where+`
		order by "s"."id" desc
		`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	serieses := []domain.Series{}
	for rows.Next() {
		series := domain.Series{}
		var status string
		if err := rows.Scan(
			&series.Id, &series.Distribution, &series.Name, &series.Version,
			&status, &series.PreviousSeriesId,
		); err != nil {
			return nil, err
		}
		if series.Status, err = domain.AsSeriesStatus(status); err != nil {
			return nil, err
		}
		serieses = append(serieses, series)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range serieses {
		if serieses[i].ParentIds, err = r.parentIds(ctx, conn, serieses[i].Id); err != nil {
			return nil, err
		}
	}
	return serieses, nil
}

func (r *pgRegistry) parentIds(ctx context.Context, conn kpool.Queryer, seriesId int) ([]int, error) {
	rows, err := conn.Query(
		ctx,
		`
		select "parent_id" from "series_parent"
		where "series_id" = $1
		order by "ordering"
		`,
		seriesId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parentIds := []int{}
	for rows.Next() {
		var parentId int
		if err := rows.Scan(&parentId); err != nil {
			return nil, err
		}
		parentIds = append(parentIds, parentId)
	}
	return parentIds, rows.Err()
}

func (r *pgRegistry) ArchSerieses(ctx context.Context, seriesId int) ([]domain.ArchSeries, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "series_id", "arch_tag", "enabled", "nominated_arch_indep"
		from "arch_series"
		where "series_id" = $1
		order by "arch_tag"
		`,
		seriesId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	arches := []domain.ArchSeries{}
	for rows.Next() {
		arch := domain.ArchSeries{}
		if err := rows.Scan(
			&arch.Id, &arch.SeriesId, &arch.ArchTag, &arch.Enabled,
			&arch.NominatedArchIndep,
		); err != nil {
			return nil, err
		}
		arches = append(arches, arch)
	}
	return arches, rows.Err()
}

func (r *pgRegistry) PermittedComponents(ctx context.Context, seriesId int) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return r.names(
		ctx, conn,
		`
		select "component" from "series_component"
		where "series_id" = $1
		order by "component"
		`,
		seriesId,
	)
}

func (r *pgRegistry) Sections(ctx context.Context) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	return r.names(ctx, conn, `select "name" from "section" order by "name"`)
}

func (r *pgRegistry) names(ctx context.Context, conn kpool.Queryer, query string, args ...interface{}) ([]string, error) {
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

func (r *pgRegistry) PublisherConfig(ctx context.Context, distribution string) (domain.PublisherConfig, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.PublisherConfig{}, err
	}
	defer conn.Release()

	config := domain.PublisherConfig{}
	if err := conn.QueryRow(
		ctx,
		`
		select "distribution", "root_dir" from "publisher_config"
		where "distribution" = $1
		`,
		distribution,
	).Scan(&config.Distribution, &config.RootDir); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublisherConfig{}, fmt.Errorf(
				"%w: publisher config for %s", domerr.ErrMissing, distribution,
			)
		}
		return domain.PublisherConfig{}, err
	}
	return config, nil
}
