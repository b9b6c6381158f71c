package publishing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	"github.com/granary-project/granary/pkg/domain/publishing"
	mocks "github.com/granary-project/granary/pkg/domain/publishing/db/mock"
	mockregistry "github.com/granary-project/granary/pkg/domain/registry/db/mock"
	"github.com/granary-project/granary/pkg/utils/pointer"
)

func overridableRegistry() *mockregistry.MockRegistryInterface {
	mreg := mockregistry.NewMockRegistryInterface()
	mreg.Impl.GetArchive = func(context.Context, int) (domain.Archive, error) {
		return domain.Archive{
			Id: 1, Distribution: "grainos", Name: "primary",
			Purpose: domain.ArchivePrimary,
		}, nil
	}
	mreg.Impl.GetSeries = func(context.Context, int) (domain.Series, error) {
		return domain.Series{
			Id: 5, Distribution: "grainos", Name: "sorghum",
			Status: domain.SeriesDevelopment,
		}, nil
	}
	return mreg
}

func TestOverrider_SourceOverride(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	src := &domain.SourceRelease{Id: 100, Name: "hello", Version: "1.0-1"}
	active := &domain.SourcePublication{
		Id: 7, ArchiveId: 1, SeriesId: 5, Pocket: domain.PocketRelease,
		Status: domain.PubPublished, Component: "main", Section: "devel",
		Source: src,
	}

	t.Run("it appends a PENDING row with the new overrides", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.ActiveSource = func(_ context.Context, archiveId, seriesId int, pocket domain.Pocket, name string) (*domain.SourcePublication, error) {
			if archiveId != 1 || seriesId != 5 || pocket != domain.PocketRelease || name != "hello" {
				t.Errorf(
					"unmatch: query for ActiveSource: (%d, %d, %s, %s)",
					archiveId, seriesId, pocket, name,
				)
			}
			return active, nil
		}
		created := []domain.SourcePublication{}
		mdb.Impl.NewSource = func(_ context.Context, pub domain.SourcePublication) (domain.SourcePublication, error) {
			pub.Id = 8
			created = append(created, pub)
			return pub, nil
		}

		testee := publishing.NewOverrider(
			mdb, overridableRegistry(),
			publishing.WithOverrideClock(func() time.Time { return day }),
		)

		actual, err := testee.ApplySourceOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Component: pointer.Ref("universe")},
		)
		if err != nil {
			t.Fatal(err)
		}

		if len(created) != 1 {
			t.Fatalf("unmatch: rows written: %+v", created)
		}
		row := created[0]
		if row.Component != "universe" || row.Section != "devel" {
			t.Errorf("unmatch: overrides: (%s, %s)", row.Component, row.Section)
		}
		if row.Source != src {
			t.Errorf("unmatch: the new row should carry the same source release")
		}
		if !row.DateCreated.Equal(day) {
			t.Errorf("unmatch: datecreated: %s", row.DateCreated)
		}
		if actual == nil || actual.Id != 8 {
			t.Errorf("unmatch: returned publication: %+v", actual)
		}
	})

	t.Run("a change to the current values writes nothing", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.ActiveSource = func(context.Context, int, int, domain.Pocket, string) (*domain.SourcePublication, error) {
			return active, nil
		}
		mdb.Impl.NewSource = func(_ context.Context, pub domain.SourcePublication) (domain.SourcePublication, error) {
			t.Errorf("unexpected row: %+v", pub)
			return pub, nil
		}

		testee := publishing.NewOverrider(mdb, overridableRegistry())
		actual, err := testee.ApplySourceOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{
				Component: pointer.Ref("main"), Section: pointer.Ref("devel"),
			},
		)
		if err != nil {
			t.Fatal(err)
		}
		if actual != nil {
			t.Errorf("unmatch: no row should be returned: %+v", actual)
		}
	})

	t.Run("an empty change is refused", func(t *testing.T) {
		testee := publishing.NewOverrider(
			mocks.NewMockPublishingInterface(), overridableRegistry(),
		)
		if _, err := testee.ProposeSourceOverride(
			ctx, 1, 5, domain.PocketRelease, "hello", publishing.Override{},
		); err == nil {
			t.Error("expected error does not occured")
		}
	})

	t.Run("a package not live in the suite is missing", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.ActiveSource = func(context.Context, int, int, domain.Pocket, string) (*domain.SourcePublication, error) {
			return nil, domerr.NewMissing("source publication", 0)
		}

		testee := publishing.NewOverrider(mdb, overridableRegistry())
		if _, err := testee.ProposeSourceOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Component: pointer.Ref("universe")},
		); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("err = %v, want %v", err, domerr.ErrMissing)
		}
	})

	t.Run("an unmodifiable suite is refused", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.ActiveSource = func(context.Context, int, int, domain.Pocket, string) (*domain.SourcePublication, error) {
			return active, nil
		}

		mreg := overridableRegistry()
		mreg.Impl.GetSeries = func(context.Context, int) (domain.Series, error) {
			return domain.Series{
				Id: 5, Distribution: "grainos", Name: "sorghum",
				Status: domain.SeriesCurrent,
			}, nil
		}

		testee := publishing.NewOverrider(mdb, mreg)
		if _, err := testee.ProposeSourceOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Component: pointer.Ref("universe")},
		); !errors.Is(err, domerr.ErrConflict) {
			t.Errorf("err = %v, want %v", err, domerr.ErrConflict)
		}
	})
}

func TestOverrider_BinaryOverride(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	deb := &domain.BinaryRelease{
		Id: 200, BuildId: 20, SourceName: "hello", Name: "hello",
		Version: "1.0-1", Format: domain.FormatDeb,
		ArchIndependent: true,
	}
	ddeb := &domain.BinaryRelease{
		Id: 201, BuildId: 20, SourceName: "hello",
		Name: domain.DdebNameFor("hello"),
		Version: "1.0-1", Format: domain.FormatDdeb,
	}
	live := []*domain.BinaryPublication{
		{
			Id: 30, ArchiveId: 1, SeriesId: 5, ArchSeriesId: 51, ArchTag: "amd64",
			Pocket: domain.PocketRelease, Status: domain.PubPublished,
			Component: "main", Section: "devel", Priority: domain.PriorityOptional,
			Binary: deb,
		},
		{
			Id: 31, ArchiveId: 1, SeriesId: 5, ArchSeriesId: 52, ArchTag: "arm64",
			Pocket: domain.PocketRelease, Status: domain.PubPublished,
			Component: "main", Section: "devel", Priority: domain.PriorityOptional,
			Binary: deb,
		},
		{
			Id: 32, ArchiveId: 1, SeriesId: 5, ArchSeriesId: 51, ArchTag: "amd64",
			Pocket: domain.PocketRelease, Status: domain.PubPublished,
			Component: "main", Section: "debug", Priority: domain.PriorityOptional,
			Binary: ddeb,
		},
	}

	t.Run("it appends rows for every architecture and the debug shadow", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return live, nil
		}
		written := [][]domain.BinaryPublication{}
		mdb.Impl.NewBinaries = func(_ context.Context, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error) {
			written = append(written, pubs)
			return pubs, nil
		}

		testee := publishing.NewOverrider(
			mdb, overridableRegistry(),
			publishing.WithOverrideClock(func() time.Time { return day }),
		)

		priority := domain.PriorityExtra
		actual, err := testee.ApplyBinaryOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Priority: &priority},
		)
		if err != nil {
			t.Fatal(err)
		}

		if len(actual) != 3 {
			t.Fatalf("unmatch: rows: %+v", actual)
		}
		for _, row := range actual {
			if row.Priority != domain.PriorityExtra {
				t.Errorf("unmatch: priority of %s [%s]: %s", row.Binary.Name, row.ArchTag, row.Priority)
			}
			if !row.DateCreated.Equal(day) {
				t.Errorf("unmatch: datecreated: %s", row.DateCreated)
			}
		}
		if actual[0].ArchTag != "amd64" || actual[1].ArchTag != "arm64" {
			t.Errorf("unmatch: deb rows come first, per architecture: %+v", actual)
		}
		if actual[2].Binary != ddeb {
			t.Errorf("unmatch: the debug shadow should follow: %+v", actual[2])
		}
		if len(written) != 1 {
			t.Errorf("unmatch: NewBinaries calls: %d", len(written))
		}
	})

	t.Run("a debug package cannot be overridden directly", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return live, nil
		}

		testee := publishing.NewOverrider(mdb, overridableRegistry())
		_, err := testee.ProposeBinaryOverride(
			ctx, 1, 5, domain.PocketRelease, domain.DdebNameFor("hello"),
			publishing.Override{Component: pointer.Ref("universe")},
		)
		if !errors.Is(err, domerr.ErrConflict) {
			t.Errorf("err = %v, want %v", err, domerr.ErrConflict)
		}
	})

	t.Run("a binary not live in the suite is missing", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return []*domain.BinaryPublication{}, nil
		}

		testee := publishing.NewOverrider(mdb, overridableRegistry())
		if _, err := testee.ProposeBinaryOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Component: pointer.Ref("universe")},
		); !errors.Is(err, domerr.ErrMissing) {
			t.Errorf("err = %v, want %v", err, domerr.ErrMissing)
		}
	})

	t.Run("a change to the current values writes nothing", func(t *testing.T) {
		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return live, nil
		}
		mdb.Impl.NewBinaries = func(_ context.Context, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error) {
			t.Errorf("unexpected rows: %+v", pubs)
			return pubs, nil
		}

		testee := publishing.NewOverrider(mdb, overridableRegistry())
		actual, err := testee.ApplyBinaryOverride(
			ctx, 1, 5, domain.PocketRelease, "hello",
			publishing.Override{Component: pointer.Ref("main")},
		)
		if err != nil {
			t.Fatal(err)
		}
		if len(actual) != 0 {
			t.Errorf("unmatch: no rows should be returned: %+v", actual)
		}
	})
}
