package publishing_test

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/pool"
	"github.com/granary-project/granary/pkg/domain/publishing"
	mocks "github.com/granary-project/granary/pkg/domain/publishing/db/mock"
	"github.com/granary-project/granary/pkg/domain/publishing/store"
	"github.com/granary-project/granary/pkg/utils/cmp"
	"github.com/granary-project/granary/pkg/utils/try"
)

func TestPublisher_PublishPending(t *testing.T) {
	ctx := context.Background()
	quiet := log.New(io.Discard, "", 0)
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("it places files of pending publications and marks them published", func(t *testing.T) {
		st := store.NewDir(t.TempDir())
		dscHash := try.To(st.Put(ctx, []byte("dsc content"))).OrFatal(t)
		debHash := try.To(st.Put(ctx, []byte("deb content"))).OrFatal(t)

		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveSources = func(context.Context, int, int, domain.Pocket) ([]*domain.SourcePublication, error) {
			return []*domain.SourcePublication{
				{
					Id: 1, Status: domain.PubPending, Component: "main",
					Source: &domain.SourceRelease{
						Name: "hello", Version: "1.0-1",
						Files: []domain.PackageFile{
							{Filename: "hello_1.0-1.dsc", SHA256: dscHash, Size: 11},
						},
					},
				},
				{
					Id: 2, Status: domain.PubPublished, Component: "main",
					Source: &domain.SourceRelease{Name: "stale", Version: "0.9"},
				},
			}, nil
		}
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return []*domain.BinaryPublication{
				{
					Id: 10, Status: domain.PubPending, Component: "main", ArchTag: "amd64",
					Binary: &domain.BinaryRelease{
						SourceName: "hello", Name: "hello", Version: "1.0-1",
						Files: []domain.PackageFile{
							{Filename: "hello_1.0-1_amd64.deb", SHA256: debHash, Size: 11},
						},
					},
				},
			}, nil
		}

		var markedSources, markedBinaries []int
		mdb.Impl.MarkPublished = func(_ context.Context, when time.Time, sourceIds, binaryIds []int) error {
			markedSources = sourceIds
			markedBinaries = binaryIds
			if !when.Equal(day) {
				t.Errorf("unexpected datepublished: %s", when)
			}
			return nil
		}

		diskpool := pool.New(t.TempDir())
		testee := publishing.NewPublisher(
			mdb, st, diskpool,
			publishing.WithLogger(quiet),
			publishing.WithClock(func() time.Time { return day }),
		)

		published, err := testee.PublishPending(ctx, 1, 1, domain.PocketRelease)
		if err != nil {
			t.Fatal(err)
		}
		if published != 2 {
			t.Errorf("unexpected published count: %d", published)
		}
		if !cmp.SliceEq(markedSources, []int{1}) {
			t.Errorf("unexpected source ids: %v", markedSources)
		}
		if !cmp.SliceEq(markedBinaries, []int{10}) {
			t.Errorf("unexpected binary ids: %v", markedBinaries)
		}

		ondisk := filepath.Join(diskpool.Root(), "main", "h", "hello", "hello_1.0-1_amd64.deb")
		content := try.To(os.ReadFile(ondisk)).OrFatal(t)
		if string(content) != "deb content" {
			t.Errorf("unexpected pool content: %s", content)
		}
	})

	t.Run("a pool collision leaves that publication pending and publishes the rest", func(t *testing.T) {
		st := store.NewDir(t.TempDir())
		goodHash := try.To(st.Put(ctx, []byte("good"))).OrFatal(t)
		badHash := try.To(st.Put(ctx, []byte("tampered"))).OrFatal(t)

		mdb := mocks.NewMockPublishingInterface()
		mdb.Impl.LiveSources = func(context.Context, int, int, domain.Pocket) ([]*domain.SourcePublication, error) {
			return []*domain.SourcePublication{
				{
					Id: 1, Status: domain.PubPending, Component: "main",
					Source: &domain.SourceRelease{
						Name: "hello", Version: "1.0-2",
						Files: []domain.PackageFile{
							{Filename: "hello_1.0.orig.tar.gz", SHA256: badHash, Size: 8},
						},
					},
				},
				{
					Id: 2, Status: domain.PubPending, Component: "main",
					Source: &domain.SourceRelease{
						Name: "world", Version: "2.0-1",
						Files: []domain.PackageFile{
							{Filename: "world_2.0-1.dsc", SHA256: goodHash, Size: 4},
						},
					},
				},
			}, nil
		}
		mdb.Impl.LiveBinaries = func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error) {
			return []*domain.BinaryPublication{}, nil
		}

		var markedSources []int
		mdb.Impl.MarkPublished = func(_ context.Context, _ time.Time, sourceIds, _ []int) error {
			markedSources = sourceIds
			return nil
		}

		diskpool := pool.New(t.TempDir())
		// the orig tarball is already in the pool with other bytes.
		if _, err := diskpool.Place("main", "hello", "hello_1.0.orig.tar.gz", []byte("original")); err != nil {
			t.Fatal(err)
		}

		testee := publishing.NewPublisher(mdb, st, diskpool, publishing.WithLogger(quiet))

		published, err := testee.PublishPending(ctx, 1, 1, domain.PocketRelease)
		if err != nil {
			t.Fatal(err)
		}
		if published != 1 {
			t.Errorf("unexpected published count: %d", published)
		}
		if !cmp.SliceEq(markedSources, []int{2}) {
			t.Errorf("unexpected source ids: %v", markedSources)
		}
	})
}
