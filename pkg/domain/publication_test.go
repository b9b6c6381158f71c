package domain_test

import (
	"testing"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/utils/cmp"
	"github.com/granary-project/granary/pkg/utils/slices"
)

func TestCompareVersions(t *testing.T) {
	type when struct {
		a string
		b string
	}
	theory := func(when when, then int) func(*testing.T) {
		return func(t *testing.T) {
			actual := domain.CompareVersions(when.a, when.b)
			if actual != then {
				t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, then)
			}
		}
	}

	t.Run("it orders plain upstream versions", theory(when{a: "1.0-2", b: "1.0-1"}, 1))
	t.Run("it treats equal versions as equal", theory(when{a: "1.0-1", b: "1.0-1"}, 0))
	t.Run("it orders epochs above upstream versions", theory(when{a: "1:0.9", b: "2.0"}, 1))
	t.Run("it orders tilde below the empty string", theory(when{a: "1.0~rc1", b: "1.0"}, -1))
	t.Run("it orders debian revisions numerically", theory(when{a: "1.0-10", b: "1.0-9"}, 1))
}

func TestValidVersion(t *testing.T) {
	t.Run("it accepts a well-formed version", func(t *testing.T) {
		if !domain.ValidVersion("1:2.30.2-1ubuntu1") {
			t.Error("version is rejected, unexpectedly")
		}
	})
	t.Run("it rejects a malformed version", func(t *testing.T) {
		if domain.ValidVersion("not a version") {
			t.Error("version is accepted, unexpectedly")
		}
	})
}

func TestSortPublications(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC)
	}
	pub := func(id int, version string, created time.Time) *domain.SourcePublication {
		return &domain.SourcePublication{
			Id:          id,
			Source:      &domain.SourceRelease{Name: "hello", Version: version},
			Status:      domain.PubPublished,
			DateCreated: created,
		}
	}

	t.Run("it orders most current first", func(t *testing.T) {
		pubs := []*domain.SourcePublication{
			pub(1, "1.0-1", day(1)),
			pub(3, "1.0-3", day(3)),
			pub(2, "1.0-2", day(2)),
		}
		domain.SortPublications(pubs)

		actual := slices.Map(pubs, func(p *domain.SourcePublication) int { return p.Id })
		if !cmp.SliceEq(actual, []int{3, 2, 1}) {
			t.Errorf("unexpected order: %v", actual)
		}
	})

	t.Run("it breaks version ties with creation dates", func(t *testing.T) {
		pubs := []*domain.SourcePublication{
			pub(1, "1.0-1", day(1)),
			pub(2, "1.0-1", day(5)),
			pub(3, "1.0-1", day(3)),
		}
		domain.SortPublications(pubs)

		actual := slices.Map(pubs, func(p *domain.SourcePublication) int { return p.Id })
		if !cmp.SliceEq(actual, []int{2, 3, 1}) {
			t.Errorf("unexpected order: %v", actual)
		}
	})

	t.Run("it panics on a malformed version", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("no panic for malformed version")
			}
		}()
		pubs := []*domain.SourcePublication{
			pub(1, "1.0-1", day(1)),
			pub(2, "!bogus!", day(2)),
		}
		domain.SortPublications(pubs)
	})
}

func TestBinaryPublication_ArchSpecific(t *testing.T) {
	t.Run("arch-dependent binary is arch specific", func(t *testing.T) {
		bp := &domain.BinaryPublication{
			Binary: &domain.BinaryRelease{Name: "hello", ArchIndependent: false},
		}
		if !bp.ArchSpecific() {
			t.Error("binary is not arch specific, unexpectedly")
		}
	})
	t.Run("arch-independent binary is not arch specific", func(t *testing.T) {
		bp := &domain.BinaryPublication{
			Binary: &domain.BinaryRelease{Name: "hello-doc", ArchIndependent: true},
		}
		if bp.ArchSpecific() {
			t.Error("binary is arch specific, unexpectedly")
		}
	})
}
