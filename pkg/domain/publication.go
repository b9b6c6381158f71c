package domain

import (
	"fmt"
	"sort"
	"time"

	debversion "github.com/knqyf263/go-deb-version"
)

// SourcePublication is one row of the source publishing ledger: "this source
// release is published in this archive/series/pocket with these overrides".
//
// Rows are append-only. Override changes and copies create new PENDING rows;
// old rows are closed off by the dominator or by deletion requests.
type SourcePublication struct {
	Id        int
	ArchiveId int
	SeriesId  int
	Pocket    Pocket
	Source    *SourceRelease
	Status    PublicationStatus
	Component string
	Section   string

	DateCreated           time.Time
	DatePublished         *time.Time
	DateSuperseded        *time.Time
	ScheduledDeletionDate *time.Time
	DateRemoved           *time.Time

	// The source release that took over, set when Status is superseded.
	SupersededById *int
}

// BinaryPublication is one row of the binary publishing ledger. An
// arch-independent binary gets one row per architecture of its series, all
// representing a single logical artifact.
type BinaryPublication struct {
	Id           int
	ArchiveId    int
	SeriesId     int
	ArchSeriesId int
	ArchTag      string
	Pocket       Pocket
	Binary       *BinaryRelease
	Status       PublicationStatus
	Component    string
	Section      string
	Priority     PackagePriority

	// Phasing percentage for staged update rollout, when set.
	PhasedUpdatePercentage *int

	DateCreated           time.Time
	DatePublished         *time.Time
	DateSuperseded        *time.Time
	ScheduledDeletionDate *time.Time
	DateRemoved           *time.Time

	// The build that took over, set when Status is superseded. The build,
	// not a binary release: a newer source may stop producing this binary
	// entirely.
	SupersededById *int
}

func (sp *SourcePublication) PackageName() string {
	return sp.Source.Name
}

func (sp *SourcePublication) PackageVersion() string {
	return sp.Source.Version
}

func (sp *SourcePublication) CreatedAt() time.Time {
	return sp.DateCreated
}

func (bp *BinaryPublication) PackageName() string {
	return bp.Binary.Name
}

func (bp *BinaryPublication) PackageVersion() string {
	return bp.Binary.Version
}

func (bp *BinaryPublication) CreatedAt() time.Time {
	return bp.DateCreated
}

func (bp *BinaryPublication) ArchSpecific() bool {
	return !bp.Binary.ArchIndependent
}

// Supersede closes this publication in favour of the dominant publication's
// source release.
//
// Superseding an already superseded publication means the caller's candidate
// set was computed wrong and panics.
func (sp *SourcePublication) Supersede(dominant *SourcePublication, when time.Time) {
	if sp.Status == PubSuperseded {
		panic(fmt.Sprintf(
			"source publication %d (%s) superseded twice", sp.Id, sp.Source.Title(),
		))
	}
	closedAt := when
	sp.Status = PubSuperseded
	sp.DateSuperseded = &closedAt
	dominantId := dominant.Source.Id
	sp.SupersededById = &dominantId
}

// Delete closes this publication without a successor, scheduling its files
// for removal. Used when a version disappears rather than being replaced.
func (sp *SourcePublication) Delete(when time.Time, scheduledFor time.Time) {
	closedAt := when
	scheduled := scheduledFor
	sp.Status = PubDeleted
	sp.DateSuperseded = &closedAt
	sp.ScheduledDeletionDate = &scheduled
}

// Supersede closes this publication in favour of the dominant publication's
// build.
//
// A debug package can never be dominant, and a superseded publication can
// never be superseded again. Both are candidate-set defects and panic.
func (bp *BinaryPublication) Supersede(dominant *BinaryPublication, when time.Time) {
	if dominant.Binary.IsDebug() {
		panic(fmt.Sprintf(
			"debug package %s cannot supersede", dominant.Binary.Title(),
		))
	}
	if bp.Status == PubSuperseded {
		panic(fmt.Sprintf(
			"binary publication %d (%s [%s]) superseded twice",
			bp.Id, bp.Binary.Title(), bp.ArchTag,
		))
	}
	closedAt := when
	bp.Status = PubSuperseded
	bp.DateSuperseded = &closedAt
	dominantBuildId := dominant.Binary.BuildId
	bp.SupersededById = &dominantBuildId
}

// Publication generalizes the two ledger row kinds for code that orders and
// dominates them without caring which kind it has.
type Publication interface {
	PackageName() string
	PackageVersion() string
	CreatedAt() time.Time
}

// ValidVersion reports whether s is a well-formed Debian version string.
func ValidVersion(s string) bool {
	return debversion.Valid(s)
}

// CompareVersions orders two Debian version strings: negative when a is
// older than b, zero when equal, positive when newer. Versions are validated
// at upload time, so a malformed version here is a caller bug.
func CompareVersions(a, b string) int {
	va, err := debversion.NewVersion(a)
	if err != nil {
		panic(fmt.Sprintf("malformed version %q: %v", a, err))
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		panic(fmt.Sprintf("malformed version %q: %v", b, err))
	}
	if va.Equal(vb) {
		return 0
	}
	if va.GreaterThan(vb) {
		return 1
	}
	return -1
}

// ComparePublications orders two publications of the same package by
// version, breaking ties with creation dates.
func ComparePublications(a, b Publication) int {
	if c := CompareVersions(a.PackageVersion(), b.PackageVersion()); c != 0 {
		return c
	}
	return a.CreatedAt().Compare(b.CreatedAt())
}

// SortPublications orders publications from most to least current, the
// order the dominator consumes them in. The sort is in place.
func SortPublications[P Publication](pubs []P) {
	sort.SliceStable(pubs, func(i, j int) bool {
		return ComparePublications(pubs[i], pubs[j]) > 0
	})
}
