package domain

import "fmt"

type ArchivePurpose string

const (
	// The distribution's main archive.
	ArchivePrimary ArchivePurpose = "primary"

	// A personal archive. Relaxed component rules, RELEASE pocket only.
	ArchivePPA ArchivePurpose = "ppa"

	// A rebuild/copy archive populated from another archive.
	ArchiveCopy ArchivePurpose = "copy"
)

func (ap ArchivePurpose) String() string {
	return string(ap)
}

func AsArchivePurpose(purpose string) (ArchivePurpose, error) {
	switch purpose {
	case string(ArchivePrimary):
		return ArchivePrimary, nil
	case string(ArchivePPA):
		return ArchivePPA, nil
	case string(ArchiveCopy):
		return ArchiveCopy, nil
	default:
		return "", fmt.Errorf("'%s' is not ArchivePurpose", purpose)
	}
}

type Distribution struct {
	Name  string
	Owner string
}

type Archive struct {
	Id           int
	Distribution string
	Name         string
	Purpose      ArchivePurpose
}

func (a Archive) IsPPA() bool {
	return a.Purpose == ArchivePPA
}

// CanModifySuite gates acceptance and publication: it refuses, for example,
// uploads into the RELEASE pocket of a released series. PPAs only ever use
// the RELEASE pocket and stay modifiable until the series goes obsolete.
func (a Archive) CanModifySuite(series Series, pocket Pocket) bool {
	if a.IsPPA() {
		return series.Status != SeriesObsolete && pocket == PocketRelease
	}
	return pocket.ModifiableIn(series.Status)
}

// PublisherConfig locates a distribution's published archive tree on disk.
// A distribution without one cannot be published or initialized.
type PublisherConfig struct {
	Distribution string
	RootDir      string
}

type Permission string

const (
	PermUpload Permission = "upload"
	PermAdmin  Permission = "admin"
)

// ArchivePermission grants a person upload/admin rights scoped to a
// component, packageset, or (series, pocket).
type ArchivePermission struct {
	Id           int
	Person       string
	Permission   Permission
	ArchiveId    int
	Component    string
	PacksetId    *int
	SeriesId     *int
	Pocket       *Pocket
	Explicit     bool
}
