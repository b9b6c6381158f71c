package domain

import (
	"fmt"
	"strings"
)

type BinaryFormat string

const (
	FormatDeb  BinaryFormat = "deb"
	FormatUdeb BinaryFormat = "udeb"

	// Debug-symbol package. Published only as a shadow of its DEB.
	FormatDdeb BinaryFormat = "ddeb"
)

func (bf BinaryFormat) String() string {
	return string(bf)
}

func AsBinaryFormat(format string) (BinaryFormat, error) {
	switch format {
	case string(FormatDeb):
		return FormatDeb, nil
	case string(FormatUdeb):
		return FormatUdeb, nil
	case string(FormatDdeb):
		return FormatDdeb, nil
	default:
		return "", fmt.Errorf("'%s' is not BinaryFormat", format)
	}
}

type PackagePriority string

const (
	PriorityRequired  PackagePriority = "required"
	PriorityImportant PackagePriority = "important"
	PriorityStandard  PackagePriority = "standard"
	PriorityOptional  PackagePriority = "optional"
	PriorityExtra     PackagePriority = "extra"
)

func (pp PackagePriority) String() string {
	return string(pp)
}

func AsPackagePriority(priority string) (PackagePriority, error) {
	switch priority {
	case string(PriorityRequired):
		return PriorityRequired, nil
	case string(PriorityImportant):
		return PriorityImportant, nil
	case string(PriorityStandard):
		return PriorityStandard, nil
	case string(PriorityOptional):
		return PriorityOptional, nil
	case string(PriorityExtra):
		return PriorityExtra, nil
	default:
		return "", fmt.Errorf("'%s' is not PackagePriority", priority)
	}
}

// PackageFile is one file declared by a release, identified by content hash.
type PackageFile struct {
	Filename string
	SHA256   string
	Size     int64
}

// IsOrig reports whether this is an upstream orig tarball. Orig tarballs are
// shared between Debian revisions of the same upstream version, so the pool
// tolerates re-placing them as long as the content hash matches.
func (f PackageFile) IsOrig() bool {
	return strings.Contains(f.Filename, ".orig.tar.")
}

// SourceRelease is an immutable source package release: name, version and
// the declared files. Granary never mutates these, only reads.
type SourceRelease struct {
	Id        int
	Name      string
	Version   string
	Component string
	Section   string
	Changelog string
	Files     []PackageFile
}

func (sr SourceRelease) Title() string {
	return sr.Name + "/" + sr.Version
}

// Build is one per-architecture build of a source release.
type Build struct {
	Id              int
	SourceReleaseId int
	ArchSeriesId    int
	ArchTag         string
	Status          BuildStatus
}

// BinaryRelease is an immutable binary package release produced by a build.
type BinaryRelease struct {
	Id              int
	BuildId         int
	SourceReleaseId int

	// name of the producing source package. Pool paths are laid out by
	// source name, not binary name.
	SourceName string

	Name            string
	Version         string
	Format          BinaryFormat
	ArchIndependent bool
	Component       string
	Section         string
	Priority        PackagePriority
	Files           []PackageFile
}

func (br BinaryRelease) Title() string {
	return br.Name + "/" + br.Version
}

func (br BinaryRelease) IsDebug() bool {
	return br.Format == FormatDdeb
}

// DdebNameFor gives the debug-symbol counterpart name for a deb.
func DdebNameFor(debName string) string {
	return debName + "-dbgsym"
}
