package domain

import (
	"strings"
	"time"
)

// Upload is one item of an archive's upload queue: a source release, one or
// more builds and/or custom files on their way into a (series, pocket).
//
// Uploads are never deleted; the queue doubles as a permanent audit trail.
// A copy-job backed upload carries no source or build content of its own:
// the job is authoritative.
type Upload struct {
	Id          int
	Status      UploadStatus
	ArchiveId   int
	SeriesId    int
	Pocket      Pocket
	ChangesFile string
	SigningKey  string
	CopyJobId   *int
	DateCreated time.Time

	Sources []UploadSource
	Builds  []UploadBuild
	Customs []UploadCustom
}

// UploadSource attaches a source release to an upload.
type UploadSource struct {
	Id       int
	UploadId int
	Source   *SourceRelease
}

// UploadBuild attaches one architecture's build, with its binaries, to an
// upload.
type UploadBuild struct {
	Id       int
	UploadId int
	Build    *Build
	Binaries []BinaryRelease
}

// UploadCustom attaches an arbitrary typed blob (installer image,
// translations tarball, ...) to an upload. Format names one of the sealed
// custom formats in domain/custom.
type UploadCustom struct {
	Id       int
	UploadId int
	Format   string
	Filename string
	SHA256   string
}

func (u *Upload) ContainsSource() bool {
	return len(u.Sources) > 0
}

func (u *Upload) ContainsBuild() bool {
	return len(u.Builds) > 0
}

func (u *Upload) ContainsCopy() bool {
	return u.CopyJobId != nil
}

// IsSingleSource reports whether this upload carries exactly one source and
// nothing else. Such uploads can be realised immediately on acceptance.
func (u *Upload) IsSingleSource() bool {
	return len(u.Sources) == 1 && len(u.Builds) == 0 && len(u.Customs) == 0
}

func (u *Upload) PackageName() string {
	if len(u.Sources) > 0 {
		return u.Sources[0].Source.Name
	}
	if len(u.Builds) > 0 && len(u.Builds[0].Binaries) > 0 {
		return u.Builds[0].Binaries[0].Name
	}
	return ""
}

func (u *Upload) PackageVersion() string {
	if len(u.Sources) > 0 {
		return u.Sources[0].Source.Version
	}
	if len(u.Builds) > 0 && len(u.Builds[0].Binaries) > 0 {
		return u.Builds[0].Binaries[0].Version
	}
	return ""
}

// DisplayName lists everything the upload carries, for queue listings and
// notification subjects.
func (u *Upload) DisplayName() string {
	names := []string{}
	for _, s := range u.Sources {
		names = append(names, s.Source.Name)
	}
	for _, b := range u.Builds {
		for _, bin := range b.Binaries {
			names = append(names, bin.Name)
		}
	}
	for _, c := range u.Customs {
		names = append(names, c.Filename)
	}
	return strings.Join(names, ", ")
}

// BinaryFilenames is the union of filenames the upload's builds would
// introduce into the archive.
func (u *Upload) BinaryFilenames() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, b := range u.Builds {
		for _, bin := range b.Binaries {
			for _, f := range bin.Files {
				if seen[f.Filename] {
					continue
				}
				seen[f.Filename] = true
				names = append(names, f.Filename)
			}
		}
	}
	return names
}

// PolicyConfig carries the per-call acceptance policy. It is populated once
// per request or batch run and passed in explicitly; nothing in the
// acceptance or domination logic reads ambient configuration.
type PolicyConfig struct {
	// Accept NEW uploads without operator review when the target suite
	// allows it.
	AutoAccept bool

	// Skip the component whitelist check (personal archives).
	RelaxedComponentChecks bool
}
