package queue

import (
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/utils/cmp"
	"github.com/granary-project/granary/pkg/utils/rfctime"
	"github.com/granary-project/granary/pkg/utils/slices"
)

type Summary struct {
	Id             int             `json:"id"`
	Status         string          `json:"status"`
	ArchiveId      int             `json:"archiveId"`
	SeriesId       int             `json:"seriesId"`
	Pocket         string          `json:"pocket"`
	DisplayName    string          `json:"displayName"`
	PackageName    string          `json:"packageName,omitempty"`
	PackageVersion string          `json:"packageVersion,omitempty"`
	CreatedAt      rfctime.RFC3339 `json:"createdAt"`
}

func ComposeSummary(u *domain.Upload) Summary {
	return Summary{
		Id:             u.Id,
		Status:         string(u.Status),
		ArchiveId:      u.ArchiveId,
		SeriesId:       u.SeriesId,
		Pocket:         string(u.Pocket),
		DisplayName:    u.DisplayName(),
		PackageName:    u.PackageName(),
		PackageVersion: u.PackageVersion(),
		CreatedAt:      rfctime.RFC3339(u.DateCreated),
	}
}

func (s *Summary) Equal(o *Summary) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	return s.Id == o.Id &&
		s.Status == o.Status &&
		s.ArchiveId == o.ArchiveId &&
		s.SeriesId == o.SeriesId &&
		s.Pocket == o.Pocket &&
		s.DisplayName == o.DisplayName &&
		s.PackageName == o.PackageName &&
		s.PackageVersion == o.PackageVersion &&
		s.CreatedAt.Equal(&o.CreatedAt)
}

type Source struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Component string `json:"component"`
	Section   string `json:"section"`
}

type Binary struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Format          string `json:"format"`
	ArchIndependent bool   `json:"archIndependent"`
	Component       string `json:"component"`
	Section         string `json:"section"`
	Priority        string `json:"priority"`
}

type Build struct {
	ArchTag  string   `json:"archTag"`
	Binaries []Binary `json:"binaries"`
}

type Custom struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
}

type Detail struct {
	Summary
	ChangesFile string   `json:"changesFile,omitempty"`
	CopyJobId   *int     `json:"copyJobId,omitempty"`
	Sources     []Source `json:"sources"`
	Builds      []Build  `json:"builds"`
	Customs     []Custom `json:"customs"`
}

func ComposeDetail(u *domain.Upload) Detail {
	return Detail{
		Summary:     ComposeSummary(u),
		ChangesFile: u.ChangesFile,
		CopyJobId:   u.CopyJobId,
		Sources: slices.Map(u.Sources, func(s domain.UploadSource) Source {
			return Source{
				Name:      s.Source.Name,
				Version:   s.Source.Version,
				Component: s.Source.Component,
				Section:   s.Source.Section,
			}
		}),
		Builds: slices.Map(u.Builds, func(b domain.UploadBuild) Build {
			return Build{
				ArchTag: b.Build.ArchTag,
				Binaries: slices.Map(b.Binaries, func(bin domain.BinaryRelease) Binary {
					return Binary{
						Name:            bin.Name,
						Version:         bin.Version,
						Format:          string(bin.Format),
						ArchIndependent: bin.ArchIndependent,
						Component:       bin.Component,
						Section:         bin.Section,
						Priority:        string(bin.Priority),
					}
				}),
			}
		}),
		Customs: slices.Map(u.Customs, func(c domain.UploadCustom) Custom {
			return Custom{Format: c.Format, Filename: c.Filename}
		}),
	}
}

func (d *Detail) Equal(o *Detail) bool {
	if d == nil || o == nil {
		return d == nil && o == nil
	}
	copyJobEq := (d.CopyJobId == nil) == (o.CopyJobId == nil) &&
		(d.CopyJobId == nil || *d.CopyJobId == *o.CopyJobId)
	return d.Summary.Equal(&o.Summary) &&
		d.ChangesFile == o.ChangesFile &&
		copyJobEq &&
		cmp.SliceContentEq(d.Sources, o.Sources) &&
		cmp.SliceContentEqWith(d.Builds, o.Builds, Build.equal) &&
		cmp.SliceContentEq(d.Customs, o.Customs)
}

func (b Build) equal(o Build) bool {
	return b.ArchTag == o.ArchTag && cmp.SliceContentEq(b.Binaries, o.Binaries)
}
