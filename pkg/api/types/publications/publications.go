package publications

import (
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/utils/rfctime"
)

type Source struct {
	Id          int             `json:"id"`
	PackageName string          `json:"packageName"`
	Version     string          `json:"version"`
	Pocket      string          `json:"pocket"`
	Status      string          `json:"status"`
	Component   string          `json:"component"`
	Section     string          `json:"section"`
	CreatedAt   rfctime.RFC3339 `json:"createdAt"`
}

func ComposeSource(p *domain.SourcePublication) Source {
	return Source{
		Id:          p.Id,
		PackageName: p.Source.Name,
		Version:     p.Source.Version,
		Pocket:      string(p.Pocket),
		Status:      string(p.Status),
		Component:   p.Component,
		Section:     p.Section,
		CreatedAt:   rfctime.RFC3339(p.DateCreated),
	}
}

type Binary struct {
	Id          int             `json:"id"`
	PackageName string          `json:"packageName"`
	Version     string          `json:"version"`
	ArchTag     string          `json:"archTag"`
	Pocket      string          `json:"pocket"`
	Status      string          `json:"status"`
	Component   string          `json:"component"`
	Section     string          `json:"section"`
	Priority    string          `json:"priority"`
	CreatedAt   rfctime.RFC3339 `json:"createdAt"`
}

func ComposeBinary(p *domain.BinaryPublication) Binary {
	return Binary{
		Id:          p.Id,
		PackageName: p.Binary.Name,
		Version:     p.Binary.Version,
		ArchTag:     p.ArchTag,
		Pocket:      string(p.Pocket),
		Status:      string(p.Status),
		Component:   p.Component,
		Section:     p.Section,
		Priority:    string(p.Priority),
		CreatedAt:   rfctime.RFC3339(p.DateCreated),
	}
}

// Suite groups one suite's live publications for listing.
type Suite struct {
	ArchiveId int      `json:"archiveId"`
	SeriesId  int      `json:"seriesId"`
	Pocket    string   `json:"pocket"`
	Sources   []Source `json:"sources"`
	Binaries  []Binary `json:"binaries"`
}
