package domain

// Series is one release line of a distribution ("noble", "trixie", ...).
type Series struct {
	Id           int
	Distribution string
	Name         string
	Version      string
	Status       SeriesStatus

	// Id of the series this one was opened from, if any.
	PreviousSeriesId *int

	// Ids of the series this one was initialized from. Empty until the
	// series has been initialized.
	ParentIds []int
}

func (s Series) Initialized() bool {
	return len(s.ParentIds) > 0
}

// ArchSeries is one buildable architecture of a series.
type ArchSeries struct {
	Id       int
	SeriesId int
	ArchTag  string
	Enabled  bool

	// The architecture whose builds publish arch-independent binaries.
	NominatedArchIndep bool
}
