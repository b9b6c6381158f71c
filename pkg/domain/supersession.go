package domain

import "time"

// SourceSupersession closes one source publication in favour of a newer
// source release.
type SourceSupersession struct {
	PublicationId int

	// the source release that took over.
	DominantSourceReleaseId int
}

// BinarySupersession closes one binary publication in favour of the build
// that produced the dominant binary.
type BinarySupersession struct {
	PublicationId int

	// the build that took over. A build, not a binary release: a newer
	// source may have stopped producing this binary entirely.
	DominantBuildId int
}

// DominationDecisions is the outcome of one domination run over a suite,
// applied to the ledger as a single transaction. An arch-independent
// binary's publications are superseded as one atomic group in here: they
// share When and the dominant build.
type DominationDecisions struct {
	// datesuperseded for every supersession in this run.
	When time.Time

	Sources  []SourceSupersession
	Binaries []BinarySupersession

	// source publications closed without a successor. A version newer than
	// every live version has no release to be superseded by; it vanished
	// from the archive instead, which happens during archive imports.
	DeletedSources []int

	// already-closed publications whose removal is now scheduled.
	ScheduledSources  []int
	ScheduledBinaries []int

	// scheduleddeletiondate for the scheduled publications.
	ScheduledFor time.Time
}

func (d DominationDecisions) Empty() bool {
	return len(d.Sources) == 0 && len(d.Binaries) == 0 &&
		len(d.DeletedSources) == 0 &&
		len(d.ScheduledSources) == 0 && len(d.ScheduledBinaries) == 0
}
