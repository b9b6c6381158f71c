package domain

import "fmt"

type UploadStatus string

const (
	// This Upload has just arrived and waits for review or auto-acceptance.
	UploadNew UploadStatus = "new"

	// This Upload needs queue-admin approval before it can be accepted.
	UploadUnapproved UploadStatus = "unapproved"

	// This Upload passed all acceptance checks. Publications are created
	// when it is realised.
	UploadAccepted UploadStatus = "accepted"

	// This Upload was turned down. It can be resurrected into ACCEPTED.
	UploadRejected UploadStatus = "rejected"

	// This Upload has been realised. Terminal.
	UploadDone UploadStatus = "done"
)

func (us UploadStatus) String() string {
	return string(us)
}

func AsUploadStatus(status string) (UploadStatus, error) {
	switch status {
	case string(UploadNew):
		return UploadNew, nil
	case string(UploadUnapproved):
		return UploadUnapproved, nil
	case string(UploadAccepted):
		return UploadAccepted, nil
	case string(UploadRejected):
		return UploadRejected, nil
	case string(UploadDone):
		return UploadDone, nil
	default:
		return "", fmt.Errorf("'%s' is not UploadStatus", status)
	}
}

// uploads in these statuses still hold the queue: their packages count as
// "waiting" for the initseries queue-conflict check.
func UploadHoldingStatuses() []UploadStatus {
	return []UploadStatus{UploadNew, UploadAccepted, UploadUnapproved}
}

type PublicationStatus string

const (
	// Created, not yet written out to the pool and indexes.
	PubPending PublicationStatus = "pending"

	// Live in the archive indexes.
	PubPublished PublicationStatus = "published"

	// A newer matching publication took over. Never mutated again except
	// for removal bookkeeping.
	PubSuperseded PublicationStatus = "superseded"

	// Removal was requested explicitly.
	PubDeleted PublicationStatus = "deleted"

	// The whole series went obsolete.
	PubObsolete PublicationStatus = "obsolete"
)

func (ps PublicationStatus) String() string {
	return string(ps)
}

func AsPublicationStatus(status string) (PublicationStatus, error) {
	switch status {
	case string(PubPending):
		return PubPending, nil
	case string(PubPublished):
		return PubPublished, nil
	case string(PubSuperseded):
		return PubSuperseded, nil
	case string(PubDeleted):
		return PubDeleted, nil
	case string(PubObsolete):
		return PubObsolete, nil
	default:
		return "", fmt.Errorf("'%s' is not PublicationStatus", status)
	}
}

// Active = the publication takes part in the archive: it occupies its
// filename in the namespace and is a candidate for domination.
func (ps PublicationStatus) Active() bool {
	switch ps {
	case PubPending, PubPublished:
		return true
	default:
		return false
	}
}

func ActivePublicationStatuses() []PublicationStatus {
	return []PublicationStatus{PubPending, PubPublished}
}

func InactivePublicationStatuses() []PublicationStatus {
	return []PublicationStatus{PubSuperseded, PubDeleted, PubObsolete}
}

type SeriesStatus string

const (
	SeriesExperimental SeriesStatus = "experimental"
	SeriesDevelopment  SeriesStatus = "development"
	SeriesFrozen       SeriesStatus = "frozen"

	// The currently released stable series.
	SeriesCurrent SeriesStatus = "current"

	// A released series still receiving updates.
	SeriesSupported SeriesStatus = "supported"

	SeriesObsolete SeriesStatus = "obsolete"
)

func (ss SeriesStatus) String() string {
	return string(ss)
}

func AsSeriesStatus(status string) (SeriesStatus, error) {
	switch status {
	case string(SeriesExperimental):
		return SeriesExperimental, nil
	case string(SeriesDevelopment):
		return SeriesDevelopment, nil
	case string(SeriesFrozen):
		return SeriesFrozen, nil
	case string(SeriesCurrent):
		return SeriesCurrent, nil
	case string(SeriesSupported):
		return SeriesSupported, nil
	case string(SeriesObsolete):
		return SeriesObsolete, nil
	default:
		return "", fmt.Errorf("'%s' is not SeriesStatus", status)
	}
}

// Released series never accept uploads into their RELEASE pocket again.
func (ss SeriesStatus) Released() bool {
	switch ss {
	case SeriesCurrent, SeriesSupported, SeriesObsolete:
		return true
	default:
		return false
	}
}

type BuildStatus string

const (
	BuildNeedsBuild    BuildStatus = "needsbuild"
	BuildBuilding      BuildStatus = "building"
	BuildFullyBuilt    BuildStatus = "fullybuilt"
	BuildFailedToBuild BuildStatus = "failedtobuild"
)

func (bs BuildStatus) String() string {
	return string(bs)
}

func AsBuildStatus(status string) (BuildStatus, error) {
	switch status {
	case string(BuildNeedsBuild):
		return BuildNeedsBuild, nil
	case string(BuildBuilding):
		return BuildBuilding, nil
	case string(BuildFullyBuilt):
		return BuildFullyBuilt, nil
	case string(BuildFailedToBuild):
		return BuildFailedToBuild, nil
	default:
		return "", fmt.Errorf("'%s' is not BuildStatus", status)
	}
}

type CopyJobStatus string

const (
	CopyJobQueued    CopyJobStatus = "queued"
	CopyJobRunning   CopyJobStatus = "running"
	CopyJobCompleted CopyJobStatus = "completed"
	CopyJobFailed    CopyJobStatus = "failed"
)

func (cs CopyJobStatus) String() string {
	return string(cs)
}

func AsCopyJobStatus(status string) (CopyJobStatus, error) {
	switch status {
	case string(CopyJobQueued):
		return CopyJobQueued, nil
	case string(CopyJobRunning):
		return CopyJobRunning, nil
	case string(CopyJobCompleted):
		return CopyJobCompleted, nil
	case string(CopyJobFailed):
		return CopyJobFailed, nil
	default:
		return "", fmt.Errorf("'%s' is not CopyJobStatus", status)
	}
}
