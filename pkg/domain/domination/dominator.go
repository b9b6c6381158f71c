// Supersession engine of the publishing ledger.
//
// Given the live publications of one suite, the dominator decides which
// remain current and closes the rest. It never touches the database itself:
// it mutates the publications it was handed in memory and emits the matching
// DominationDecisions, which the caller applies in one transaction.
//
// Binaries are dominated in two passes. Architecture-specific binaries are
// judged per architecture first. Architecture-independent binaries are then
// judged once per package across all architectures, and every row sharing
// the losing binary release is closed as one atomic group with the same
// timestamp and the same dominant build. An arch-independent binary whose
// source release still has live arch-specific binaries is reprieved: closing
// it while its siblings are current would break installability.
//
// Double domination, or a debug package acting as dominant, means the
// candidate set upstream was computed wrong. These are defects, not
// recoverable conditions, and panic.
package domination

import (
	"fmt"
	"sort"
	"time"

	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/utils/slices"
)

// How long a closed publication stays on disk before its files may be
// removed, giving mirrors time to catch up.
const DefaultStayOfExecution = 24 * time.Hour

type Dominator struct {
	clock func() time.Time
	stay  time.Duration
}

type Option func(*Dominator) *Dominator

func WithClock(clock func() time.Time) Option {
	return func(d *Dominator) *Dominator {
		d.clock = clock
		return d
	}
}

func WithStayOfExecution(stay time.Duration) Option {
	return func(d *Dominator) *Dominator {
		d.stay = stay
		return d
	}
}

func New(options ...Option) *Dominator {
	d := &Dominator{
		clock: time.Now,
		stay:  DefaultStayOfExecution,
	}
	for _, o := range options {
		d = o(d)
	}
	return d
}

// Dominate runs one domination pass over a suite's live publications.
//
// The publications are mutated in place to reflect the decisions; the
// returned DominationDecisions carry the same changes for the ledger.
func (d *Dominator) Dominate(
	sources []*domain.SourcePublication,
	binaries []*domain.BinaryPublication,
) domain.DominationDecisions {
	when := d.clock()
	decisions := domain.DominationDecisions{
		When:         when,
		ScheduledFor: when,
	}

	d.dominateSources(sources, when, &decisions)
	d.dominateBinaries(binaries, when, &decisions)
	d.judge(sources, binaries, when, &decisions)

	return decisions
}

// DominateSourceVersions dominates one package against an explicit list of
// versions that are to stay live.
//
// Unlike a regular domination pass, several versions of the package may
// remain active side by side. The newest live version newer than a victim
// becomes its dominant; a victim newer than every live version has no
// successor and is deleted instead, which happens when a version vanishes
// during an archive import.
//
// All publications must belong to the same package; a mixed candidate set
// is a caller bug and panics.
func (d *Dominator) DominateSourceVersions(
	pubs []*domain.SourcePublication,
	liveVersions []string,
) domain.DominationDecisions {
	when := d.clock()
	decisions := domain.DominationDecisions{
		When:         when,
		ScheduledFor: when.Add(d.stay),
	}

	live := map[string]bool{}
	for _, v := range liveVersions {
		live[v] = true
	}

	candidates := []*domain.SourcePublication{}
	for _, pub := range pubs {
		if pub.Status.Active() {
			candidates = append(candidates, pub)
		}
	}
	domain.SortPublications(candidates)

	var dominant *domain.SourcePublication
	for _, pub := range candidates {
		if pub.Source.Name != candidates[0].Source.Name {
			panic(fmt.Sprintf(
				"version domination across packages: %s and %s",
				candidates[0].Source.Name, pub.Source.Name,
			))
		}

		switch {
		case dominant != nil && pub.Source.Version == dominant.Source.Version:
			// an older publication of a live version.
			pub.Supersede(dominant, when)
			decisions.Sources = append(decisions.Sources, domain.SourceSupersession{
				PublicationId:           pub.Id,
				DominantSourceReleaseId: dominant.Source.Id,
			})
		case live[pub.Source.Version]:
			dominant = pub
		case dominant == nil:
			// newer than every live version: nothing to be superseded by.
			pub.Delete(when, decisions.ScheduledFor)
			decisions.DeletedSources = append(decisions.DeletedSources, pub.Id)
		default:
			pub.Supersede(dominant, when)
			decisions.Sources = append(decisions.Sources, domain.SourceSupersession{
				PublicationId:           pub.Id,
				DominantSourceReleaseId: dominant.Source.Id,
			})
		}
	}

	return decisions
}

func (d *Dominator) dominateSources(pubs []*domain.SourcePublication, when time.Time, decisions *domain.DominationDecisions) {
	byName := map[string][]*domain.SourcePublication{}
	for _, pub := range pubs {
		if pub.Status.Active() {
			byName[pub.Source.Name] = append(byName[pub.Source.Name], pub)
		}
	}

	for _, name := range sortedKeys(byName) {
		candidates := byName[name]
		if len(candidates) < 2 {
			continue
		}
		domain.SortPublications(candidates)
		dominant := candidates[0]
		for _, victim := range candidates[1:] {
			victim.Supersede(dominant, when)
			decisions.Sources = append(decisions.Sources, domain.SourceSupersession{
				PublicationId:           victim.Id,
				DominantSourceReleaseId: dominant.Source.Id,
			})
		}
	}
}

func (d *Dominator) dominateBinaries(pubs []*domain.BinaryPublication, when time.Time, decisions *domain.DominationDecisions) {
	byName := map[string][]*domain.BinaryPublication{}
	for _, pub := range pubs {
		byName[pub.Binary.Name] = append(byName[pub.Binary.Name], pub)
	}

	// publications closed during this run. Members of an atomic group hit
	// again later in the same run are a no-op, anything else closed twice
	// is a bug.
	closedNow := map[int]bool{}

	// pass 1: architecture-specific binaries, judged per architecture.
	for _, name := range sortedKeys(byName) {
		byArch := map[int][]*domain.BinaryPublication{}
		for _, pub := range byName[name] {
			if pub.Status.Active() && pub.ArchSpecific() && !pub.Binary.IsDebug() {
				byArch[pub.ArchSeriesId] = append(byArch[pub.ArchSeriesId], pub)
			}
		}
		for _, archSeriesId := range slices.Sorted(
			slices.KeysOf(byArch), func(a, b int) bool { return a < b },
		) {
			candidates := byArch[archSeriesId]
			if len(candidates) < 2 {
				continue
			}
			domain.SortPublications(candidates)
			dominant := candidates[0]
			for _, victim := range candidates[1:] {
				d.supersedeBinary(victim, dominant, when, byName, closedNow, decisions)
			}
		}
	}

	// pass 2: architecture-independent binaries, judged once per package.
	archSpecificLive := liveArchSpecificBySource(pubs)
	for _, name := range sortedKeys(byName) {
		candidates := []*domain.BinaryPublication{}
		for _, pub := range byName[name] {
			if pub.Status.Active() && !pub.ArchSpecific() && !pub.Binary.IsDebug() {
				candidates = append(candidates, pub)
			}
		}
		if len(candidates) < 2 {
			continue
		}
		domain.SortPublications(candidates)
		dominant := candidates[0]
		for _, victim := range candidates[1:] {
			if victim.Binary.Id == dominant.Binary.Id {
				// another architecture's row of the dominant release.
				continue
			}
			if closedNow[victim.Id] {
				// the rest of an already-closed atomic group.
				continue
			}
			if archSpecificLive[victim.Binary.SourceReleaseId] {
				// reprieved: arch-specific siblings are still current.
				continue
			}
			// close the whole release atomically across architectures.
			for _, member := range byName[name] {
				if member.Binary.Id != victim.Binary.Id {
					continue
				}
				if !member.Status.Active() && !closedNow[member.Id] {
					continue
				}
				d.supersedeBinary(member, dominant, when, byName, closedNow, decisions)
			}
		}
	}
}

// supersedeBinary closes victim in favour of dominant's build, dragging the
// victim's debug-symbol shadow along.
func (d *Dominator) supersedeBinary(
	victim *domain.BinaryPublication,
	dominant *domain.BinaryPublication,
	when time.Time,
	byName map[string][]*domain.BinaryPublication,
	closedNow map[int]bool,
	decisions *domain.DominationDecisions,
) {
	if victim.Status == domain.PubSuperseded && closedNow[victim.Id] {
		// already closed as part of an atomic group this run.
		return
	}

	victim.Supersede(dominant, when)
	closedNow[victim.Id] = true

	decisions.Binaries = append(decisions.Binaries, domain.BinarySupersession{
		PublicationId:   victim.Id,
		DominantBuildId: dominant.Binary.BuildId,
	})

	// debug symbols follow their binary, never dominated on their own.
	for _, shadow := range byName[domain.DdebNameFor(victim.Binary.Name)] {
		if !shadow.Status.Active() || !shadow.Binary.IsDebug() {
			continue
		}
		if shadow.Binary.SourceReleaseId != victim.Binary.SourceReleaseId {
			continue
		}
		if shadow.Binary.Version != victim.Binary.Version {
			continue
		}
		if shadow.ArchSeriesId != victim.ArchSeriesId {
			continue
		}
		d.supersedeBinary(shadow, dominant, when, byName, closedNow, decisions)
	}
}

// judge schedules removal for publications closed long enough ago.
func (d *Dominator) judge(
	sources []*domain.SourcePublication,
	binaries []*domain.BinaryPublication,
	when time.Time,
	decisions *domain.DominationDecisions,
) {
	deadline := when.Add(-d.stay)

	for _, pub := range sources {
		if pub.Status.Active() || pub.ScheduledDeletionDate != nil {
			continue
		}
		if pub.DateSuperseded == nil || pub.DateSuperseded.After(deadline) {
			continue
		}
		scheduled := decisions.ScheduledFor
		pub.ScheduledDeletionDate = &scheduled
		decisions.ScheduledSources = append(decisions.ScheduledSources, pub.Id)
	}
	for _, pub := range binaries {
		if pub.Status.Active() || pub.ScheduledDeletionDate != nil {
			continue
		}
		if pub.DateSuperseded == nil || pub.DateSuperseded.After(deadline) {
			continue
		}
		scheduled := decisions.ScheduledFor
		pub.ScheduledDeletionDate = &scheduled
		decisions.ScheduledBinaries = append(decisions.ScheduledBinaries, pub.Id)
	}
}

func liveArchSpecificBySource(pubs []*domain.BinaryPublication) map[int]bool {
	live := map[int]bool{}
	for _, pub := range pubs {
		if pub.Status.Active() && pub.ArchSpecific() && !pub.Binary.IsDebug() {
			live[pub.Binary.SourceReleaseId] = true
		}
	}
	return live
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.KeysOf(m)
	sort.Strings(keys)
	return keys
}
