package domain

import (
	"fmt"
	"strings"
)

// Pocket is a named sub-channel of a series with its own modification rules.
type Pocket string

const (
	PocketRelease   Pocket = "release"
	PocketSecurity  Pocket = "security"
	PocketUpdates   Pocket = "updates"
	PocketProposed  Pocket = "proposed"
	PocketBackports Pocket = "backports"
)

func (p Pocket) String() string {
	return string(p)
}

func AsPocket(pocket string) (Pocket, error) {
	switch pocket {
	case string(PocketRelease):
		return PocketRelease, nil
	case string(PocketSecurity):
		return PocketSecurity, nil
	case string(PocketUpdates):
		return PocketUpdates, nil
	case string(PocketProposed):
		return PocketProposed, nil
	case string(PocketBackports):
		return PocketBackports, nil
	default:
		return "", fmt.Errorf("'%s' is not Pocket", pocket)
	}
}

// Suite is the apt-visible name of a (series, pocket) pair:
// "noble" for the RELEASE pocket, "noble-security" otherwise.
func (p Pocket) Suite(seriesName string) string {
	if p == PocketRelease {
		return seriesName
	}
	return seriesName + "-" + string(p)
}

// AsSuite splits an apt suite name back into series name and pocket.
func AsSuite(suite string) (string, Pocket, error) {
	name, pocket, found := strings.Cut(suite, "-")
	if !found {
		return suite, PocketRelease, nil
	}
	p, err := AsPocket(pocket)
	if err != nil {
		return "", "", fmt.Errorf("'%s' is not a suite name: %w", suite, err)
	}
	return name, p, nil
}

// ModifiableIn tells whether this pocket accepts new publications for a
// series in the given status. Once a series is released its RELEASE pocket
// is frozen forever; before release only RELEASE and PROPOSED exist.
func (p Pocket) ModifiableIn(status SeriesStatus) bool {
	if status.Released() {
		if status == SeriesObsolete {
			return false
		}
		return p != PocketRelease
	}
	switch p {
	case PocketRelease, PocketProposed:
		return true
	default:
		return false
	}
}

// Pockets whose contents are carried over when a child series is initialized
// from this series. PROPOSED and BACKPORTS never propagate.
func InitPockets() []Pocket {
	return []Pocket{PocketRelease, PocketSecurity, PocketUpdates}
}

func IsInitPocket(p Pocket) bool {
	switch p {
	case PocketRelease, PocketSecurity, PocketUpdates:
		return true
	default:
		return false
	}
}
