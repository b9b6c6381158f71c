package domain_test

import (
	"testing"

	"github.com/granary-project/granary/pkg/domain"
)

func TestPocket_Suite(t *testing.T) {
	type when struct {
		pocket domain.Pocket
		series string
	}
	theory := func(when when, then string) func(*testing.T) {
		return func(t *testing.T) {
			actual := when.pocket.Suite(when.series)
			if actual != then {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, then)
			}
		}
	}

	t.Run("release pocket names the bare series", theory(
		when{pocket: domain.PocketRelease, series: "noble"}, "noble",
	))
	t.Run("security pocket appends its suffix", theory(
		when{pocket: domain.PocketSecurity, series: "noble"}, "noble-security",
	))
	t.Run("backports pocket appends its suffix", theory(
		when{pocket: domain.PocketBackports, series: "jammy"}, "jammy-backports",
	))
}

func TestAsSuite(t *testing.T) {
	type then struct {
		series string
		pocket domain.Pocket
		isErr  bool
	}
	theory := func(suite string, then then) func(*testing.T) {
		return func(t *testing.T) {
			series, pocket, err := domain.AsSuite(suite)
			if then.isErr {
				if err == nil {
					t.Fatalf("no error for suite %s", suite)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if series != then.series || pocket != then.pocket {
				t.Errorf(
					"unmatch: (actual, expected) = ((%s, %s), (%s, %s))",
					series, pocket, then.series, then.pocket,
				)
			}
		}
	}

	t.Run("bare name is the release pocket", theory(
		"noble", then{series: "noble", pocket: domain.PocketRelease},
	))
	t.Run("suffixed name carries its pocket", theory(
		"noble-updates", then{series: "noble", pocket: domain.PocketUpdates},
	))
	t.Run("unknown suffix is an error", theory(
		"noble-experimental", then{isErr: true},
	))
}

func TestPocket_ModifiableIn(t *testing.T) {
	type when struct {
		pocket domain.Pocket
		status domain.SeriesStatus
	}
	theory := func(when when, then bool) func(*testing.T) {
		return func(t *testing.T) {
			actual := when.pocket.ModifiableIn(when.status)
			if actual != then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, then)
			}
		}
	}

	t.Run("release pocket is open before release", theory(
		when{pocket: domain.PocketRelease, status: domain.SeriesDevelopment}, true,
	))
	t.Run("proposed pocket is open before release", theory(
		when{pocket: domain.PocketProposed, status: domain.SeriesFrozen}, true,
	))
	t.Run("updates pocket does not exist before release", theory(
		when{pocket: domain.PocketUpdates, status: domain.SeriesDevelopment}, false,
	))
	t.Run("release pocket is frozen once released", theory(
		when{pocket: domain.PocketRelease, status: domain.SeriesCurrent}, false,
	))
	t.Run("security pocket is open once released", theory(
		when{pocket: domain.PocketSecurity, status: domain.SeriesCurrent}, true,
	))
	t.Run("updates pocket is open for supported series", theory(
		when{pocket: domain.PocketUpdates, status: domain.SeriesSupported}, true,
	))
	t.Run("obsolete series accepts nothing", theory(
		when{pocket: domain.PocketSecurity, status: domain.SeriesObsolete}, false,
	))
}

func TestInitPockets(t *testing.T) {
	t.Run("proposed and backports never propagate to a child series", func(t *testing.T) {
		for _, p := range domain.InitPockets() {
			if p == domain.PocketProposed || p == domain.PocketBackports {
				t.Errorf("pocket %s propagates, unexpectedly", p)
			}
			if !domain.IsInitPocket(p) {
				t.Errorf("pocket %s denies IsInitPocket, unexpectedly", p)
			}
		}
		if domain.IsInitPocket(domain.PocketProposed) {
			t.Error("proposed pocket propagates, unexpectedly")
		}
	})
}
