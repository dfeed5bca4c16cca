package fixture

import (
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/team"
)

// DropPlaceholderScore clears a 0-0 on a fixture that has not been played yet
// relative to now. Feeds publish 0-0 for scheduled games.
func DropPlaceholderScore(f Fixture, now time.Time) Fixture {
	if f.IsZeroZero() && DateOnly(f.MatchDate).After(DateOnly(now)) {
		f.HomeScore = nil
		f.AwayScore = nil
	}
	return f
}

// MergeIncoming applies an incoming sighting of the same fixture to the stored
// row. Scores are replaced only when the incoming pair is complete and the
// stored row is not a recorded 0-0. Link fields are filled only when empty.
func MergeIncoming(stored, incoming Fixture) (Fixture, bool) {
	out := stored
	changed := false

	if incoming.HasResult() && !stored.IsZeroZero() {
		if !sameScore(stored.HomeScore, incoming.HomeScore) || !sameScore(stored.AwayScore, incoming.AwayScore) {
			hs, as := *incoming.HomeScore, *incoming.AwayScore
			out.HomeScore = &hs
			out.AwayScore = &as
			changed = true
		}
	}

	changed = fillString(&out.EventID, incoming.EventID) || changed
	changed = fillString(&out.SourceKey, incoming.SourceKey) || changed
	changed = fillString(&out.SourcePlatform, incoming.SourcePlatform) || changed
	changed = fillString(&out.Division, incoming.Division) || changed
	changed = fillString(&out.MatchTime, incoming.MatchTime) || changed

	return out, changed
}

// FillMissing copies every field kept lacks from src. Used when collapsing
// duplicate fixtures so the surviving row loses nothing. Scores are copied
// in kept's orientation.
func FillMissing(kept, src Fixture) (Fixture, bool) {
	out := kept
	changed := false

	if !kept.HasResult() && src.HasResult() {
		hs, as := *src.HomeScore, *src.AwayScore
		if src.HomeTeamID != kept.HomeTeamID {
			hs, as = as, hs
		}
		out.HomeScore = &hs
		out.AwayScore = &as
		changed = true
	}

	changed = fillString(&out.EventID, src.EventID) || changed
	changed = fillString(&out.SourceKey, src.SourceKey) || changed
	changed = fillString(&out.SourcePlatform, src.SourcePlatform) || changed
	changed = fillString(&out.Division, src.Division) || changed
	changed = fillString(&out.MatchTime, src.MatchTime) || changed

	return out, changed
}

// ComputeStats derives the counters for teamID from its active fixtures.
// A fixture counts as played only when both scores are recorded.
func ComputeStats(teamID string, fixtures []Fixture) team.Stats {
	var stats team.Stats
	for _, f := range fixtures {
		if !f.IsActive() || !f.Involves(teamID) || !f.HasResult() {
			continue
		}
		own, other := *f.HomeScore, *f.AwayScore
		if f.AwayTeamID == teamID {
			own, other = other, own
		}
		stats.MatchesPlayed++
		switch {
		case own > other:
			stats.Wins++
		case own < other:
			stats.Losses++
		default:
			stats.Draws++
		}
	}
	return stats
}

func fillString(dst *string, value string) bool {
	if *dst != "" || value == "" {
		return false
	}
	*dst = value
	return true
}

func sameScore(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
