package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

// riverDataset is a roster split in two: "River FC" with a full season and
// "River F.C." created by a feed without birth years. One of the second
// row's games repeats a game of the first, and the two rows once played
// each other.
func riverDataset() memory.Dataset {
	teams := append(opponents(16),
		seedTeam("t-a", "River FC", intPtr(2012), team.GenderMale, ""),
		seedTeam("t-b", "River F.C.", nil, team.GenderMale, ""),
	)

	fixtures := make([]fixture.Fixture, 0, 18)
	for i := 1; i <= 14; i++ {
		fixtures = append(fixtures, scored(fmt.Sprintf("a-%02d", i), fmt.Sprintf("2025-08-%02d", i), "t-a", fmt.Sprintf("opp-%02d", i), 2, 1))
	}
	repeat := fixture.Fixture{
		ID:         "b-01",
		MatchDate:  date("2025-08-01"),
		HomeTeamID: "opp-01",
		AwayTeamID: "t-b",
		Division:   "U13 Premier",
		Status:     fixture.StatusActive,
	}
	fixtures = append(fixtures,
		repeat,
		scored("b-02", "2025-09-15", "t-b", "opp-15", 1, 1),
		scored("b-03", "2025-09-16", "t-b", "opp-16", 1, 1),
		scored("x-01", "2025-09-20", "t-a", "t-b", 3, 0),
	)

	return memory.Dataset{
		Teams:    teams,
		Fixtures: fixtures,
		Registry: []registry.Entry{
			{EntityType: registry.EntityTeam, CanonicalID: "t-a", Aliases: []string{"River FC"}, SourceIDs: []string{"gotsport:884"}},
			{EntityType: registry.EntityTeam, CanonicalID: "t-b", Aliases: []string{"River F.C."}, SourceIDs: []string{"tgs:77"}},
		},
	}
}

func TestMergeService_SameNameTeamMerge(t *testing.T) {
	store := newTestStore(t, riverDataset())
	store.SeedRatingHistory("t-b", 3)
	svc := newTestMerge(store, 1)

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorSameName})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Groups != 1 || summary.Merged != 1 || summary.Deleted != 1 || summary.Failed() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	result := summary.Results[0]
	if result.KeptID != "t-a" || len(result.RemovedIDs) != 1 || result.RemovedIDs[0] != "t-b" {
		t.Fatalf("expected t-b folded into t-a, got %+v", result)
	}
	if result.FixturesMigrated != 2 || result.FixturesSoftDeleted != 2 {
		t.Fatalf("expected 2 migrated and 2 soft-deleted, got %+v", result)
	}

	if teamExists(t, store, "t-b") {
		t.Fatalf("loser team should be deleted")
	}
	if store.RatingHistoryCount("t-b") != 0 {
		t.Fatalf("loser rating history should be cleared")
	}
	if len(allFixtures(t, store, "t-b")) != 0 {
		t.Fatalf("no fixture may still reference the deleted team")
	}

	active := activeFixtures(t, store, "t-a")
	if len(active) != 16 {
		t.Fatalf("expected 16 active fixtures after merge, got %d", len(active))
	}
	for _, f := range active {
		if f.HomeTeamID == f.AwayTeamID {
			t.Fatalf("active fixture %s pits the team against itself", f.ID)
		}
	}

	deleted := make(map[string]fixture.Fixture)
	for _, f := range allFixtures(t, store, "t-a") {
		if !f.IsActive() {
			deleted[f.ID] = f
		}
	}
	if len(deleted) != 2 {
		t.Fatalf("expected 2 soft-deleted fixtures, got %d", len(deleted))
	}
	if deleted["x-01"].DeletedReason != fixture.ReasonIntraSquad {
		t.Fatalf("expected intra-squad reason, got %q", deleted["x-01"].DeletedReason)
	}
	if deleted["b-01"].DeletedReason != fixture.SemanticDuplicateOf("a-01") {
		t.Fatalf("expected b-01 to point at a-01, got %q", deleted["b-01"].DeletedReason)
	}

	survivor, _, _ := store.Read().Fixtures.GetByID(context.Background(), "a-01")
	if survivor.Division != "U13 Premier" {
		t.Fatalf("survivor should inherit the division, got %q", survivor.Division)
	}

	kept := mustTeam(t, store, "t-a")
	if kept.MatchesPlayed != 16 || kept.Wins != 14 || kept.Draws != 2 || kept.Losses != 0 {
		t.Fatalf("unexpected recomputed stats %+v", kept.Stats())
	}
	if opp := mustTeam(t, store, "opp-01"); opp.MatchesPlayed != 1 || opp.Losses != 1 {
		t.Fatalf("opponent of the collapsed repeat should count one game, got %+v", opp.Stats())
	}

	entry, ok, _ := store.Read().Registry.FindBySourceID(context.Background(), registry.EntityTeam, "tgs:77")
	if !ok || entry.CanonicalID != "t-a" {
		t.Fatalf("loser source id should resolve to the kept team, got %+v", entry)
	}
	if _, ok, _ := store.Read().Registry.Get(context.Background(), registry.EntityTeam, "t-b"); ok {
		t.Fatalf("loser registry entry should be removed")
	}

	records := auditFor(t, store, "t-b")
	if len(records) != 1 || records[0].Action != audit.ActionMergeDelete {
		t.Fatalf("expected one merge_delete audit record, got %+v", records)
	}
	if !strings.HasPrefix(records[0].Reason, audit.ReasonMostActivity) || records[0].RunID != "run-test" {
		t.Fatalf("unexpected audit record %+v", records[0])
	}
	var after mergeTarget
	if err := sonic.Unmarshal(records[0].After, &after); err != nil {
		t.Fatalf("decode audit after: %v", err)
	}
	if after.MergedInto != "t-a" || after.Detector != string(dedup.DetectorSameName) {
		t.Fatalf("unexpected merge target %+v", after)
	}
	var before teamSnapshot
	if err := sonic.Unmarshal(records[0].Before, &before); err != nil {
		t.Fatalf("decode audit before: %v", err)
	}
	if before.Name != "River F.C." || before.ActiveFixtures != 4 || len(before.SourceIDs) != 1 {
		t.Fatalf("snapshot lost loser data: %+v", before)
	}

	for _, fixtureID := range []string{"b-01", "x-01"} {
		recs := auditFor(t, store, fixtureID)
		if len(recs) != 1 || recs[0].Action != audit.ActionSoftDelete {
			t.Fatalf("expected a soft_delete audit for %s, got %+v", fixtureID, recs)
		}
	}

	again, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorSameName})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again.Groups != 0 {
		t.Fatalf("a second run should find nothing, got %+v", again)
	}
}

func TestMergeService_FuzzyAutoMergesHighSimilarityPair(t *testing.T) {
	teams := append(opponents(3),
		seedTeam("c-1", "Charlotte Independence Academy", intPtr(2011), team.GenderMale, "NC"),
		seedTeam("c-2", "Academy Charlotte Independence", intPtr(2011), team.GenderMale, "NC"),
	)
	store := newTestStore(t, memory.Dataset{
		Teams: teams,
		Fixtures: []fixture.Fixture{
			scored("fc-1", "2025-09-06", "c-1", "opp-01", 3, 0),
			scored("fc-2", "2025-09-13", "c-1", "opp-02", 1, 1),
			scored("fc-3", "2025-09-20", "opp-03", "c-2", 0, 2),
		},
		Registry: []registry.Entry{
			{EntityType: registry.EntityTeam, CanonicalID: "c-1", Aliases: []string{"Charlotte Independence Academy"}},
			{EntityType: registry.EntityTeam, CanonicalID: "c-2", Aliases: []string{"Academy Charlotte Independence"}, SourceIDs: []string{"tgs:901"}},
		},
	})
	svc := newTestMerge(store, 1)

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorFuzzyAuto})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Groups != 1 || summary.Merged != 1 || summary.Deleted != 1 || summary.Failed() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	result := summary.Results[0]
	if result.KeptID != "c-1" || result.Similarity < dedup.DefaultThresholds.AutoMerge {
		t.Fatalf("expected c-1 kept above the auto-merge threshold, got %+v", result)
	}
	if teamExists(t, store, "c-2") {
		t.Fatalf("loser team should be deleted")
	}
	if stats := mustTeam(t, store, "c-1").Stats(); stats.MatchesPlayed != 3 || stats.Wins != 2 || stats.Draws != 1 {
		t.Fatalf("kept team should count the migrated game, got %+v", stats)
	}

	records := auditFor(t, store, "c-2")
	if len(records) != 1 || records[0].Action != audit.ActionMergeDelete || len(records[0].Before) == 0 {
		t.Fatalf("expected one merge_delete audit record with a snapshot, got %+v", records)
	}
	var after mergeTarget
	if err := sonic.Unmarshal(records[0].After, &after); err != nil {
		t.Fatalf("decode audit after: %v", err)
	}
	if after.MergedInto != "c-1" || after.Detector != string(dedup.DetectorFuzzyAuto) {
		t.Fatalf("unexpected merge target %+v", after)
	}

	entry, ok, err := store.Read().Registry.Get(context.Background(), registry.EntityTeam, "c-1")
	if err != nil || !ok {
		t.Fatalf("kept registry entry: ok=%v err=%v", ok, err)
	}
	if !containsAlias(entry.Aliases, "Academy Charlotte Independence") || !containsAlias(entry.SourceIDs, "tgs:901") {
		t.Fatalf("loser names should be appended to the kept entry, got %+v", entry)
	}
	aliased, err := store.Read().Registry.FindByAliasKey(context.Background(), registry.EntityTeam, registry.AliasKey("Academy Charlotte Independence"))
	if err != nil || len(aliased) != 1 || aliased[0].CanonicalID != "c-1" {
		t.Fatalf("loser spelling should resolve to c-1, got %+v err=%v", aliased, err)
	}
}

func containsAlias(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestMergeService_DryRunPlansWithoutWriting(t *testing.T) {
	store := newTestStore(t, riverDataset())
	svc := newTestMerge(store, 1)

	summary, err := svc.Run(context.Background(), writeauth.Token{}, MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorSameName, DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if summary.Merged != 1 || summary.Results[0].Status != MergeStatusPlanned {
		t.Fatalf("expected one planned group, got %+v", summary)
	}
	if summary.FixturesMigrated != 2 || summary.FixturesSoftDeleted != 2 {
		t.Fatalf("plan should report the same fixture moves, got %+v", summary)
	}
	if !teamExists(t, store, "t-b") || len(activeFixtures(t, store, "t-b")) != 4 {
		t.Fatalf("dry run must not touch the loser")
	}
	if len(auditFor(t, store, "t-b")) != 0 {
		t.Fatalf("dry run must not write audit records")
	}
}

func TestMergeService_FixtureMergeAcrossOrientation(t *testing.T) {
	first := scored("f-1", "2025-09-06", "t-12", "opp-01", 2, 1)
	first.EventID = "ev-1"
	second := scored("f-2", "2025-09-06", "opp-01", "t-12", 1, 2)
	second.Division = "U13 Premier"

	store := newTestStore(t, memory.Dataset{
		Teams:    append(opponents(1), seedTeam("t-12", "Rapids FC", intPtr(2012), team.GenderMale, "")),
		Events:   []event.Event{{ID: "ev-1", Name: "Fall League", Kind: event.KindLeague}},
		Fixtures: []fixture.Fixture{first, second},
	})
	svc := newTestMerge(store, 1)

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityFixture, Detector: dedup.DetectorExact})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Merged != 1 || summary.FixturesSoftDeleted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	active := activeFixtures(t, store, "t-12")
	if len(active) != 1 || active[0].ID != "f-1" {
		t.Fatalf("expected f-1 to survive, got %+v", active)
	}
	if active[0].Division != "U13 Premier" || active[0].EventID != "ev-1" {
		t.Fatalf("survivor should carry both rows' links, got %+v", active[0])
	}

	loser, _, _ := store.Read().Fixtures.GetByID(context.Background(), "f-2")
	if target, ok := fixture.DuplicateTarget(loser.DeletedReason); !ok || target != "f-1" {
		t.Fatalf("expected f-2 to point at f-1, got %q", loser.DeletedReason)
	}
	if recs := auditFor(t, store, "f-2"); len(recs) != 1 || recs[0].Action != audit.ActionSoftDelete {
		t.Fatalf("expected soft_delete audit for f-2, got %+v", recs)
	}
	if stats := mustTeam(t, store, "t-12").Stats(); stats.MatchesPlayed != 1 || stats.Wins != 1 {
		t.Fatalf("duplicate result must count once, got %+v", stats)
	}
}

func TestMergeService_EventMergeMovesFixtures(t *testing.T) {
	withEvent := func(f fixture.Fixture, eventID string) fixture.Fixture {
		f.EventID = eventID
		return f
	}
	store := newTestStore(t, memory.Dataset{
		Teams: append(opponents(3), seedTeam("t-12", "Rapids FC", intPtr(2012), team.GenderMale, "")),
		Events: []event.Event{
			{ID: "ev-1", Name: "Fall League", Kind: event.KindLeague, SourcePlatform: "gotsport", SourceEventID: "1001"},
			{ID: "ev-2", Name: "fall league", Kind: event.KindLeague, SourcePlatform: "tgs", SourceEventID: "x9"},
		},
		Fixtures: []fixture.Fixture{
			withEvent(scored("f-1", "2025-09-06", "t-12", "opp-01", 2, 1), "ev-1"),
			withEvent(scored("f-2", "2025-09-13", "t-12", "opp-02", 2, 1), "ev-1"),
			withEvent(scored("f-3", "2025-09-20", "t-12", "opp-03", 2, 1), "ev-2"),
		},
	})
	svc := newTestMerge(store, 1)

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityEvent, Detector: dedup.DetectorExact})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Merged != 1 || summary.FixturesMigrated != 1 || summary.Results[0].KeptID != "ev-1" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	moved, _, _ := store.Read().Fixtures.GetByID(context.Background(), "f-3")
	if moved.EventID != "ev-1" {
		t.Fatalf("fixture should follow the kept event, got %q", moved.EventID)
	}
	if _, ok, _ := store.Read().Events.GetByID(context.Background(), "ev-2"); ok {
		t.Fatalf("loser event should be deleted")
	}
	entry, ok, _ := store.Read().Registry.FindBySourceID(context.Background(), registry.EntityEvent, "tgs:x9")
	if !ok || entry.CanonicalID != "ev-1" {
		t.Fatalf("loser event source should resolve to the kept event, got %+v", entry)
	}
	if recs := auditFor(t, store, "ev-2"); len(recs) != 1 || recs[0].Action != audit.ActionMergeDelete {
		t.Fatalf("expected merge_delete audit for ev-2, got %+v", recs)
	}
}

func TestMergeService_ParallelExactMerges(t *testing.T) {
	var (
		teams    = opponents(1)
		fixtures []fixture.Fixture
	)
	for i := 1; i <= 8; i++ {
		name := fmt.Sprintf("Club %c United", 'A'+i-1)
		teams = append(teams,
			seedTeam(fmt.Sprintf("k-%02d", i), name, intPtr(2012), team.GenderMale, "NC"),
			seedTeam(fmt.Sprintf("l-%02d", i), name, intPtr(2012), team.GenderMale, ""),
		)
		fixtures = append(fixtures,
			scored(fmt.Sprintf("fk-%02d", i), "2025-09-06", fmt.Sprintf("k-%02d", i), "opp-01", 1, 0),
			scored(fmt.Sprintf("fl-%02d", i), "2025-09-13", fmt.Sprintf("l-%02d", i), "opp-01", 0, 1),
		)
	}
	store := newTestStore(t, memory.Dataset{Teams: teams, Fixtures: fixtures})
	svc := newTestMerge(store, 4)

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorExact})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Groups != 8 || summary.Merged != 8 || summary.Deleted != 8 || summary.Failed() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for i := 1; i <= 8; i++ {
		if got := teamExists(t, store, fmt.Sprintf("k-%02d", i)) && teamExists(t, store, fmt.Sprintf("l-%02d", i)); got {
			t.Fatalf("group %d still has both rows", i)
		}
	}
	if stats := mustTeam(t, store, "k-03").Stats(); stats.MatchesPlayed != 2 || stats.Wins != 1 || stats.Losses != 1 {
		t.Fatalf("kept team should count both rosters' games, got %+v", stats)
	}
	for i := 1; i < len(summary.Results); i++ {
		if summary.Results[i-1].Key > summary.Results[i].Key {
			t.Fatalf("results should follow detection order")
		}
	}
}

func TestMergeService_GroupsSharingAFixtureRunTogether(t *testing.T) {
	teams := append(opponents(1),
		seedTeam("a-1", "Alpha FC", intPtr(2012), team.GenderMale, "NC"),
		seedTeam("a-2", "Alpha FC", intPtr(2012), team.GenderMale, ""),
		seedTeam("b-1", "Bravo FC", intPtr(2012), team.GenderMale, "NC"),
		seedTeam("b-2", "Bravo FC", intPtr(2012), team.GenderMale, ""),
	)
	store := newTestStore(t, memory.Dataset{
		Teams: teams,
		Fixtures: []fixture.Fixture{
			scored("fa-1", "2025-09-06", "a-1", "opp-01", 1, 0),
			scored("fa-2", "2025-09-13", "a-1", "opp-01", 1, 0),
			scored("fb-1", "2025-09-27", "b-1", "opp-01", 0, 1),
			scored("fb-2", "2025-10-04", "b-1", "opp-01", 0, 1),
			scored("x-1", "2025-09-20", "a-2", "b-2", 2, 2),
		},
	})
	svc := newTestMerge(store, 4)

	groups, err := svc.dedup.Detect(context.Background(), dedup.EntityTeam, dedup.DetectorExact)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	links, err := svc.fixtureLinks(context.Background(), groups)
	if err != nil {
		t.Fatalf("fixture links: %v", err)
	}
	if parts := dedup.Partition(groups, links...); len(parts) != 1 {
		t.Fatalf("groups joined by x-1 must share one worker, got %d partitions", len(parts))
	}

	summary, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorExact})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Merged != 2 || summary.Failed() {
		t.Fatalf("unexpected summary %+v", summary)
	}
	shared, ok, err := store.Read().Fixtures.GetByID(context.Background(), "x-1")
	if err != nil || !ok {
		t.Fatalf("get x-1: ok=%v err=%v", ok, err)
	}
	if !shared.IsActive() || shared.HomeTeamID != "a-1" || shared.AwayTeamID != "b-1" {
		t.Fatalf("shared fixture should point at both kept teams, got %+v", shared)
	}
}

func TestMergeService_Guards(t *testing.T) {
	store := newTestStore(t, riverDataset())
	svc := newTestMerge(store, 1)

	if _, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorFuzzyReview}); !errors.Is(err, ErrReviewOnly) {
		t.Fatalf("expected ErrReviewOnly, got %v", err)
	}
	if _, err := svc.Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityEvent, Detector: dedup.DetectorSameName}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Run(context.Background(), writeauth.Token{}, MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorSameName}); !errors.Is(err, writeauth.ErrWriteNotAuthorized) {
		t.Fatalf("expected ErrWriteNotAuthorized, got %v", err)
	}
	if !teamExists(t, store, "t-b") {
		t.Fatalf("rejected runs must not merge")
	}
}

func TestMergeService_StaleGroupIsSkipped(t *testing.T) {
	store := newTestStore(t, riverDataset())
	svc := newTestMerge(store, 1)

	stale := dedup.NewGroup(dedup.EntityTeam, dedup.DetectorExact, "stale", []string{"t-a", "t-gone"}, 1)
	results, err := svc.execute(context.Background(), grantToken(t), []dedup.Group{stale})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 1 || results[0].Status != MergeStatusSkipped {
		t.Fatalf("expected the stale group to be skipped, got %+v", results)
	}
	if len(activeFixtures(t, store, "t-a")) != 15 {
		t.Fatalf("skipped group must not change fixtures")
	}
}
