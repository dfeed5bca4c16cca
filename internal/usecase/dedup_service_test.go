package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
)

func seedTeam(id, name string, birthYear *int, gender team.Gender, region string) team.Team {
	return team.Team{
		ID:             id,
		Name:           name,
		DisplayName:    name,
		NormalizedName: team.NormalizeName(name),
		BirthYear:      birthYear,
		Gender:         gender,
		Region:         region,
		CreatedAt:      testNow.Add(-24 * time.Hour),
	}
}

func dedupDataset() memory.Dataset {
	teams := []team.Team{
		seedTeam("t-01", "River FC", intPtr(2012), team.GenderMale, "NC"),
		seedTeam("t-02", "River FC", intPtr(2012), team.GenderMale, ""),
		seedTeam("t-03", "Lake United", intPtr(2012), team.GenderMale, ""),
		seedTeam("t-04", "Lake United", intPtr(2012), team.GenderFemale, ""),
		seedTeam("t-05", "Triangle United Soccer Association Premier", intPtr(2013), team.GenderFemale, ""),
		seedTeam("t-06", "Triangle United Soccer Association Premiere", intPtr(2013), team.GenderFemale, ""),
		seedTeam("t-07", "Charlotte Independence Academy", intPtr(2011), team.GenderMale, ""),
		seedTeam("t-08", "Academy Charlotte Independence", intPtr(2011), team.GenderMale, ""),
		seedTeam("t-09", "Charlotte Independence", intPtr(2011), team.GenderMale, ""),
		seedTeam("t-10", "North Carolina Fusion United Elite", intPtr(2014), team.GenderMale, ""),
		seedTeam("t-11", "North Carolina Fusion United Elites", intPtr(2014), team.GenderMale, ""),
		seedTeam("t-12", "Rapids FC", intPtr(2012), team.GenderMale, ""),
		seedTeam("t-13", "Rapids F.C.", nil, team.GenderMale, ""),
		seedTeam("t-14", "Ghost SC", intPtr(2010), team.GenderMale, ""),
		seedTeam("t-15", "Ghost S.C.", nil, team.GenderUnknown, ""),
	}
	teams = append(teams, opponents(1)...)

	return memory.Dataset{
		Teams: teams,
		Fixtures: []fixture.Fixture{
			scored("f-1", "2025-09-06", "t-12", "opp-01", 2, 1),
			scored("f-2", "2025-09-06", "opp-01", "t-12", 1, 2),
		},
		Events: []event.Event{
			{ID: "ev-1", Name: "Fall League", Kind: event.KindLeague},
			{ID: "ev-2", Name: "  fall   LEAGUE ", Kind: event.KindLeague},
			{ID: "ev-3", Name: "Fall League", Kind: event.KindTournament},
		},
	}
}

func groupMembers(groups []dedup.Group) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.MemberIDs)
	}
	return out
}

func hasGroup(groups []dedup.Group, ids ...string) bool {
	for _, g := range groups {
		if len(g.MemberIDs) != len(ids) {
			continue
		}
		match := true
		for i := range ids {
			if g.MemberIDs[i] != ids[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestDedupService_Detect(t *testing.T) {
	store := newTestStore(t, dedupDataset())
	svc := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())

	tests := []struct {
		name     string
		entity   dedup.EntityType
		detector dedup.Detector
		want     [][]string
	}{
		{name: "exact teams", entity: dedup.EntityTeam, detector: dedup.DetectorExact, want: [][]string{{"t-01", "t-02"}}},
		{name: "fuzzy auto", entity: dedup.EntityTeam, detector: dedup.DetectorFuzzyAuto, want: [][]string{{"t-07", "t-08"}, {"t-05", "t-06"}}},
		{name: "fuzzy review", entity: dedup.EntityTeam, detector: dedup.DetectorFuzzyReview, want: [][]string{{"t-10", "t-11"}}},
		{name: "same name needs activity", entity: dedup.EntityTeam, detector: dedup.DetectorSameName, want: [][]string{{"t-12", "t-13"}}},
		{name: "fixtures across orientation", entity: dedup.EntityFixture, detector: dedup.DetectorExact, want: [][]string{{"f-1", "f-2"}}},
		{name: "events by kind and name", entity: dedup.EntityEvent, detector: dedup.DetectorExact, want: [][]string{{"ev-1", "ev-2"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			groups, err := svc.Detect(context.Background(), tc.entity, tc.detector)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if len(groups) != len(tc.want) {
				t.Fatalf("expected %d groups, got %v", len(tc.want), groupMembers(groups))
			}
			for _, ids := range tc.want {
				if !hasGroup(groups, ids...) {
					t.Fatalf("missing group %v in %v", ids, groupMembers(groups))
				}
			}
			for _, g := range groups {
				if g.Detector != tc.detector || g.Entity != tc.entity {
					t.Fatalf("group %v labelled %s/%s", g.MemberIDs, g.Entity, g.Detector)
				}
			}
		})
	}
}

func TestDedupService_NeverGroupsAcrossGender(t *testing.T) {
	store := newTestStore(t, dedupDataset())
	svc := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())

	for _, detector := range dedup.DetectorsFor(dedup.EntityTeam) {
		groups, err := svc.Detect(context.Background(), dedup.EntityTeam, detector)
		if err != nil {
			t.Fatalf("detect %s: %v", detector, err)
		}
		if hasGroup(groups, "t-03", "t-04") {
			t.Fatalf("%s grouped boys and girls rosters", detector)
		}
	}
}

func TestDedupService_SameNameKeepsAdjacentAgeGroupsApart(t *testing.T) {
	store := newTestStore(t, memory.Dataset{
		Teams: append(opponents(1),
			seedTeam("u12", "Sporting Club", intPtr(2013), team.GenderMale, ""),
			seedTeam("u13", "Sporting Club", intPtr(2012), team.GenderMale, ""),
		),
		Fixtures: []fixture.Fixture{
			scored("f1", "2025-09-06", "u12", "opp-01", 1, 0),
			scored("f2", "2025-09-06", "u13", "opp-01", 2, 2),
		},
	})
	svc := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())

	groups, err := svc.Detect(context.Background(), dedup.EntityTeam, dedup.DetectorSameName)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("two known birth years are different rosters, got %v", groupMembers(groups))
	}

	summary, err := newTestMerge(store, 1).Run(context.Background(), grantToken(t), MergeOptions{Entity: dedup.EntityTeam, Detector: dedup.DetectorSameName})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Merged != 0 || summary.Deleted != 0 {
		t.Fatalf("expected nothing merged, got %+v", summary)
	}
	if !teamExists(t, store, "u12") || !teamExists(t, store, "u13") {
		t.Fatalf("both age groups must survive")
	}
	if got := activeFixtures(t, store, "u13"); len(got) != 1 || got[0].ID != "f2" {
		t.Fatalf("expected f2 still active for u13, got %v", got)
	}
}

func TestDedupService_FuzzySimilarityBands(t *testing.T) {
	store := newTestStore(t, dedupDataset())
	svc := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())

	auto, err := svc.Detect(context.Background(), dedup.EntityTeam, dedup.DetectorFuzzyAuto)
	if err != nil {
		t.Fatalf("detect auto: %v", err)
	}
	for _, g := range auto {
		if g.Similarity < dedup.DefaultThresholds.AutoMerge {
			t.Fatalf("auto group %v below threshold: %.4f", g.MemberIDs, g.Similarity)
		}
	}

	review, err := svc.Detect(context.Background(), dedup.EntityTeam, dedup.DetectorFuzzyReview)
	if err != nil {
		t.Fatalf("detect review: %v", err)
	}
	for _, g := range review {
		if g.Similarity < dedup.DefaultThresholds.Review || g.Similarity >= dedup.DefaultThresholds.AutoMerge {
			t.Fatalf("review group %v outside band: %.4f", g.MemberIDs, g.Similarity)
		}
	}
	if hasGroup(append(auto, review...), "t-07", "t-09") {
		t.Fatalf("a shorter name below the review threshold must not be grouped")
	}
}

func TestDedupService_RejectsUnknownDetector(t *testing.T) {
	store := newTestStore(t, memory.Dataset{})
	svc := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())

	if _, err := svc.Detect(context.Background(), dedup.EntityFixture, dedup.DetectorFuzzyAuto); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDedupService_ReportAll(t *testing.T) {
	store := newTestStore(t, dedupDataset())
	svc := NewDedupService(store, dedup.DefaultThresholds, 1, logging.NewNop())

	reports, err := svc.ReportAll(context.Background())
	if err != nil {
		t.Fatalf("report all: %v", err)
	}
	if len(reports) != 6 {
		t.Fatalf("expected one report per detector, got %d", len(reports))
	}

	byDetector := make(map[string]dedup.Report)
	for _, r := range reports {
		byDetector[string(r.Entity)+"/"+string(r.Detector)] = r
	}
	auto := byDetector["team/fuzzy-auto"]
	if auto.GroupCount != 2 || auto.ExcessRows != 2 || len(auto.Samples) != 1 {
		t.Fatalf("unexpected auto report %+v", auto)
	}
	if byDetector["event/exact"].ExcessRows != 1 {
		t.Fatalf("unexpected event report %+v", byDetector["event/exact"])
	}
}
