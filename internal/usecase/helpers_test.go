package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/soccer-registry/internal/platform/id"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
)

var testNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func intPtr(v int) *int { return &v }

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestStore(t *testing.T, data memory.Dataset) *memory.Store {
	t.Helper()
	store := memory.NewStore().WithClock(testClock)
	if err := store.Seed(data); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func grantToken(t *testing.T) writeauth.Token {
	t.Helper()
	token, err := writeauth.Grant("pipeline-test", "run-test")
	if err != nil {
		t.Fatalf("grant token: %v", err)
	}
	return token
}

func newTestResolver() *ResolverService {
	return NewResolverService(id.NewSequenceGenerator("team"), 2025, logging.NewNop()).WithClock(testClock)
}

func newTestMerge(store *memory.Store, workers int) *MergeService {
	dedupService := NewDedupService(store, dedup.DefaultThresholds, 5, logging.NewNop())
	return NewMergeService(store, dedupService, id.NewSequenceGenerator("audit"), workers, logging.NewNop()).WithClock(testClock)
}

func activeFixtures(t *testing.T, store *memory.Store, teamID string) []fixture.Fixture {
	t.Helper()
	out, err := store.Read().Fixtures.ListActiveByTeams(context.Background(), []string{teamID})
	if err != nil {
		t.Fatalf("list active fixtures: %v", err)
	}
	return out
}

func allFixtures(t *testing.T, store *memory.Store, teamID string) []fixture.Fixture {
	t.Helper()
	out, err := store.Read().Fixtures.ListByTeam(context.Background(), teamID)
	if err != nil {
		t.Fatalf("list fixtures: %v", err)
	}
	return out
}

func auditFor(t *testing.T, store *memory.Store, entityID string) []audit.Record {
	t.Helper()
	out, err := store.Read().Audit.ListByEntity(context.Background(), entityID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return out
}

func mustTeam(t *testing.T, store *memory.Store, teamID string) team.Team {
	t.Helper()
	item, ok, err := store.Read().Teams.GetByID(context.Background(), teamID)
	if err != nil || !ok {
		t.Fatalf("expected team %s to exist (err=%v)", teamID, err)
	}
	return item
}

func teamExists(t *testing.T, store *memory.Store, teamID string) bool {
	t.Helper()
	_, ok, err := store.Read().Teams.GetByID(context.Background(), teamID)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	return ok
}

// opponents returns n teams named "opponent N" with ids opp-01..opp-NN.
func opponents(n int) []team.Team {
	out := make([]team.Team, 0, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("Opponent %02d", i)
		out = append(out, team.Team{
			ID:             fmt.Sprintf("opp-%02d", i),
			Name:           name,
			DisplayName:    name,
			NormalizedName: team.NormalizeName(name),
			BirthYear:      intPtr(2012),
			Gender:         team.GenderMale,
			CreatedAt:      testNow.Add(-time.Hour),
		})
	}
	return out
}

func scored(fixtureID, day, home, away string, hs, as int) fixture.Fixture {
	return fixture.Fixture{
		ID:         fixtureID,
		MatchDate:  date(day),
		HomeTeamID: home,
		AwayTeamID: away,
		HomeScore:  intPtr(hs),
		AwayScore:  intPtr(as),
		Status:     fixture.StatusActive,
	}
}
