package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/infrastructure/repository/memory"
)

func resolveTeamInTx(t *testing.T, store *memory.Store, resolver *ResolverService, in TeamInput) Resolution {
	t.Helper()
	var res Resolution
	err := store.WithinTx(context.Background(), grantToken(t), func(ctx context.Context, repos uow.Repositories) error {
		var err error
		res, err = resolver.ResolveTeam(ctx, NewScope(repos, false), in)
		return err
	})
	if err != nil {
		t.Fatalf("resolve team %q: %v", in.Name, err)
	}
	return res
}

func TestResolverService_ResolveTeamIsIdempotent(t *testing.T) {
	store := newTestStore(t, memory.Dataset{})
	resolver := newTestResolver()
	in := TeamInput{Name: "Charlotte Independence", AgeGroup: "U12", Gender: "Boys", SourcePlatform: "GotSport", SourceID: "884"}

	first := resolveTeamInTx(t, store, resolver, in)
	if !first.Created || first.Tier != TierCreated {
		t.Fatalf("expected first resolution to create, got %+v", first)
	}
	entryBefore, _, _ := store.Read().Registry.Get(context.Background(), registry.EntityTeam, first.ID)

	second := resolveTeamInTx(t, store, resolver, in)
	if second.ID != first.ID || second.Created {
		t.Fatalf("expected same team without creation, got %+v", second)
	}
	if second.Tier != TierSourceID {
		t.Fatalf("expected source id tier on repeat, got %s", second.Tier)
	}

	entryAfter, _, _ := store.Read().Registry.Get(context.Background(), registry.EntityTeam, first.ID)
	if len(entryAfter.Aliases) != len(entryBefore.Aliases) || len(entryAfter.SourceIDs) != len(entryBefore.SourceIDs) {
		t.Fatalf("repeat resolution must not grow the registry: before=%+v after=%+v", entryBefore, entryAfter)
	}

	created := mustTeam(t, store, first.ID)
	if created.BirthYear == nil || *created.BirthYear != 2014 {
		t.Fatalf("expected birth year 2014 from U12 in 2025, got %v", created.BirthYear)
	}
	if created.Gender != team.GenderMale {
		t.Fatalf("expected male team, got %q", created.Gender)
	}
	if entryAfter.SourceIDs[0] != "gotsport:884" {
		t.Fatalf("unexpected source ids %v", entryAfter.SourceIDs)
	}
}

func TestResolverService_ResolveTeamTiers(t *testing.T) {
	store := newTestStore(t, memory.Dataset{
		Teams: []team.Team{
			{ID: "t-exact", Name: "River FC", NormalizedName: "river fc", BirthYear: intPtr(2012), Gender: team.GenderMale},
			{ID: "t-unknown", Name: "Lake United", NormalizedName: "lake united", Gender: team.GenderFemale},
			{ID: "t-merged", Name: "Carolina Elite Academy", NormalizedName: "carolina elite academy", BirthYear: intPtr(2013), Gender: team.GenderFemale},
		},
		Registry: []registry.Entry{
			{EntityType: registry.EntityTeam, CanonicalID: "t-exact", SourceIDs: []string{"tgs:55"}},
			{EntityType: registry.EntityTeam, CanonicalID: "t-merged", Aliases: []string{"CEA Girls"}},
		},
	})
	resolver := newTestResolver()

	tests := []struct {
		name     string
		in       TeamInput
		wantID   string
		wantTier MatchTier
	}{
		{
			name:     "source id wins over a different spelling",
			in:       TeamInput{Name: "River Football Club", SourcePlatform: "TGS", SourceID: "55"},
			wantID:   "t-exact",
			wantTier: TierSourceID,
		},
		{
			name:     "exact attributes after normalization",
			in:       TeamInput{Name: "River F.C.", BirthYear: intPtr(2012), Gender: "M"},
			wantID:   "t-exact",
			wantTier: TierExactAttributes,
		},
		{
			name:     "registry alias learned from a merge",
			in:       TeamInput{Name: "CEA girls", BirthYear: intPtr(2013), Gender: "girls"},
			wantID:   "t-merged",
			wantTier: TierRegistryAlias,
		},
		{
			name:     "unknown birth year fallback",
			in:       TeamInput{Name: "Lake United", BirthYear: intPtr(2011), Gender: "F"},
			wantID:   "t-unknown",
			wantTier: TierUnknownBirthYear,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := resolveTeamInTx(t, store, resolver, tc.in)
			if res.ID != tc.wantID || res.Tier != tc.wantTier {
				t.Fatalf("got %s via %s, want %s via %s", res.ID, res.Tier, tc.wantID, tc.wantTier)
			}
		})
	}
}

func TestResolverService_FlagsTeamsMatchedWithoutBirthYear(t *testing.T) {
	store := newTestStore(t, memory.Dataset{
		Teams: []team.Team{
			{ID: "t-open", Name: "Lake United", NormalizedName: "lake united", Gender: team.GenderFemale},
		},
	})
	resolver := newTestResolver()

	// Dry runs resolve the same way but leave the row untouched.
	dry, err := resolver.ResolveTeam(context.Background(), NewScope(store.Read(), true), TeamInput{Name: "Lake United", BirthYear: intPtr(2011), Gender: "girls"})
	if err != nil {
		t.Fatalf("dry run resolve: %v", err)
	}
	if dry.ID != "t-open" || len(mustTeam(t, store, "t-open").QualityFlags) != 0 {
		t.Fatalf("dry run must not flag, got %+v", dry)
	}

	res := resolveTeamInTx(t, store, resolver, TeamInput{Name: "Lake United", BirthYear: intPtr(2011), Gender: "girls"})
	if res.ID != "t-open" || res.Tier != TierUnknownBirthYear {
		t.Fatalf("unexpected resolution %+v", res)
	}
	flags := mustTeam(t, store, "t-open").QualityFlags
	if len(flags) != 1 || flags[0] != QualityFlagMatchedWithoutBirthYear {
		t.Fatalf("expected %s flag, got %v", QualityFlagMatchedWithoutBirthYear, flags)
	}

	resolveTeamInTx(t, store, resolver, TeamInput{Name: "Lake United", BirthYear: intPtr(2011), Gender: "girls"})
	if got := mustTeam(t, store, "t-open").QualityFlags; len(got) != 1 {
		t.Fatalf("flags must not repeat, got %v", got)
	}
}

func TestResolverService_RegistryAliasRespectsGender(t *testing.T) {
	store := newTestStore(t, memory.Dataset{
		Teams: []team.Team{
			{ID: "t-girls", Name: "Carolina Elite Academy", NormalizedName: "carolina elite academy", BirthYear: intPtr(2013), Gender: team.GenderFemale},
		},
		Registry: []registry.Entry{
			{EntityType: registry.EntityTeam, CanonicalID: "t-girls", Aliases: []string{"CEA"}},
		},
	})

	res := resolveTeamInTx(t, store, newTestResolver(), TeamInput{Name: "CEA", BirthYear: intPtr(2013), Gender: "boys"})
	if res.ID == "t-girls" {
		t.Fatalf("boys team must not resolve to a girls alias")
	}
	if !res.Created {
		t.Fatalf("expected a new team, got %+v", res)
	}
}

func TestResolverService_RejectsPlaceholderNames(t *testing.T) {
	store := newTestStore(t, memory.Dataset{})
	resolver := newTestResolver()

	for _, name := range []string{"", "TBD", "Bye", "  "} {
		err := store.WithinTx(context.Background(), grantToken(t), func(ctx context.Context, repos uow.Repositories) error {
			_, err := resolver.ResolveTeam(ctx, NewScope(repos, false), TeamInput{Name: name})
			return err
		})
		if !errors.Is(err, ErrUnresolvable) {
			t.Fatalf("expected ErrUnresolvable for %q, got %v", name, err)
		}
	}
}

func TestResolverService_InfersRegionLongestFirst(t *testing.T) {
	store := newTestStore(t, memory.Dataset{})
	resolver := newTestResolver()

	res := resolveTeamInTx(t, store, resolver, TeamInput{Name: "North Carolina FC Youth", BirthYear: intPtr(2012), Gender: "B"})
	if got := mustTeam(t, store, res.ID).Region; got != "NC" {
		t.Fatalf("expected NC, got %q", got)
	}

	res = resolveTeamInTx(t, store, resolver, TeamInput{Name: "Fury Academy", Location: "Morgantown, WV", BirthYear: intPtr(2012)})
	created := mustTeam(t, store, res.ID)
	if created.Region != "WV" {
		t.Fatalf("expected WV from location, got %q", created.Region)
	}
	if len(created.QualityFlags) != 1 || created.QualityFlags[0] != QualityFlagMissingGender {
		t.Fatalf("expected missing gender flag, got %v", created.QualityFlags)
	}
}

func TestResolverService_DryRunWritesNothing(t *testing.T) {
	store := newTestStore(t, memory.Dataset{})
	resolver := newTestResolver()
	scope := NewScope(store.Read(), true)

	first, err := resolver.ResolveTeam(context.Background(), scope, TeamInput{Name: "New Club", BirthYear: intPtr(2012)})
	if err != nil {
		t.Fatalf("dry run resolve: %v", err)
	}
	second, err := resolver.ResolveTeam(context.Background(), scope, TeamInput{Name: "New Club", BirthYear: intPtr(2012)})
	if err != nil {
		t.Fatalf("dry run resolve: %v", err)
	}
	if first.ID != second.ID || !first.Created || second.Created {
		t.Fatalf("expected one provisional team, got %+v and %+v", first, second)
	}
	if teamExists(t, store, first.ID) {
		t.Fatalf("dry run must not create teams")
	}
}

func TestResolverService_ResolveEvent(t *testing.T) {
	store := newTestStore(t, memory.Dataset{
		Events: []event.Event{
			{ID: "ev-1", Name: "Carolina Premier League", Kind: event.KindLeague, SourcePlatform: "gotsport", SourceEventID: "1001"},
		},
		Registry: []registry.Entry{
			{EntityType: registry.EntityEvent, CanonicalID: "ev-1", Aliases: []string{"Carolina Premier League", "CPL"}, SourceIDs: []string{"gotsport:1001"}},
		},
	})
	resolver := newTestResolver()

	resolve := func(in EventInput) Resolution {
		t.Helper()
		var res Resolution
		err := store.WithinTx(context.Background(), grantToken(t), func(ctx context.Context, repos uow.Repositories) error {
			var err error
			res, err = resolver.ResolveEvent(ctx, NewScope(repos, false), in)
			return err
		})
		if err != nil {
			t.Fatalf("resolve event: %v", err)
		}
		return res
	}

	if res := resolve(EventInput{SourcePlatform: "gotsport", SourceEventID: "1001"}); res.ID != "ev-1" || res.Tier != TierSourceID {
		t.Fatalf("expected source id hit, got %+v", res)
	}
	if res := resolve(EventInput{Name: "cpl", Kind: "league", SourcePlatform: "tgs", SourceEventID: "x9"}); res.ID != "ev-1" || res.Tier != TierRegistryAlias {
		t.Fatalf("expected alias hit, got %+v", res)
	}
	entry, _, _ := store.Read().Registry.Get(context.Background(), registry.EntityEvent, "ev-1")
	if len(entry.SourceIDs) != 2 || entry.SourceIDs[1] != "tgs:x9" {
		t.Fatalf("expected learned source id, got %v", entry.SourceIDs)
	}
	if res := resolve(EventInput{Name: "CPL", Kind: "tournament"}); res.ID == "ev-1" || !res.Created {
		t.Fatalf("tournament must not resolve to a league, got %+v", res)
	}
}
