package memory

import (
	"fmt"

	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
)

// Dataset is a set of rows loaded into a store as already committed.
type Dataset struct {
	Teams    []team.Team
	Fixtures []fixture.Fixture
	Events   []event.Event
	Registry []registry.Entry
}

// Seed loads rows directly, enforcing the same uniqueness rules as the
// schema: one team per identity key and one active fixture per key.
func (s *Store) Seed(data Dataset) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	now := s.now()

	identities := make(map[team.IdentityKey]string, len(working.teams))
	for id, item := range working.teams {
		identities[item.Identity()] = id
	}
	for _, item := range data.Teams {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("seed team %s: %w", item.ID, err)
		}
		if other, ok := identities[item.Identity()]; ok {
			return fmt.Errorf("seed team %s: identity %s already held by %s", item.ID, item.Identity(), other)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = item.CreatedAt
		}
		identities[item.Identity()] = item.ID
		working.teams[item.ID] = copyTeam(item)
	}

	for _, item := range data.Events {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("seed event %s: %w", item.ID, err)
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		working.events[item.ID] = item
	}

	for _, f := range data.Fixtures {
		if f.Status == "" {
			f.Status = fixture.StatusActive
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("seed fixture %s: %w", f.ID, err)
		}
		for _, teamID := range []string{f.HomeTeamID, f.AwayTeamID} {
			if _, ok := working.teams[teamID]; !ok {
				return fmt.Errorf("seed fixture %s: unknown team %s", f.ID, teamID)
			}
		}
		if f.IsActive() {
			if other, taken := findActive(working, f.Key(), f.ID); taken {
				return fmt.Errorf("seed fixture %s: key %s already held by %s", f.ID, f.Key(), other.ID)
			}
		}
		f.MatchDate = fixture.DateOnly(f.MatchDate)
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		if f.UpdatedAt.IsZero() {
			f.UpdatedAt = f.CreatedAt
		}
		working.fixtures[f.ID] = copyFixture(f)
	}

	for _, entry := range data.Registry {
		key := registryKey{entityType: entry.EntityType, canonicalID: entry.CanonicalID}
		merged := registry.Union(working.registry[key], entry)
		merged.EntityType, merged.CanonicalID = entry.EntityType, entry.CanonicalID
		merged.UpdatedAt = now
		working.registry[key] = merged
	}

	s.data = working
	return nil
}
