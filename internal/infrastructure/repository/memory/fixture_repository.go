package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
)

type FixtureRepository struct {
	v *view
}

func (r *FixtureRepository) GetByID(_ context.Context, id string) (fixture.Fixture, bool, error) {
	var (
		out    fixture.Fixture
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = t.fixtures[id]
	})
	return copyFixture(out), exists, nil
}

func (r *FixtureRepository) FindActive(_ context.Context, key fixture.Key) (fixture.Fixture, bool, error) {
	var (
		out    fixture.Fixture
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = findActive(t, key, "")
	})
	return copyFixture(out), exists, nil
}

func (r *FixtureRepository) ListActiveByTeams(_ context.Context, teamIDs []string) ([]fixture.Fixture, error) {
	wanted := stringSet(teamIDs)
	return r.filter(func(f fixture.Fixture) bool {
		if !f.IsActive() {
			return false
		}
		_, home := wanted[f.HomeTeamID]
		_, away := wanted[f.AwayTeamID]
		return home || away
	}), nil
}

func (r *FixtureRepository) ListByTeam(_ context.Context, teamID string) ([]fixture.Fixture, error) {
	return r.filter(func(f fixture.Fixture) bool { return f.Involves(teamID) }), nil
}

func (r *FixtureRepository) CountActiveByTeams(_ context.Context, teamIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(teamIDs))
	for _, id := range teamIDs {
		out[id] = 0
	}
	r.v.read(func(t *tables) {
		for _, f := range t.fixtures {
			if !f.IsActive() {
				continue
			}
			if _, ok := out[f.HomeTeamID]; ok {
				out[f.HomeTeamID]++
			}
			if _, ok := out[f.AwayTeamID]; ok && f.AwayTeamID != f.HomeTeamID {
				out[f.AwayTeamID]++
			}
		}
	})
	return out, nil
}

func (r *FixtureRepository) CountActiveByEvents(_ context.Context, eventIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(eventIDs))
	for _, id := range eventIDs {
		out[id] = 0
	}
	r.v.read(func(t *tables) {
		for _, f := range t.fixtures {
			if _, ok := out[f.EventID]; ok && f.IsActive() {
				out[f.EventID]++
			}
		}
	})
	return out, nil
}

func (r *FixtureRepository) ExactDuplicates(_ context.Context) ([][]string, error) {
	buckets := make(map[string][]string)
	var order []string
	for _, f := range r.filter(func(f fixture.Fixture) bool { return f.IsActive() }) {
		key := fixture.CanonicalResultKey(f)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], f.ID)
	}

	out := make([][]string, 0)
	for _, key := range order {
		if ids := buckets[key]; len(ids) > 1 {
			out = append(out, ids)
		}
	}
	return out, nil
}

func (r *FixtureRepository) Insert(_ context.Context, f fixture.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return r.v.write(func(t *tables) error {
		if _, ok := t.fixtures[f.ID]; ok {
			return fmt.Errorf("insert fixture %s: id already exists", f.ID)
		}
		if f.Status == "" {
			f.Status = fixture.StatusActive
		}
		if f.IsActive() {
			if _, taken := findActive(t, f.Key(), ""); taken {
				return fixture.ErrActiveConflict
			}
		}
		now := r.v.now()
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
		f.UpdatedAt = now
		f.MatchDate = fixture.DateOnly(f.MatchDate)
		t.fixtures[f.ID] = copyFixture(f)
		return nil
	})
}

func (r *FixtureRepository) Update(_ context.Context, f fixture.Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return r.v.write(func(t *tables) error {
		stored, ok := t.fixtures[f.ID]
		if !ok {
			return fmt.Errorf("update fixture %s: %w", f.ID, fixture.ErrNotFound)
		}
		if f.IsActive() {
			if _, taken := findActive(t, f.Key(), f.ID); taken {
				return fixture.ErrActiveConflict
			}
		}
		f.CreatedAt = stored.CreatedAt
		f.UpdatedAt = r.v.now()
		f.MatchDate = fixture.DateOnly(f.MatchDate)
		t.fixtures[f.ID] = copyFixture(f)
		return nil
	})
}

func (r *FixtureRepository) ReassignEvent(_ context.Context, fromEventID, toEventID string) (int, error) {
	moved := 0
	err := r.v.write(func(t *tables) error {
		now := r.v.now()
		for _, id := range sortedKeys(t.fixtures) {
			f := t.fixtures[id]
			if f.EventID != fromEventID {
				continue
			}
			f.EventID = toEventID
			f.UpdatedAt = now
			t.fixtures[id] = f
			moved++
		}
		return nil
	})
	return moved, err
}

func (r *FixtureRepository) SoftDelete(_ context.Context, id, reason string) error {
	return r.v.write(func(t *tables) error {
		f, ok := t.fixtures[id]
		if !ok {
			return fmt.Errorf("soft delete fixture %s: %w", id, fixture.ErrNotFound)
		}
		if !f.IsActive() {
			return nil
		}
		now := r.v.now()
		f.Status = fixture.StatusSoftDeleted
		f.DeletedReason = reason
		f.DeletedAt = &now
		f.UpdatedAt = now
		t.fixtures[id] = f
		return nil
	})
}

func (r *FixtureRepository) filter(keep func(fixture.Fixture) bool) []fixture.Fixture {
	out := make([]fixture.Fixture, 0)
	r.v.read(func(t *tables) {
		for _, id := range sortedKeys(t.fixtures) {
			if f := t.fixtures[id]; keep(f) {
				out = append(out, copyFixture(f))
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchDate.Before(out[j].MatchDate) })
	return out
}

func findActive(t *tables, key fixture.Key, exceptID string) (fixture.Fixture, bool) {
	for _, f := range t.fixtures {
		if f.ID != exceptID && f.IsActive() && f.Key() == key {
			return f, true
		}
	}
	return fixture.Fixture{}, false
}

func copyFixture(f fixture.Fixture) fixture.Fixture {
	if f.HomeScore != nil {
		v := *f.HomeScore
		f.HomeScore = &v
	}
	if f.AwayScore != nil {
		v := *f.AwayScore
		f.AwayScore = &v
	}
	if f.DeletedAt != nil {
		v := *f.DeletedAt
		f.DeletedAt = &v
	}
	return f
}

func stringSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}
