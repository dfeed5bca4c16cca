package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/platform/similarity"
)

type TeamRepository struct {
	v *view
}

func (r *TeamRepository) GetByID(_ context.Context, id string) (team.Team, bool, error) {
	var (
		out    team.Team
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = t.teams[id]
	})
	return copyTeam(out), exists, nil
}

func (r *TeamRepository) ListByIDs(_ context.Context, ids []string) ([]team.Team, error) {
	out := make([]team.Team, 0, len(ids))
	r.v.read(func(t *tables) {
		for _, id := range ids {
			if item, ok := t.teams[id]; ok {
				out = append(out, copyTeam(item))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TeamRepository) FindByAttributes(_ context.Context, normalizedName string, birthYear *int, gender team.Gender) ([]team.Team, error) {
	return r.filter(func(item team.Team) bool {
		return item.NormalizedName == normalizedName &&
			sameOptionalYear(item.BirthYear, birthYear) &&
			item.Gender == gender
	}), nil
}

func (r *TeamRepository) FindWithUnknownBirthYear(_ context.Context, normalizedName string) ([]team.Team, error) {
	return r.filter(func(item team.Team) bool {
		return item.NormalizedName == normalizedName && !item.HasBirthYear()
	}), nil
}

func (r *TeamRepository) ExactDuplicates(_ context.Context) ([]team.DuplicateKey, error) {
	type groupKey struct {
		name   string
		year   int
		gender team.Gender
	}

	buckets := make(map[groupKey][]string)
	var order []groupKey
	for _, item := range r.filter(func(team.Team) bool { return true }) {
		key := groupKey{name: item.NormalizedName, year: item.Identity().BirthYear, gender: item.Gender}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item.ID)
	}

	out := make([]team.DuplicateKey, 0)
	for _, key := range order {
		ids := buckets[key]
		if len(ids) < 2 {
			continue
		}
		var year *int
		if key.year != 0 {
			y := key.year
			year = &y
		}
		out = append(out, team.DuplicateKey{NormalizedName: key.name, BirthYear: year, Gender: key.gender, TeamIDs: ids})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TeamIDs[0] < out[j].TeamIDs[0] })
	return out, nil
}

func (r *TeamRepository) SimilarPairs(_ context.Context, q team.PairQuery) ([]team.SimilarPair, error) {
	teams := r.filter(func(team.Team) bool { return true })

	out := make([]team.SimilarPair, 0)
	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			a, b := teams[i], teams[j]
			if !team.CompatibleGender(a.Gender, b.Gender) || !birthYearsClose(a.BirthYear, b.BirthYear) {
				continue
			}
			sim := similarity.Trigram(a.NormalizedName, b.NormalizedName)
			if sim < q.MinSimilarity {
				continue
			}
			out = append(out, team.SimilarPair{A: a, B: b, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].A.ID != out[j].A.ID {
			return out[i].A.ID < out[j].A.ID
		}
		return out[i].B.ID < out[j].B.ID
	})
	return out, nil
}

func (r *TeamRepository) Create(_ context.Context, item team.Team) (team.Team, bool, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, false, err
	}

	var (
		out     team.Team
		created bool
	)
	err := r.v.write(func(t *tables) error {
		identity := item.Identity()
		for _, id := range sortedKeys(t.teams) {
			if existing := t.teams[id]; existing.Identity() == identity {
				out = copyTeam(existing)
				return nil
			}
		}
		if _, ok := t.teams[item.ID]; ok {
			return fmt.Errorf("create team %s: id already exists", item.ID)
		}

		now := r.v.now()
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		t.teams[item.ID] = copyTeam(item)
		out, created = copyTeam(item), true
		return nil
	})
	if err != nil {
		return team.Team{}, false, err
	}
	return out, created, nil
}

func (r *TeamRepository) UpdateStats(_ context.Context, id string, stats team.Stats) error {
	return r.v.write(func(t *tables) error {
		item, ok := t.teams[id]
		if !ok {
			return notFound("team", id)
		}
		item.MatchesPlayed = stats.MatchesPlayed
		item.Wins = stats.Wins
		item.Losses = stats.Losses
		item.Draws = stats.Draws
		item.UpdatedAt = r.v.now()
		t.teams[id] = item
		return nil
	})
}

func (r *TeamRepository) AddQualityFlags(_ context.Context, id string, flags []string) error {
	return r.v.write(func(t *tables) error {
		item, ok := t.teams[id]
		if !ok {
			return notFound("team", id)
		}
		for _, flag := range flags {
			if !containsString(item.QualityFlags, flag) {
				item.QualityFlags = append(item.QualityFlags, flag)
			}
		}
		item.UpdatedAt = r.v.now()
		t.teams[id] = item
		return nil
	})
}

func (r *TeamRepository) Delete(_ context.Context, id string) error {
	return r.v.write(func(t *tables) error {
		if _, ok := t.teams[id]; !ok {
			return notFound("team", id)
		}
		for _, f := range t.fixtures {
			if f.Involves(id) {
				return fmt.Errorf("delete team %s: %w", id, fixture.ErrReferenced)
			}
		}
		delete(t.ratingHistory, id)
		delete(t.teams, id)
		return nil
	})
}

func (r *TeamRepository) filter(keep func(team.Team) bool) []team.Team {
	out := make([]team.Team, 0)
	r.v.read(func(t *tables) {
		for _, id := range sortedKeys(t.teams) {
			if item := t.teams[id]; keep(item) {
				out = append(out, copyTeam(item))
			}
		}
	})
	return out
}

func copyTeam(item team.Team) team.Team {
	item.QualityFlags = append([]string(nil), item.QualityFlags...)
	if item.BirthYear != nil {
		y := *item.BirthYear
		item.BirthYear = &y
	}
	if item.Rating != nil {
		v := *item.Rating
		item.Rating = &v
	}
	return item
}

func sameOptionalYear(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func birthYearsClose(a, b *int) bool {
	if a == nil || b == nil {
		return true
	}
	diff := *a - *b
	return diff >= -1 && diff <= 1
}

func containsString(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
