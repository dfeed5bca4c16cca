package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
)

type RegistryRepository struct {
	v *view
}

func (r *RegistryRepository) Get(_ context.Context, entityType registry.EntityType, canonicalID string) (registry.Entry, bool, error) {
	var (
		out    registry.Entry
		exists bool
	)
	r.v.read(func(t *tables) {
		out, exists = t.registry[registryKey{entityType: entityType, canonicalID: canonicalID}]
	})
	return copyEntry(out), exists, nil
}

func (r *RegistryRepository) FindByAliasKey(_ context.Context, entityType registry.EntityType, aliasKey string) ([]registry.Entry, error) {
	out := make([]registry.Entry, 0)
	if aliasKey == "" {
		return out, nil
	}
	r.v.read(func(t *tables) {
		for key, entry := range t.registry {
			if key.entityType == entityType && containsString(entry.AliasKeys, aliasKey) {
				out = append(out, copyEntry(entry))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalID < out[j].CanonicalID })
	return out, nil
}

func (r *RegistryRepository) FindBySourceID(_ context.Context, entityType registry.EntityType, sourceID string) (registry.Entry, bool, error) {
	var matches []registry.Entry
	if sourceID == "" {
		return registry.Entry{}, false, nil
	}
	r.v.read(func(t *tables) {
		for key, entry := range t.registry {
			if key.entityType == entityType && containsString(entry.SourceIDs, sourceID) {
				matches = append(matches, copyEntry(entry))
			}
		}
	})
	if len(matches) == 0 {
		return registry.Entry{}, false, nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CanonicalID < matches[j].CanonicalID })
	return matches[0], true, nil
}

func (r *RegistryRepository) Append(_ context.Context, entry registry.Entry) (registry.Entry, error) {
	var out registry.Entry
	err := r.v.write(func(t *tables) error {
		key := registryKey{entityType: entry.EntityType, canonicalID: entry.CanonicalID}
		existing, ok := t.registry[key]
		if !ok {
			existing = registry.Entry{EntityType: entry.EntityType, CanonicalID: entry.CanonicalID}
		}
		merged := registry.Union(existing, entry)
		merged.UpdatedAt = r.v.now()
		t.registry[key] = merged
		out = copyEntry(merged)
		return nil
	})
	return out, err
}

func (r *RegistryRepository) Delete(_ context.Context, entityType registry.EntityType, canonicalID string) error {
	return r.v.write(func(t *tables) error {
		delete(t.registry, registryKey{entityType: entityType, canonicalID: canonicalID})
		return nil
	})
}

func copyEntry(e registry.Entry) registry.Entry {
	e.Aliases = append([]string(nil), e.Aliases...)
	e.AliasKeys = append([]string(nil), e.AliasKeys...)
	e.SourceIDs = append([]string(nil), e.SourceIDs...)
	return e
}
