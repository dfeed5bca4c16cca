package registry

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/soccer-registry/internal/platform/textnorm"
)

type EntityType string

const (
	EntityTeam  EntityType = "team"
	EntityEvent EntityType = "event"
)

// Entry records every spelling and source identifier that resolved to one
// canonical entity. Entries only grow.
type Entry struct {
	EntityType  EntityType
	CanonicalID string
	Aliases     []string
	AliasKeys   []string
	SourceIDs   []string
	UpdatedAt   time.Time
}

// SourceKey formats a feed identifier as "platform:id".
func SourceKey(platform, id string) string {
	platform = strings.ToLower(strings.TrimSpace(platform))
	id = strings.TrimSpace(id)
	if platform == "" || id == "" {
		return ""
	}
	return platform + ":" + id
}

// AliasKey is the lookup form of an alias.
func AliasKey(alias string) string {
	return textnorm.Key(alias)
}

// Union appends every alias and source id of incoming that existing does not
// already hold. Order of first sighting is preserved. This is the only way
// entries are combined.
func Union(existing, incoming Entry) Entry {
	out := existing
	out.Aliases = unionStrings(existing.Aliases, incoming.Aliases)
	out.SourceIDs = unionStrings(existing.SourceIDs, incoming.SourceIDs)

	keys := append([]string(nil), incoming.AliasKeys...)
	for _, alias := range incoming.Aliases {
		keys = append(keys, AliasKey(alias))
	}
	out.AliasKeys = unionStrings(existing.AliasKeys, keys)
	return out
}

// Contains reports whether Union(e, incoming) would add nothing.
func (e Entry) Contains(incoming Entry) bool {
	merged := Union(e, incoming)
	return len(merged.Aliases) == len(e.Aliases) &&
		len(merged.AliasKeys) == len(e.AliasKeys) &&
		len(merged.SourceIDs) == len(e.SourceIDs)
}

func unionStrings(existing, incoming []string) []string {
	out := append(make([]string, 0, len(existing)+len(incoming)), existing...)
	seen := make(map[string]struct{}, len(out))
	for _, v := range out {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedIDs returns the canonical ids of entries in ascending order.
func SortedIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.CanonicalID)
	}
	sort.Strings(out)
	return out
}

type Repository interface {
	Get(ctx context.Context, entityType EntityType, canonicalID string) (Entry, bool, error)
	FindByAliasKey(ctx context.Context, entityType EntityType, aliasKey string) ([]Entry, error)
	FindBySourceID(ctx context.Context, entityType EntityType, sourceID string) (Entry, bool, error)

	// Append unions aliases and source ids into the entry, creating it if needed.
	Append(ctx context.Context, entry Entry) (Entry, error)
	Delete(ctx context.Context, entityType EntityType, canonicalID string) error
}
