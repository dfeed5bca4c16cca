package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	qb "github.com/riskibarqy/soccer-registry/internal/platform/querybuilder"
)

type registryTableModel struct {
	EntityType  string         `db:"entity_type"`
	CanonicalID string         `db:"canonical_id"`
	Aliases     pq.StringArray `db:"aliases"`
	AliasKeys   pq.StringArray `db:"alias_keys"`
	SourceIDs   pq.StringArray `db:"source_ids"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

var registryColumns = qb.Columns(registryTableModel{})

func (m registryTableModel) toDomain() registry.Entry {
	return registry.Entry{
		EntityType:  registry.EntityType(m.EntityType),
		CanonicalID: m.CanonicalID,
		Aliases:     append([]string(nil), m.Aliases...),
		AliasKeys:   append([]string(nil), m.AliasKeys...),
		SourceIDs:   append([]string(nil), m.SourceIDs...),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type RegistryRepository struct {
	c   conn
	now func() time.Time
}

func (r *RegistryRepository) Get(ctx context.Context, entityType registry.EntityType, canonicalID string) (registry.Entry, bool, error) {
	return r.getOne(ctx, "select registry entry", false,
		qb.Eq("entity_type", string(entityType)),
		qb.Eq("canonical_id", canonicalID),
	)
}

func (r *RegistryRepository) FindByAliasKey(ctx context.Context, entityType registry.EntityType, aliasKey string) ([]registry.Entry, error) {
	if aliasKey == "" {
		return []registry.Entry{}, nil
	}
	query, args, err := qb.Select(registryColumns...).From("canonical_registry").
		Where(
			qb.Eq("entity_type", string(entityType)),
			qb.ArrayContains("alias_keys", aliasKey),
		).
		OrderBy("canonical_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find registry by alias query: %w", err)
	}

	var rows []registryTableModel
	if err := r.c.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find registry by alias: %w", err)
	}
	out := make([]registry.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *RegistryRepository) FindBySourceID(ctx context.Context, entityType registry.EntityType, sourceID string) (registry.Entry, bool, error) {
	if sourceID == "" {
		return registry.Entry{}, false, nil
	}
	return r.getOne(ctx, "find registry by source id", false,
		qb.Eq("entity_type", string(entityType)),
		qb.ArrayContains("source_ids", sourceID),
	)
}

// Append unions the incoming names into the entry. The row lock covers an
// existing entry; two first appends for one id race on the insert, so the
// conflict clause unions again in SQL and neither side's names are lost.
// Entries are never shrunk here.
func (r *RegistryRepository) Append(ctx context.Context, entry registry.Entry) (registry.Entry, error) {
	if err := r.c.requireWrite(); err != nil {
		return registry.Entry{}, err
	}

	existing, ok, err := r.getOne(ctx, "lock registry entry", true,
		qb.Eq("entity_type", string(entry.EntityType)),
		qb.Eq("canonical_id", entry.CanonicalID),
	)
	if err != nil {
		return registry.Entry{}, err
	}
	if !ok {
		existing = registry.Entry{EntityType: entry.EntityType, CanonicalID: entry.CanonicalID}
	}

	merged := registry.Union(existing, entry)
	merged.UpdatedAt = r.now()

	query, args, err := qb.InsertModel("canonical_registry", registryTableModel{
		EntityType:  string(merged.EntityType),
		CanonicalID: merged.CanonicalID,
		Aliases:     nonNilStrings(merged.Aliases),
		AliasKeys:   nonNilStrings(merged.AliasKeys),
		SourceIDs:   nonNilStrings(merged.SourceIDs),
		UpdatedAt:   merged.UpdatedAt,
	}, `ON CONFLICT (entity_type, canonical_id) DO UPDATE SET
    aliases = `+arrayUnion("aliases")+`,
    alias_keys = `+arrayUnion("alias_keys")+`,
    source_ids = `+arrayUnion("source_ids")+`,
    updated_at = EXCLUDED.updated_at
RETURNING `+strings.Join(registryColumns, ", "))
	if err != nil {
		return registry.Entry{}, fmt.Errorf("build upsert registry entry query: %w", err)
	}
	var row registryTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		return registry.Entry{}, fmt.Errorf("upsert registry entry %s/%s: %w", merged.EntityType, merged.CanonicalID, translateGate(err))
	}
	return row.toDomain(), nil
}

// arrayUnion appends the incoming values of column to the stored ones,
// dropping repeats and keeping first-sighting order.
func arrayUnion(column string) string {
	return fmt.Sprintf("ARRAY(SELECT v FROM unnest(canonical_registry.%[1]s || EXCLUDED.%[1]s) WITH ORDINALITY AS u(v, n) GROUP BY v ORDER BY MIN(n))", column)
}

func (r *RegistryRepository) Delete(ctx context.Context, entityType registry.EntityType, canonicalID string) error {
	if err := r.c.requireWrite(); err != nil {
		return err
	}
	query, args, err := qb.DeleteFrom("canonical_registry").
		Where(
			qb.Eq("entity_type", string(entityType)),
			qb.Eq("canonical_id", canonicalID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete registry entry query: %w", err)
	}
	if _, err := r.c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete registry entry %s/%s: %w", entityType, canonicalID, translateGate(err))
	}
	return nil
}

func (r *RegistryRepository) getOne(ctx context.Context, op string, forUpdate bool, conditions ...qb.Condition) (registry.Entry, bool, error) {
	b := qb.Select(registryColumns...).From("canonical_registry").
		Where(conditions...).
		OrderBy("canonical_id").
		Limit(1)
	if forUpdate {
		b = b.ForUpdate()
	}
	query, args, err := b.ToSQL()
	if err != nil {
		return registry.Entry{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row registryTableModel
	if err := r.c.q.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return registry.Entry{}, false, nil
		}
		return registry.Entry{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return row.toDomain(), true, nil
}
