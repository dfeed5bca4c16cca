package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/domain/event"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/team"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/id"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
	"go.opentelemetry.io/otel/attribute"
)

type MergeStatus string

const (
	MergeStatusMerged  MergeStatus = "merged"
	MergeStatusPlanned MergeStatus = "planned"
	MergeStatusSkipped MergeStatus = "skipped"
	MergeStatusFailed  MergeStatus = "failed"
)

type MergeOptions struct {
	Entity   dedup.EntityType
	Detector dedup.Detector
	DryRun   bool
	Limit    int
}

// GroupResult describes what happened to one duplicate group.
type GroupResult struct {
	Key                 string
	Detector            dedup.Detector
	MemberIDs           []string
	KeptID              string
	RemovedIDs          []string
	Similarity          float64
	FixturesMigrated    int
	FixturesSoftDeleted int
	Status              MergeStatus
	Err                 error
}

type MergeSummary struct {
	Entity              dedup.EntityType
	Detector            dedup.Detector
	DryRun              bool
	RunID               string
	Groups              int
	Merged              int
	Deleted             int
	FixturesMigrated    int
	FixturesSoftDeleted int
	Skipped             int
	Results             []GroupResult
	Errors              []GroupResult
}

func (s MergeSummary) Failed() bool {
	return len(s.Errors) > 0
}

func (s *MergeSummary) add(r GroupResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case MergeStatusMerged, MergeStatusPlanned:
		s.Merged++
		s.Deleted += len(r.RemovedIDs)
		s.FixturesMigrated += r.FixturesMigrated
		s.FixturesSoftDeleted += r.FixturesSoftDeleted
	case MergeStatusSkipped:
		s.Skipped++
	case MergeStatusFailed:
		s.Errors = append(s.Errors, r)
	}
}

// MergeService collapses detected duplicate groups. Each group commits or
// rolls back on its own; failures are recorded and the run continues.
type MergeService struct {
	store   uow.Store
	dedup   *DedupService
	ids     id.Generator
	now     func() time.Time
	workers int
	logger  *logging.Logger
}

func NewMergeService(store uow.Store, dedupService *DedupService, ids id.Generator, workers int, logger *logging.Logger) *MergeService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MergeService{
		store:   store,
		dedup:   dedupService,
		ids:     ids,
		now:     func() time.Time { return time.Now().UTC() },
		workers: workers,
		logger:  logger.Named("merge"),
	}
}

func (s *MergeService) WithClock(now func() time.Time) *MergeService {
	if now != nil {
		s.now = now
	}
	return s
}

// Run detects groups with the requested detector and merges them.
func (s *MergeService) Run(ctx context.Context, token writeauth.Token, opts MergeOptions) (MergeSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MergeService.Run")
	defer span.End()

	summary := MergeSummary{Entity: opts.Entity, Detector: opts.Detector, DryRun: opts.DryRun, RunID: token.RunID()}
	detector, err := dedup.ParseDetector(opts.Entity, string(opts.Detector))
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !detector.Mergeable() {
		return summary, fmt.Errorf("%w: %s", ErrReviewOnly, detector)
	}
	if !opts.DryRun {
		if err := writeauth.Require(token); err != nil {
			return summary, err
		}
	}

	groups, err := s.dedup.Detect(ctx, opts.Entity, detector)
	if err != nil {
		return summary, err
	}
	if opts.Limit > 0 && len(groups) > opts.Limit {
		groups = groups[:opts.Limit]
	}
	summary.Groups = len(groups)

	var results []GroupResult
	if opts.DryRun {
		results = s.plan(ctx, groups)
	} else {
		results, err = s.execute(ctx, token, groups)
		if err != nil {
			markSpanError(span, err)
			return summary, err
		}
	}
	for _, r := range results {
		summary.add(r)
	}

	span.SetAttributes(
		attribute.String("merge.entity", string(opts.Entity)),
		attribute.String("merge.detector", string(detector)),
		attribute.Int("merge.groups", summary.Groups),
		attribute.Int("merge.errors", len(summary.Errors)),
	)
	s.logger.InfoContext(ctx, "merge finished",
		"entity", opts.Entity,
		"detector", detector,
		"dry_run", opts.DryRun,
		"groups", summary.Groups,
		"merged", summary.Merged,
		"deleted", summary.Deleted,
		"fixtures_migrated", summary.FixturesMigrated,
		"fixtures_soft_deleted", summary.FixturesSoftDeleted,
		"skipped", summary.Skipped,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// plan evaluates every group against committed data without writing.
func (s *MergeService) plan(ctx context.Context, groups []dedup.Group) []GroupResult {
	repos := s.store.Read()
	results := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		r, err := s.mergeGroup(ctx, repos, runMeta{}, g, true)
		results = append(results, s.finish(ctx, g, r, err, MergeStatusPlanned))
	}
	return results
}

// execute merges groups, one transaction per group. Groups sharing a member,
// or a fixture between their members, land in the same partition and run in
// order on one worker.
func (s *MergeService) execute(ctx context.Context, token writeauth.Token, groups []dedup.Group) ([]GroupResult, error) {
	var links [][2]string
	if s.workers > 1 {
		var err error
		if links, err = s.fixtureLinks(ctx, groups); err != nil {
			return nil, err
		}
	}
	partitions := dedup.Partition(groups, links...)
	meta := runMeta{actor: token.Actor(), runID: token.RunID()}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		results []GroupResult
		authErr error
	)
	runPartition := func(part []dedup.Group) {
		for _, g := range part {
			if ctx.Err() != nil {
				return
			}
			var r GroupResult
			err := s.store.WithinTx(ctx, token, func(ctx context.Context, repos uow.Repositories) error {
				var err error
				r, err = s.mergeGroup(ctx, repos, meta, g, false)
				return err
			})
			if errors.Is(err, writeauth.ErrWriteNotAuthorized) {
				mu.Lock()
				authErr = err
				mu.Unlock()
				cancel()
				return
			}
			res := s.finish(ctx, g, r, err, MergeStatusMerged)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}
	}

	workers := s.workers
	if workers > len(partitions) {
		workers = len(partitions)
	}
	if workers <= 1 {
		for _, part := range partitions {
			runPartition(part)
		}
	} else {
		pool, err := ants.NewPool(workers)
		if err != nil {
			return nil, fmt.Errorf("create merge worker pool: %w", err)
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for _, part := range partitions {
			part := part
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				runPartition(part)
			}); err != nil {
				wg.Done()
				cancel()
				wg.Wait()
				return nil, fmt.Errorf("submit merge partition: %w", err)
			}
		}
		wg.Wait()
	}

	if authErr != nil {
		return nil, authErr
	}
	order := make(map[string]int, len(groups))
	for i, g := range groups {
		order[g.Key] = i
	}
	sort.SliceStable(results, func(i, j int) bool { return order[results[i].Key] < order[results[j].Key] })
	return results, nil
}

// fixtureLinks pairs team group members that appear in one fixture. Merging
// either group rewrites that fixture, so both must run on the same worker.
func (s *MergeService) fixtureLinks(ctx context.Context, groups []dedup.Group) ([][2]string, error) {
	members := make(map[string]struct{})
	for _, g := range groups {
		if g.Entity != dedup.EntityTeam {
			return nil, nil
		}
		for _, memberID := range g.MemberIDs {
			members[memberID] = struct{}{}
		}
	}

	fixtures := s.store.Read().Fixtures
	var links [][2]string
	for _, memberID := range sortedSet(members) {
		items, err := fixtures.ListByTeam(ctx, memberID)
		if err != nil {
			return nil, fmt.Errorf("list fixtures of %s: %w", memberID, err)
		}
		for _, f := range items {
			other := f.Opponent(memberID)
			if _, ok := members[other]; ok && other != memberID {
				links = append(links, [2]string{memberID, other})
			}
		}
	}
	return links, nil
}

func (s *MergeService) finish(ctx context.Context, g dedup.Group, r GroupResult, err error, success MergeStatus) GroupResult {
	r.Key = g.Key
	r.Detector = g.Detector
	r.MemberIDs = g.MemberIDs
	r.Similarity = g.Similarity

	switch {
	case errors.Is(err, errStaleGroup):
		r.Status = MergeStatusSkipped
		s.logger.InfoContext(ctx, "group skipped", "group", g.Key, "members", g.MemberIDs, "error", err)
	case err != nil:
		r.Status = MergeStatusFailed
		r.Err = crerr.WithDetailf(crerr.Wrapf(err, "merge %s group %s", g.Entity, g.Key), "members=%v", g.MemberIDs)
		s.logger.ErrorContext(ctx, "group merge failed", "group", g.Key, "members", g.MemberIDs, "error", r.Err)
	default:
		r.Status = success
		s.logger.DebugContext(ctx, "group merged",
			"group", g.Key,
			"kept_id", r.KeptID,
			"removed", r.RemovedIDs,
			"fixtures_migrated", r.FixturesMigrated,
			"fixtures_soft_deleted", r.FixturesSoftDeleted,
		)
	}
	return r
}

type runMeta struct {
	actor string
	runID string
}

func (s *MergeService) mergeGroup(ctx context.Context, repos uow.Repositories, meta runMeta, g dedup.Group, dryRun bool) (GroupResult, error) {
	switch g.Entity {
	case dedup.EntityTeam:
		return s.mergeTeams(ctx, repos, meta, g, dryRun)
	case dedup.EntityFixture:
		return s.mergeFixtures(ctx, repos, meta, g, dryRun)
	case dedup.EntityEvent:
		return s.mergeEvents(ctx, repos, meta, g, dryRun)
	default:
		return GroupResult{}, fmt.Errorf("%w: entity %q", ErrInvalidInput, g.Entity)
	}
}

// mergeTeams folds every loser into the kept team. Loser fixtures are
// rewritten to the kept id; a fixture that would repeat a kept fixture (same
// date, same opponent) or pit the team against itself is soft-deleted instead.
func (s *MergeService) mergeTeams(ctx context.Context, repos uow.Repositories, meta runMeta, g dedup.Group, dryRun bool) (GroupResult, error) {
	teams, err := repos.Teams.ListByIDs(ctx, g.MemberIDs)
	if err != nil {
		return GroupResult{}, fmt.Errorf("load teams: %w", err)
	}
	if len(teams) != len(g.MemberIDs) {
		return GroupResult{}, errStaleGroup
	}
	activity, err := repos.Fixtures.CountActiveByTeams(ctx, g.MemberIDs)
	if err != nil {
		return GroupResult{}, fmt.Errorf("count team activity: %w", err)
	}

	byID := make(map[string]team.Team, len(teams))
	candidates := make([]dedup.Candidate, 0, len(teams))
	for _, item := range teams {
		byID[item.ID] = item
		candidates = append(candidates, dedup.Candidate{ID: item.ID, Activity: activity[item.ID], CreatedAt: item.CreatedAt})
	}
	kept, losers := dedup.ChooseKept(candidates)
	loserIDs := make(map[string]struct{}, len(losers))
	for _, l := range losers {
		loserIDs[l.ID] = struct{}{}
	}

	plan := newFixturePlan()
	keptFixtures, err := repos.Fixtures.ListByTeam(ctx, kept.ID)
	if err != nil {
		return GroupResult{}, fmt.Errorf("list kept fixtures: %w", err)
	}
	for _, f := range keptFixtures {
		if involvesAny(f, loserIDs) {
			// Played against a loser; handled below as an intra-squad fixture.
			continue
		}
		plan.track(f)
		if f.IsActive() {
			plan.slots[slotKey(f, kept.ID)] = f.ID
		}
	}

	affected := map[string]struct{}{kept.ID: {}}
	result := GroupResult{KeptID: kept.ID}
	for _, l := range losers {
		fixtures, err := repos.Fixtures.ListByTeam(ctx, l.ID)
		if err != nil {
			return GroupResult{}, fmt.Errorf("list fixtures of %s: %w", l.ID, err)
		}
		for _, f := range fixtures {
			if plan.seen(f.ID) {
				continue
			}
			plan.track(f)

			moved := f
			if _, ok := loserIDs[moved.HomeTeamID]; ok {
				moved.HomeTeamID = kept.ID
			}
			if _, ok := loserIDs[moved.AwayTeamID]; ok {
				moved.AwayTeamID = kept.ID
			}

			switch {
			case !f.IsActive():
				// Already soft-deleted; only the reference moves.
				plan.set(moved)
			case moved.HomeTeamID == moved.AwayTeamID:
				plan.set(softDeleted(moved, fixture.ReasonIntraSquad, s.now()))
				result.FixturesSoftDeleted++
			default:
				key := slotKey(moved, kept.ID)
				survivorID, taken := plan.slots[key]
				if !taken {
					plan.slots[key] = moved.ID
					plan.set(moved)
					result.FixturesMigrated++
					continue
				}
				survivor := plan.current(survivorID)
				if filled, changed := fixture.FillMissing(survivor, moved); changed {
					plan.set(filled)
				}
				plan.set(softDeleted(moved, fixture.SemanticDuplicateOf(survivorID), s.now()))
				affected[moved.Opponent(kept.ID)] = struct{}{}
				result.FixturesSoftDeleted++
			}
		}
	}

	for _, l := range losers {
		result.RemovedIDs = append(result.RemovedIDs, l.ID)
	}
	if dryRun {
		return result, nil
	}

	if err := s.applyFixturePlan(ctx, repos, meta, plan); err != nil {
		return GroupResult{}, err
	}
	if err := recomputeStats(ctx, repos, sortedSet(affected)); err != nil {
		return GroupResult{}, err
	}

	for _, l := range losers {
		loser := byID[l.ID]
		entry, _, err := repos.Registry.Get(ctx, registry.EntityTeam, loser.ID)
		if err != nil {
			return GroupResult{}, fmt.Errorf("get registry entry %s: %w", loser.ID, err)
		}
		if _, err := repos.Registry.Append(ctx, registry.Entry{
			EntityType:  registry.EntityTeam,
			CanonicalID: kept.ID,
			Aliases:     append(append([]string(nil), entry.Aliases...), nonEmpty(loser.DisplayName, loser.Name)...),
			AliasKeys:   append(append([]string(nil), entry.AliasKeys...), loser.NormalizedName),
			SourceIDs:   entry.SourceIDs,
		}); err != nil {
			return GroupResult{}, fmt.Errorf("union registry into %s: %w", kept.ID, err)
		}

		before, err := snapshotTeam(loser, entry, activity[loser.ID])
		if err != nil {
			return GroupResult{}, fmt.Errorf("snapshot team %s: %w", loser.ID, err)
		}
		if err := s.appendMergeAudit(ctx, repos, meta, g, string(dedup.EntityTeam), loser.ID, before, kept, l); err != nil {
			return GroupResult{}, err
		}

		if err := repos.Registry.Delete(ctx, registry.EntityTeam, loser.ID); err != nil {
			return GroupResult{}, fmt.Errorf("delete registry entry %s: %w", loser.ID, err)
		}
		if err := repos.Teams.Delete(ctx, loser.ID); err != nil {
			return GroupResult{}, fmt.Errorf("delete team %s: %w", loser.ID, err)
		}
	}
	return result, nil
}

// mergeFixtures keeps the most complete row, copies what it lacks from the
// others and soft-deletes them.
func (s *MergeService) mergeFixtures(ctx context.Context, repos uow.Repositories, meta runMeta, g dedup.Group, dryRun bool) (GroupResult, error) {
	byID := make(map[string]fixture.Fixture, len(g.MemberIDs))
	candidates := make([]dedup.Candidate, 0, len(g.MemberIDs))
	for _, fixtureID := range g.MemberIDs {
		f, ok, err := repos.Fixtures.GetByID(ctx, fixtureID)
		if err != nil {
			return GroupResult{}, fmt.Errorf("load fixture %s: %w", fixtureID, err)
		}
		if !ok || !f.IsActive() {
			return GroupResult{}, errStaleGroup
		}
		byID[f.ID] = f
		candidates = append(candidates, dedup.Candidate{ID: f.ID, Activity: completeness(f), CreatedAt: f.CreatedAt})
	}

	kept, losers := dedup.ChooseKept(candidates)
	final := byID[kept.ID]
	changed := false
	result := GroupResult{KeptID: kept.ID}
	for _, l := range losers {
		var filled bool
		final, filled = fixture.FillMissing(final, byID[l.ID])
		changed = changed || filled
		result.RemovedIDs = append(result.RemovedIDs, l.ID)
		result.FixturesSoftDeleted++
	}
	if dryRun {
		return result, nil
	}

	for _, l := range losers {
		loser := byID[l.ID]
		before, err := snapshotFixture(loser)
		if err != nil {
			return GroupResult{}, fmt.Errorf("snapshot fixture %s: %w", loser.ID, err)
		}
		reason := fixture.DuplicateOf(kept.ID)
		if err := repos.Fixtures.SoftDelete(ctx, loser.ID, reason); err != nil {
			return GroupResult{}, fmt.Errorf("soft delete fixture %s: %w", loser.ID, err)
		}
		if err := s.appendAudit(ctx, repos, meta, audit.Record{
			EntityType: string(dedup.EntityFixture),
			EntityID:   loser.ID,
			Action:     audit.ActionSoftDelete,
			Reason:     reason + " " + dedup.KeepReason(kept, l),
			Before:     before,
		}); err != nil {
			return GroupResult{}, err
		}
	}
	if changed {
		if err := repos.Fixtures.Update(ctx, final); err != nil {
			return GroupResult{}, fmt.Errorf("update kept fixture %s: %w", final.ID, err)
		}
	}
	if err := recomputeStats(ctx, repos, []string{final.HomeTeamID, final.AwayTeamID}); err != nil {
		return GroupResult{}, err
	}
	return result, nil
}

// mergeEvents moves every fixture of the losing events to the kept event.
func (s *MergeService) mergeEvents(ctx context.Context, repos uow.Repositories, meta runMeta, g dedup.Group, dryRun bool) (GroupResult, error) {
	events, err := repos.Events.ListByIDs(ctx, g.MemberIDs)
	if err != nil {
		return GroupResult{}, fmt.Errorf("load events: %w", err)
	}
	if len(events) != len(g.MemberIDs) {
		return GroupResult{}, errStaleGroup
	}
	activity, err := repos.Fixtures.CountActiveByEvents(ctx, g.MemberIDs)
	if err != nil {
		return GroupResult{}, fmt.Errorf("count event activity: %w", err)
	}

	byID := make(map[string]event.Event, len(events))
	candidates := make([]dedup.Candidate, 0, len(events))
	for _, item := range events {
		byID[item.ID] = item
		candidates = append(candidates, dedup.Candidate{ID: item.ID, Activity: activity[item.ID], CreatedAt: item.CreatedAt})
	}
	kept, losers := dedup.ChooseKept(candidates)
	result := GroupResult{KeptID: kept.ID}
	for _, l := range losers {
		result.RemovedIDs = append(result.RemovedIDs, l.ID)
		result.FixturesMigrated += activity[l.ID]
	}
	if dryRun {
		return result, nil
	}

	result.FixturesMigrated = 0
	for _, l := range losers {
		loser := byID[l.ID]
		moved, err := repos.Fixtures.ReassignEvent(ctx, loser.ID, kept.ID)
		if err != nil {
			return GroupResult{}, fmt.Errorf("reassign fixtures of event %s: %w", loser.ID, err)
		}
		result.FixturesMigrated += moved

		entry, _, err := repos.Registry.Get(ctx, registry.EntityEvent, loser.ID)
		if err != nil {
			return GroupResult{}, fmt.Errorf("get registry entry %s: %w", loser.ID, err)
		}
		if _, err := repos.Registry.Append(ctx, registry.Entry{
			EntityType:  registry.EntityEvent,
			CanonicalID: kept.ID,
			Aliases:     append(append([]string(nil), entry.Aliases...), nonEmpty(loser.Name)...),
			AliasKeys:   entry.AliasKeys,
			SourceIDs:   append(append([]string(nil), entry.SourceIDs...), nonEmpty(registry.SourceKey(loser.SourcePlatform, loser.SourceEventID))...),
		}); err != nil {
			return GroupResult{}, fmt.Errorf("union registry into %s: %w", kept.ID, err)
		}

		before, err := snapshotEvent(loser, entry, activity[loser.ID])
		if err != nil {
			return GroupResult{}, fmt.Errorf("snapshot event %s: %w", loser.ID, err)
		}
		if err := s.appendMergeAudit(ctx, repos, meta, g, string(dedup.EntityEvent), loser.ID, before, kept, l); err != nil {
			return GroupResult{}, err
		}
		if err := repos.Registry.Delete(ctx, registry.EntityEvent, loser.ID); err != nil {
			return GroupResult{}, fmt.Errorf("delete registry entry %s: %w", loser.ID, err)
		}
		if err := repos.Events.Delete(ctx, loser.ID); err != nil {
			return GroupResult{}, fmt.Errorf("delete event %s: %w", loser.ID, err)
		}
	}
	return result, nil
}

// applyFixturePlan writes soft-deletes before rewrites so freed keys can be
// taken by the rewritten rows. Every soft-delete is audited.
func (s *MergeService) applyFixturePlan(ctx context.Context, repos uow.Repositories, meta runMeta, plan *fixturePlan) error {
	changed := plan.changed()
	sort.SliceStable(changed, func(i, j int) bool {
		return !changed[i].after.IsActive() && changed[j].after.IsActive()
	})

	for _, c := range changed {
		if err := repos.Fixtures.Update(ctx, c.after); err != nil {
			return fmt.Errorf("update fixture %s: %w", c.after.ID, err)
		}
		if !c.before.IsActive() || c.after.IsActive() {
			continue
		}
		before, err := snapshotFixture(c.before)
		if err != nil {
			return fmt.Errorf("snapshot fixture %s: %w", c.before.ID, err)
		}
		if err := s.appendAudit(ctx, repos, meta, audit.Record{
			EntityType: string(dedup.EntityFixture),
			EntityID:   c.after.ID,
			Action:     audit.ActionSoftDelete,
			Reason:     c.after.DeletedReason,
			Before:     before,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *MergeService) appendMergeAudit(ctx context.Context, repos uow.Repositories, meta runMeta, g dedup.Group, entityType, entityID string, before []byte, kept, loser dedup.Candidate) error {
	reason := dedup.KeepReason(kept, loser)
	after, err := snapshotTarget(mergeTarget{
		MergedInto: kept.ID,
		Detector:   string(g.Detector),
		GroupKey:   g.Key,
		Similarity: g.Similarity,
		KeepReason: reason,
	})
	if err != nil {
		return fmt.Errorf("snapshot merge target: %w", err)
	}
	return s.appendAudit(ctx, repos, meta, audit.Record{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     audit.ActionMergeDelete,
		Reason:     fmt.Sprintf("%s similarity=%.4f", reason, g.Similarity),
		Before:     before,
		After:      after,
	})
}

func (s *MergeService) appendAudit(ctx context.Context, repos uow.Repositories, meta runMeta, rec audit.Record) error {
	recordID, err := s.ids.NewID()
	if err != nil {
		return err
	}
	rec.ID = recordID
	rec.Actor = meta.actor
	rec.RunID = meta.runID
	rec.CreatedAt = s.now()
	if err := repos.Audit.Append(ctx, rec); err != nil {
		return fmt.Errorf("append audit for %s %s: %w", rec.EntityType, rec.EntityID, err)
	}
	return nil
}

// recomputeStats rebuilds counters from active fixtures.
func recomputeStats(ctx context.Context, repos uow.Repositories, teamIDs []string) error {
	fixtures, err := repos.Fixtures.ListActiveByTeams(ctx, teamIDs)
	if err != nil {
		return fmt.Errorf("list fixtures for stats: %w", err)
	}
	for _, teamID := range teamIDs {
		if err := repos.Teams.UpdateStats(ctx, teamID, fixture.ComputeStats(teamID, fixtures)); err != nil {
			return fmt.Errorf("update stats of %s: %w", teamID, err)
		}
	}
	return nil
}

// fixturePlan tracks the original and planned state of every fixture a team
// merge touches.
type fixturePlan struct {
	order  []string
	before map[string]fixture.Fixture
	after  map[string]fixture.Fixture
	slots  map[string]string
}

type fixtureChange struct {
	before fixture.Fixture
	after  fixture.Fixture
}

func newFixturePlan() *fixturePlan {
	return &fixturePlan{
		before: make(map[string]fixture.Fixture),
		after:  make(map[string]fixture.Fixture),
		slots:  make(map[string]string),
	}
}

func (p *fixturePlan) seen(fixtureID string) bool {
	_, ok := p.before[fixtureID]
	return ok
}

func (p *fixturePlan) track(f fixture.Fixture) {
	if p.seen(f.ID) {
		return
	}
	p.order = append(p.order, f.ID)
	p.before[f.ID] = f
	p.after[f.ID] = f
}

func (p *fixturePlan) set(f fixture.Fixture) {
	p.after[f.ID] = f
}

func (p *fixturePlan) current(fixtureID string) fixture.Fixture {
	return p.after[fixtureID]
}

func (p *fixturePlan) changed() []fixtureChange {
	out := make([]fixtureChange, 0)
	for _, fixtureID := range p.order {
		before, after := p.before[fixtureID], p.after[fixtureID]
		if fixtureEqual(before, after) {
			continue
		}
		out = append(out, fixtureChange{before: before, after: after})
	}
	return out
}

func fixtureEqual(a, b fixture.Fixture) bool {
	return a.HomeTeamID == b.HomeTeamID &&
		a.AwayTeamID == b.AwayTeamID &&
		a.Status == b.Status &&
		a.DeletedReason == b.DeletedReason &&
		a.EventID == b.EventID &&
		a.SourceKey == b.SourceKey &&
		a.SourcePlatform == b.SourcePlatform &&
		a.Division == b.Division &&
		a.MatchTime == b.MatchTime &&
		optionalEqual(a.HomeScore, b.HomeScore) &&
		optionalEqual(a.AwayScore, b.AwayScore)
}

func optionalEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func involvesAny(f fixture.Fixture, ids map[string]struct{}) bool {
	_, home := ids[f.HomeTeamID]
	_, away := ids[f.AwayTeamID]
	return home || away
}

func softDeleted(f fixture.Fixture, reason string, at time.Time) fixture.Fixture {
	f.Status = fixture.StatusSoftDeleted
	f.DeletedReason = reason
	f.DeletedAt = &at
	return f
}

// slotKey is (date, opponent) from teamID's point of view.
func slotKey(f fixture.Fixture, teamID string) string {
	return fixture.DateOnly(f.MatchDate).Format(time.DateOnly) + "|" + f.Opponent(teamID)
}

// completeness ranks duplicate fixtures by how much they know.
func completeness(f fixture.Fixture) int {
	n := 0
	if f.HasResult() {
		n += 2
	}
	for _, v := range []string{f.EventID, f.SourceKey, f.Division, f.MatchTime} {
		if v != "" {
			n++
		}
	}
	return n
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
