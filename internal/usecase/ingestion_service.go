package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/soccer-registry/internal/domain/fixture"
	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
	"github.com/riskibarqy/soccer-registry/internal/domain/registry"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"github.com/riskibarqy/soccer-registry/internal/platform/id"
	"github.com/riskibarqy/soccer-registry/internal/platform/logging"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
	"go.opentelemetry.io/otel/attribute"
)

const (
	SkipReasonSameTeam          = "same_team"
	SkipReasonReversedDuplicate = "reversed_duplicate"
	SkipReasonUnresolvable      = "unresolvable"
	SkipReasonInvalid           = "invalid"

	defaultIngestBatchSize = 500
)

// UpsertOutcome is what an ingested fixture did to the canonical table.
type UpsertOutcome string

const (
	OutcomeInserted  UpsertOutcome = "inserted"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	OutcomeSkipped   UpsertOutcome = "skipped"
)

type IngestOptions struct {
	BatchSize int
	DryRun    bool
}

type IngestSummary struct {
	DryRun        bool
	Batches       int
	FailedBatches int
	Processed     int
	Inserted      int
	Updated       int
	Unchanged     int
	Skipped       int
	SkipReasons   map[string]int
	TeamsCreated  int
	EventsCreated int
}

func (s IngestSummary) Failed() bool {
	return s.FailedBatches > 0
}

type IngestionService struct {
	store    uow.Store
	resolver *ResolverService
	validate *validator.Validate
	ids      id.Generator
	now      func() time.Time
	logger   *logging.Logger
}

func NewIngestionService(store uow.Store, resolver *ResolverService, ids id.Generator, logger *logging.Logger) *IngestionService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		store:    store,
		resolver: resolver,
		validate: validator.New(),
		ids:      ids,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Named("ingest"),
	}
}

// WithClock overrides the clock that decides whether a fixture is in the future.
func (s *IngestionService) WithClock(now func() time.Time) *IngestionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Submit validates and lands collector records in the raw store.
func (s *IngestionService) Submit(ctx context.Context, records []rawrecord.Record) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Submit")
	defer span.End()

	accepted := make([]rawrecord.Record, 0, len(records))
	for idx, rec := range records {
		rec.Kind = rawrecord.Kind(strings.ToLower(strings.TrimSpace(string(rec.Kind))))
		if err := s.validate.StructCtx(ctx, rec); err != nil {
			return 0, fmt.Errorf("%w: record %d: %v", ErrInvalidInput, idx, err)
		}
		if rec.ID == "" {
			recordID, err := s.ids.NewID()
			if err != nil {
				return 0, err
			}
			rec.ID = recordID
		}
		rec.Status = rawrecord.StatusPending
		rec.ReceivedAt = s.now()
		accepted = append(accepted, rec)
	}
	if len(accepted) == 0 {
		return 0, nil
	}
	if err := s.store.Read().RawRecords.Append(ctx, accepted); err != nil {
		return 0, fmt.Errorf("append raw records: %w", err)
	}
	return len(accepted), nil
}

// Run processes pending raw records in fixed-size batches. Each batch commits
// as one transaction; a failed batch is rolled back, counted and left pending.
// An authorization failure aborts the run.
func (s *IngestionService) Run(ctx context.Context, token writeauth.Token, opts IngestOptions) (IngestSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.Run")
	defer span.End()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultIngestBatchSize
	}
	summary := IngestSummary{DryRun: opts.DryRun, SkipReasons: make(map[string]int)}
	if !opts.DryRun {
		if err := writeauth.Require(token); err != nil {
			return summary, err
		}
	}

	var afterSeq int64
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		records, err := s.store.Read().RawRecords.ListPending(ctx, afterSeq, batchSize)
		if err != nil {
			return summary, fmt.Errorf("list pending raw records: %w", err)
		}
		if len(records) == 0 {
			break
		}
		afterSeq = records[len(records)-1].Seq
		summary.Batches++

		batch, err := s.runBatch(ctx, token, records, opts.DryRun)
		if errors.Is(err, writeauth.ErrWriteNotAuthorized) {
			return summary, err
		}
		if err != nil {
			markSpanError(span, err)
			summary.FailedBatches++
			s.logger.ErrorContext(ctx, "ingest batch failed", "batch", summary.Batches, "first_record", records[0].ID, "error", err)
			continue
		}
		summary.add(batch)
	}

	span.SetAttributes(
		attribute.Int("ingest.processed", summary.Processed),
		attribute.Int("ingest.failed_batches", summary.FailedBatches),
	)
	s.logger.InfoContext(ctx, "ingest finished",
		"dry_run", summary.DryRun,
		"batches", summary.Batches,
		"processed", summary.Processed,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"failed_batches", summary.FailedBatches,
	)
	return summary, nil
}

func (s *IngestionService) runBatch(ctx context.Context, token writeauth.Token, records []rawrecord.Record, dryRun bool) (IngestSummary, error) {
	process := func(ctx context.Context, scope *Scope) (IngestSummary, []rawrecord.Outcome, error) {
		batch := IngestSummary{SkipReasons: make(map[string]int)}
		outcomes := make([]rawrecord.Outcome, 0, len(records))
		touched := make(map[string]struct{})
		for _, rec := range records {
			result, err := s.processRecord(ctx, scope, rec)
			if err != nil {
				return batch, nil, fmt.Errorf("raw record %s: %w", rec.ID, err)
			}
			batch.record(result)
			outcomes = append(outcomes, result.toOutcome(rec.ID, s.now()))
			for _, teamID := range result.statsTeams {
				touched[teamID] = struct{}{}
			}
		}
		if len(touched) > 0 && !scope.DryRun() {
			if err := recomputeStats(ctx, scope.Repos(), sortedSet(touched)); err != nil {
				return batch, nil, err
			}
		}
		return batch, outcomes, nil
	}

	if dryRun {
		batch, _, err := process(ctx, NewScope(s.store.Read(), true))
		return batch, err
	}

	var batch IngestSummary
	err := s.store.WithinTx(ctx, token, func(ctx context.Context, repos uow.Repositories) error {
		var (
			outcomes []rawrecord.Outcome
			err      error
		)
		batch, outcomes, err = process(ctx, NewScope(repos, false))
		if err != nil {
			return err
		}
		return repos.RawRecords.MarkProcessed(ctx, outcomes)
	})
	return batch, err
}

type recordResult struct {
	outcome       UpsertOutcome
	skipReason    string
	teamsCreated  int
	eventsCreated int
	// statsTeams are teams whose counters the record changed.
	statsTeams []string
}

func (r recordResult) outcomeStatus() rawrecord.Status {
	if r.outcome == OutcomeSkipped {
		return rawrecord.StatusSkipped
	}
	return rawrecord.StatusResolved
}

func (r recordResult) toOutcome(recordID string, at time.Time) rawrecord.Outcome {
	return rawrecord.Outcome{ID: recordID, Status: r.outcomeStatus(), Reason: r.skipReason, ProcessedAt: at}
}

func skipped(reason string) recordResult {
	return recordResult{outcome: OutcomeSkipped, skipReason: reason}
}

// processRecord returns an error only for failures that must abort the batch.
// Records that cannot be used are skipped with a reason.
func (s *IngestionService) processRecord(ctx context.Context, scope *Scope, rec rawrecord.Record) (recordResult, error) {
	if err := s.validate.StructCtx(ctx, rec); err != nil {
		s.logger.DebugContext(ctx, "raw record invalid", "record_id", rec.ID, "error", err)
		return skipped(SkipReasonInvalid), nil
	}

	var (
		result recordResult
		err    error
	)
	switch rec.Kind {
	case rawrecord.KindTeam:
		result, err = s.processTeam(ctx, scope, rec)
	case rawrecord.KindEvent:
		result, err = s.processEvent(ctx, scope, rec)
	case rawrecord.KindFixture:
		result, err = s.processFixture(ctx, scope, rec)
	default:
		return skipped(SkipReasonInvalid), nil
	}

	switch {
	case errors.Is(err, ErrUnresolvable):
		s.logger.DebugContext(ctx, "raw record unresolvable", "record_id", rec.ID, "error", err)
		return skipped(SkipReasonUnresolvable), nil
	case errors.Is(err, ErrInvalidInput):
		s.logger.DebugContext(ctx, "raw record invalid", "record_id", rec.ID, "error", err)
		return skipped(SkipReasonInvalid), nil
	}
	return result, err
}

func (s *IngestionService) processTeam(ctx context.Context, scope *Scope, rec rawrecord.Record) (recordResult, error) {
	res, err := s.resolver.ResolveTeam(ctx, scope, teamInput(rec, rec.Name, rec.SourceID))
	if err != nil {
		return recordResult{}, err
	}
	result := recordResult{outcome: OutcomeUnchanged}
	if res.Created {
		result.outcome = OutcomeInserted
		result.teamsCreated = 1
	}
	return result, nil
}

func (s *IngestionService) processEvent(ctx context.Context, scope *Scope, rec rawrecord.Record) (recordResult, error) {
	in, err := eventInput(rec.Name, rec.EventKind, rec.SourcePlatform, firstNonEmpty(rec.EventSourceID, rec.SourceID), rec.StartDate, rec.EndDate)
	if err != nil {
		return recordResult{}, err
	}
	res, err := s.resolver.ResolveEvent(ctx, scope, in)
	if err != nil {
		return recordResult{}, err
	}
	result := recordResult{outcome: OutcomeUnchanged}
	if res.Created {
		result.outcome = OutcomeInserted
		result.eventsCreated = 1
	}
	return result, nil
}

func (s *IngestionService) processFixture(ctx context.Context, scope *Scope, rec rawrecord.Record) (recordResult, error) {
	matchDate, err := parseDate(rec.MatchDate)
	if err != nil {
		return recordResult{}, fmt.Errorf("%w: match date: %v", ErrInvalidInput, err)
	}

	var result recordResult
	home, err := s.resolver.ResolveTeam(ctx, scope, teamInput(rec, rec.HomeName, rec.HomeSourceID))
	if err != nil {
		return recordResult{}, err
	}
	away, err := s.resolver.ResolveTeam(ctx, scope, teamInput(rec, rec.AwayName, rec.AwaySourceID))
	if err != nil {
		return recordResult{}, err
	}
	result.teamsCreated = countCreated(home, away)

	var eventID string
	if rec.EventSourceID != "" || rec.EventName != "" {
		in, err := eventInput(rec.EventName, rec.EventKind, rec.SourcePlatform, rec.EventSourceID, rec.StartDate, rec.EndDate)
		if err != nil {
			return recordResult{}, err
		}
		ev, err := s.resolver.ResolveEvent(ctx, scope, in)
		if err != nil && !errors.Is(err, ErrUnresolvable) {
			return recordResult{}, err
		}
		eventID = ev.ID
		result.eventsCreated = countCreated(ev)
	}

	incoming := fixture.DropPlaceholderScore(fixture.Fixture{
		MatchDate:      matchDate,
		MatchTime:      strings.TrimSpace(rec.MatchTime),
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		HomeScore:      rec.HomeScore,
		AwayScore:      rec.AwayScore,
		EventID:        eventID,
		SourcePlatform: strings.ToLower(strings.TrimSpace(rec.SourcePlatform)),
		SourceKey:      registry.SourceKey(rec.SourcePlatform, rec.SourceID),
		Division:       strings.TrimSpace(rec.Division),
		Status:         fixture.StatusActive,
	}, s.now())
	if !incoming.HasResult() {
		incoming.HomeScore, incoming.AwayScore = nil, nil
	}

	outcome, reason, err := s.upsertFixture(ctx, scope, incoming)
	if err != nil {
		return recordResult{}, err
	}
	result.outcome = outcome
	result.skipReason = reason
	if outcome == OutcomeInserted || outcome == OutcomeUpdated {
		result.statsTeams = []string{home.ID, away.ID}
	}
	return result, nil
}

// upsertFixture writes one fixture idempotently.
func (s *IngestionService) upsertFixture(ctx context.Context, scope *Scope, incoming fixture.Fixture) (UpsertOutcome, string, error) {
	if incoming.HomeTeamID == incoming.AwayTeamID {
		return OutcomeSkipped, SkipReasonSameTeam, nil
	}

	fixtures := scope.Repos().Fixtures
	findActive := func(key fixture.Key) (fixture.Fixture, bool, error) {
		if planned, ok := scope.plannedFixture(key); ok {
			return planned, true, nil
		}
		return fixtures.FindActive(ctx, key)
	}
	key := incoming.Key()
	for attempt := 0; attempt < 2; attempt++ {
		stored, exists, err := findActive(key)
		if err != nil {
			return "", "", fmt.Errorf("find active fixture: %w", err)
		}
		if exists {
			merged, changed := fixture.MergeIncoming(stored, incoming)
			if !changed {
				return OutcomeUnchanged, "", nil
			}
			if scope.DryRun() {
				scope.planFixture(merged)
				return OutcomeUpdated, "", nil
			}
			if err := fixtures.Update(ctx, merged); err != nil {
				return "", "", fmt.Errorf("update fixture %s: %w", stored.ID, err)
			}
			return OutcomeUpdated, "", nil
		}

		_, reversed, err := findActive(key.Reversed())
		if err != nil {
			return "", "", fmt.Errorf("find reversed fixture: %w", err)
		}
		if reversed {
			return OutcomeSkipped, SkipReasonReversedDuplicate, nil
		}
		if scope.DryRun() {
			scope.planFixture(incoming)
			return OutcomeInserted, "", nil
		}

		fixtureID, err := s.ids.NewID()
		if err != nil {
			return "", "", err
		}
		incoming.ID = fixtureID
		err = fixtures.Insert(ctx, incoming)
		if errors.Is(err, fixture.ErrActiveConflict) {
			// Lost a race for the key; the next pass merges into the winner.
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("insert fixture: %w", err)
		}
		return OutcomeInserted, "", nil
	}
	return "", "", fmt.Errorf("upsert fixture %s: %w", key, fixture.ErrActiveConflict)
}

func (s *IngestSummary) record(r recordResult) {
	s.Processed++
	s.TeamsCreated += r.teamsCreated
	s.EventsCreated += r.eventsCreated
	switch r.outcome {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
		s.SkipReasons[r.skipReason]++
	default:
		s.Unchanged++
	}
}

func (s *IngestSummary) add(other IngestSummary) {
	s.Processed += other.Processed
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Unchanged += other.Unchanged
	s.Skipped += other.Skipped
	s.TeamsCreated += other.TeamsCreated
	s.EventsCreated += other.EventsCreated
	for reason, n := range other.SkipReasons {
		s.SkipReasons[reason] += n
	}
}

func teamInput(rec rawrecord.Record, name, sourceID string) TeamInput {
	return TeamInput{
		Name:           name,
		BirthYear:      rec.BirthYear,
		AgeGroup:       firstNonEmpty(rec.AgeGroup, rec.Division),
		Season:         rec.Season,
		Gender:         firstNonEmpty(rec.Gender, rec.Division),
		SourcePlatform: rec.SourcePlatform,
		SourceID:       sourceID,
		Location:       rec.Location,
		Region:         rec.Region,
	}
}

func eventInput(name, kind, platform, sourceID, start, end string) (EventInput, error) {
	in := EventInput{Name: name, Kind: kind, SourcePlatform: platform, SourceEventID: sourceID}
	for _, item := range []struct {
		raw string
		dst **time.Time
	}{{start, &in.StartDate}, {end, &in.EndDate}} {
		if strings.TrimSpace(item.raw) == "" {
			continue
		}
		parsed, err := parseDate(item.raw)
		if err != nil {
			return EventInput{}, fmt.Errorf("%w: event date: %v", ErrInvalidInput, err)
		}
		*item.dst = &parsed
	}
	return in, nil
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "01/02/2006", "1/2/2006", "Jan 2, 2006"}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return fixture.DateOnly(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func countCreated(resolutions ...Resolution) int {
	n := 0
	for _, r := range resolutions {
		if r.Created {
			n++
		}
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
