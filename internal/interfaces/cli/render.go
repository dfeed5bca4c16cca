package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/usecase"
	"github.com/valyala/bytebufferpool"
)

func pooled(fill func(buf *bytebufferpool.ByteBuffer)) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	fill(buf)
	return append([]byte(nil), buf.B...)
}

func renderIngestSummary(s usecase.IngestSummary) []byte {
	return pooled(func(buf *bytebufferpool.ByteBuffer) {
		if s.DryRun {
			buf.WriteString("ingest (dry run)\n")
		} else {
			buf.WriteString("ingest\n")
		}
		fmt.Fprintf(buf, "  batches:        %d (%d failed)\n", s.Batches, s.FailedBatches)
		fmt.Fprintf(buf, "  processed:      %d\n", s.Processed)
		fmt.Fprintf(buf, "  inserted:       %d\n", s.Inserted)
		fmt.Fprintf(buf, "  updated:        %d\n", s.Updated)
		fmt.Fprintf(buf, "  unchanged:      %d\n", s.Unchanged)
		fmt.Fprintf(buf, "  skipped:        %d\n", s.Skipped)
		fmt.Fprintf(buf, "  teams created:  %d\n", s.TeamsCreated)
		fmt.Fprintf(buf, "  events created: %d\n", s.EventsCreated)

		reasons := make([]string, 0, len(s.SkipReasons))
		for reason := range s.SkipReasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(buf, "    %-24s %d\n", reason, s.SkipReasons[reason])
		}
	})
}

func renderReports(reports []dedup.Report, thresholds dedup.Thresholds) []byte {
	return pooled(func(buf *bytebufferpool.ByteBuffer) {
		fmt.Fprintf(buf, "thresholds: auto-merge %.2f, review %.2f, same-name %.2f\n",
			thresholds.AutoMerge, thresholds.Review, thresholds.SameName)
		for _, r := range reports {
			fmt.Fprintf(buf, "\n%s/%s: %d groups, %d excess rows\n", r.Entity, r.Detector, r.GroupCount, r.ExcessRows)
			for _, g := range r.Samples {
				writeGroupLine(buf, g.Key, g.MemberIDs, g.Similarity)
			}
			if hidden := r.GroupCount - len(r.Samples); hidden > 0 {
				fmt.Fprintf(buf, "  ... %d more\n", hidden)
			}
		}
	})
}

func writeGroupLine(buf *bytebufferpool.ByteBuffer, key string, members []string, similarity float64) {
	fmt.Fprintf(buf, "  %s [%s]", key, strings.Join(members, ", "))
	if similarity > 0 {
		fmt.Fprintf(buf, " similarity=%.3f", similarity)
	}
	buf.WriteString("\n")
}

func renderMergeSummary(s usecase.MergeSummary, verbose bool) []byte {
	return pooled(func(buf *bytebufferpool.ByteBuffer) {
		fmt.Fprintf(buf, "merge %s/%s", s.Entity, s.Detector)
		if s.DryRun {
			buf.WriteString(" (dry run)")
		} else {
			fmt.Fprintf(buf, " run=%s", s.RunID)
		}
		buf.WriteString("\n")
		fmt.Fprintf(buf, "  groups:                %d\n", s.Groups)
		fmt.Fprintf(buf, "  merged:                %d\n", s.Merged)
		fmt.Fprintf(buf, "  deleted:               %d\n", s.Deleted)
		fmt.Fprintf(buf, "  fixtures migrated:     %d\n", s.FixturesMigrated)
		fmt.Fprintf(buf, "  fixtures soft-deleted: %d\n", s.FixturesSoftDeleted)
		fmt.Fprintf(buf, "  skipped:               %d\n", s.Skipped)
		fmt.Fprintf(buf, "  errors:                %d\n", len(s.Errors))

		if verbose {
			for _, r := range s.Results {
				fmt.Fprintf(buf, "  %-7s ", r.Status)
				writeGroupLine(buf, r.Key, r.MemberIDs, r.Similarity)
				if r.KeptID != "" {
					fmt.Fprintf(buf, "          keep %s, remove [%s], fixtures %d migrated %d soft-deleted\n",
						r.KeptID, strings.Join(r.RemovedIDs, ", "), r.FixturesMigrated, r.FixturesSoftDeleted)
				}
			}
		}
		for _, r := range s.Errors {
			fmt.Fprintf(buf, "  failed %s: %v\n", r.Key, r.Err)
		}
	})
}

func renderAudit(records []audit.Record) []byte {
	return pooled(func(buf *bytebufferpool.ByteBuffer) {
		if len(records) == 0 {
			buf.WriteString("no audit records\n")
			return
		}
		for _, r := range records {
			fmt.Fprintf(buf, "%s  %-12s %-8s %s  reason=%s actor=%s run=%s\n",
				r.CreatedAt.UTC().Format(time.RFC3339), r.Action, r.EntityType, r.EntityID, r.Reason, r.Actor, r.RunID)
		}
	})
}

type reportView struct {
	Entity     dedup.EntityType `json:"entity"`
	Detector   dedup.Detector   `json:"detector"`
	GroupCount int              `json:"group_count"`
	ExcessRows int              `json:"excess_rows"`
	Samples    []groupView      `json:"samples"`
}

type groupView struct {
	Key        string   `json:"key"`
	MemberIDs  []string `json:"member_ids"`
	Similarity float64  `json:"similarity,omitempty"`
}

func renderReportsJSON(reports []dedup.Report) ([]byte, error) {
	views := make([]reportView, 0, len(reports))
	for _, r := range reports {
		v := reportView{Entity: r.Entity, Detector: r.Detector, GroupCount: r.GroupCount, ExcessRows: r.ExcessRows, Samples: []groupView{}}
		for _, g := range r.Samples {
			v.Samples = append(v.Samples, groupView{Key: g.Key, MemberIDs: g.MemberIDs, Similarity: g.Similarity})
		}
		views = append(views, v)
	}
	return marshalIndent(views)
}

type auditView struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     audit.Action    `json:"action"`
	Reason     string          `json:"reason"`
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after,omitempty"`
	Actor      string          `json:"actor"`
	RunID      string          `json:"run_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

func renderAuditJSON(records []audit.Record) ([]byte, error) {
	views := make([]auditView, 0, len(records))
	for _, r := range records {
		views = append(views, auditView{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			Reason:     r.Reason,
			Before:     json.RawMessage(r.Before),
			After:      json.RawMessage(r.After),
			Actor:      r.Actor,
			RunID:      r.RunID,
			CreatedAt:  r.CreatedAt,
		})
	}
	return marshalIndent(views)
}

func marshalIndent(v any) ([]byte, error) {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
