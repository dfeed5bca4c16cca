package memory

import (
	"context"
	"fmt"

	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
)

type RawRecordRepository struct {
	v *view
}

// Append lands collector records. It is the one write that needs no token.
func (r *RawRecordRepository) Append(_ context.Context, records []rawrecord.Record) error {
	apply := func(t *tables) {
		now := r.v.now()
		for _, rec := range records {
			t.rawSeq++
			rec.Seq = t.rawSeq
			if rec.ID == "" {
				rec.ID = fmt.Sprintf("raw-%d", rec.Seq)
			}
			if rec.Status == "" {
				rec.Status = rawrecord.StatusPending
			}
			if rec.ReceivedAt.IsZero() {
				rec.ReceivedAt = now
			}
			t.raw = append(t.raw, rec)
		}
	}

	if r.v.tx != nil {
		apply(r.v.tx)
		return nil
	}
	// Outside a transaction the append waits for any running one so its
	// commit cannot replace the tables underneath.
	r.v.store.txMu.Lock()
	defer r.v.store.txMu.Unlock()
	r.v.store.mu.Lock()
	defer r.v.store.mu.Unlock()
	apply(r.v.store.data)
	return nil
}

func (r *RawRecordRepository) ListPending(_ context.Context, afterSeq int64, limit int) ([]rawrecord.Record, error) {
	out := make([]rawrecord.Record, 0)
	r.v.read(func(t *tables) {
		for _, rec := range t.raw {
			if limit > 0 && len(out) >= limit {
				return
			}
			if rec.Seq > afterSeq && rec.Status == rawrecord.StatusPending {
				out = append(out, rec)
			}
		}
	})
	return out, nil
}

func (r *RawRecordRepository) MarkProcessed(_ context.Context, outcomes []rawrecord.Outcome) error {
	return r.v.write(func(t *tables) error {
		index := make(map[string]int, len(t.raw))
		for i, rec := range t.raw {
			index[rec.ID] = i
		}
		for _, o := range outcomes {
			i, ok := index[o.ID]
			if !ok {
				return notFound("raw record", o.ID)
			}
			processedAt := o.ProcessedAt
			t.raw[i].Status = o.Status
			t.raw[i].SkipReason = o.Reason
			t.raw[i].ProcessedAt = &processedAt
		}
		return nil
	})
}
