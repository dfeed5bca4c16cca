package cli

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/soccer-registry/internal/domain/rawrecord"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
	"github.com/riskibarqy/soccer-registry/internal/usecase"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func newIngestCommand(rt *runtime) *cobra.Command {
	var (
		dryRun    bool
		batchSize int
		file      string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Resolve pending raw records into canonical teams, events and fixtures",
		Example: `  registry ingest --file records.json
  registry ingest --dry-run --batch-size 200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := startCommandSpan(cmd, attribute.Bool("ingest.dry_run", dryRun))
			defer func() { endCommandSpan(span, err) }()

			a, err := rt.get(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if file != "" {
				records, err := loadRecords(file)
				if err != nil {
					return err
				}
				n, err := a.Ingestion.Submit(ctx, records)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "submitted %d raw records from %s\n", n, file)
			}

			if batchSize <= 0 {
				batchSize = a.Config.IngestBatchSize
			}
			var token writeauth.Token
			if !dryRun {
				if token, err = a.GrantWrite(rt.newID()); err != nil {
					return err
				}
			}

			summary, err := a.Ingestion.Run(ctx, token, usecase.IngestOptions{BatchSize: batchSize, DryRun: dryRun})
			if err != nil {
				return err
			}
			if _, err := out.Write(renderIngestSummary(summary)); err != nil {
				return err
			}
			if summary.Failed() {
				return ErrRunFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve records without writing canonical tables")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per transaction (default INGEST_BATCH_SIZE)")
	cmd.Flags().StringVar(&file, "file", "", "JSON array of raw records to submit before processing")
	return cmd
}

func loadRecords(path string) ([]rawrecord.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var records []rawrecord.Record
	if err := sonic.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode records %s: %w", path, err)
	}
	return records, nil
}
