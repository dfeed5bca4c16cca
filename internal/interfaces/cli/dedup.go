package cli

import (
	"errors"

	"github.com/riskibarqy/soccer-registry/internal/domain/dedup"
	"github.com/riskibarqy/soccer-registry/internal/platform/writeauth"
	"github.com/riskibarqy/soccer-registry/internal/usecase"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func newDedupCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Detect and merge duplicate canonical rows",
	}
	cmd.AddCommand(newDedupReportCommand(rt), newDedupMergeCommand(rt))
	return cmd
}

func newDedupReportCommand(rt *runtime) *cobra.Command {
	var (
		entity   string
		detector string
		all      bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report duplicate groups without changing anything",
		Example: `  registry dedup report --all
  registry dedup report --entity team --detector fuzzy-review --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := startCommandSpan(cmd, attribute.String("dedup.entity", entity), attribute.Bool("dedup.all", all))
			defer func() { endCommandSpan(span, err) }()

			if !all && entity == "" {
				return errors.New("--entity is required unless --all is set")
			}
			a, err := rt.get(ctx)
			if err != nil {
				return err
			}

			var reports []dedup.Report
			if all {
				if reports, err = a.Dedup.ReportAll(ctx); err != nil {
					return err
				}
			} else {
				entityType, err := dedup.ParseEntityType(entity)
				if err != nil {
					return err
				}
				detectors := dedup.DetectorsFor(entityType)
				if detector != "" {
					d, err := dedup.ParseDetector(entityType, detector)
					if err != nil {
						return err
					}
					detectors = []dedup.Detector{d}
				}
				for _, d := range detectors {
					report, err := a.Dedup.Report(ctx, entityType, d)
					if err != nil {
						return err
					}
					reports = append(reports, report)
				}
			}

			var body []byte
			if asJSON {
				if body, err = renderReportsJSON(reports); err != nil {
					return err
				}
			} else {
				body = renderReports(reports, a.Dedup.Thresholds())
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "team, fixture or event")
	cmd.Flags().StringVar(&detector, "detector", "", "detector to run (default every detector of the entity)")
	cmd.Flags().BoolVar(&all, "all", false, "run every detector of every entity type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

func newDedupMergeCommand(rt *runtime) *cobra.Command {
	var (
		entity   string
		detector string
		dryRun   bool
		verbose  bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the duplicate groups one detector finds",
		Example: `  registry dedup merge --entity team --detector same-name --dry-run --verbose
  registry dedup merge --entity fixture --detector exact`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := startCommandSpan(cmd,
				attribute.String("dedup.entity", entity),
				attribute.String("dedup.detector", detector),
				attribute.Bool("dedup.dry_run", dryRun),
			)
			defer func() { endCommandSpan(span, err) }()

			entityType, err := dedup.ParseEntityType(entity)
			if err != nil {
				return err
			}
			d, err := dedup.ParseDetector(entityType, detector)
			if err != nil {
				return err
			}
			a, err := rt.get(ctx)
			if err != nil {
				return err
			}

			var token writeauth.Token
			if !dryRun {
				if token, err = a.GrantWrite(rt.newID()); err != nil {
					return err
				}
			}
			summary, err := a.Merge.Run(ctx, token, usecase.MergeOptions{Entity: entityType, Detector: d, DryRun: dryRun, Limit: limit})
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(renderMergeSummary(summary, verbose)); err != nil {
				return err
			}
			if summary.Failed() {
				return ErrRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "team, fixture or event")
	cmd.Flags().StringVar(&detector, "detector", string(dedup.DetectorExact), "exact, fuzzy-auto or same-name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan merges without writing")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print every group")
	cmd.Flags().IntVar(&limit, "limit", 0, "merge at most N groups")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
