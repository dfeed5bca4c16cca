package cli

import (
	"errors"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

func newAuditCommand(rt *runtime) *cobra.Command {
	var (
		entityID string
		runID    string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit records for an entity or a pipeline run",
		Example: `  registry audit --entity-id 3f0c...
  registry audit --run-id 9b1e... --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, span := startCommandSpan(cmd, attribute.String("audit.entity_id", entityID), attribute.String("audit.run_id", runID))
			defer func() { endCommandSpan(span, err) }()

			if (entityID == "") == (runID == "") {
				return errors.New("exactly one of --entity-id or --run-id is required")
			}
			a, err := rt.get(ctx)
			if err != nil {
				return err
			}

			var records []audit.Record
			if entityID != "" {
				records, err = a.Audit.ListByEntity(ctx, entityID)
			} else {
				records, err = a.Audit.ListByRun(ctx, runID)
			}
			if err != nil {
				return err
			}

			var body []byte
			if asJSON {
				if body, err = renderAuditJSON(records); err != nil {
					return err
				}
			} else {
				body = renderAudit(records)
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&entityID, "entity-id", "", "team, fixture or event id")
	cmd.Flags().StringVar(&runID, "run-id", "", "pipeline run id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON, snapshots included")
	return cmd
}
