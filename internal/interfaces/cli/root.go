// Package cli is the operator surface of the registry pipeline: ingestion,
// duplicate reports, merges and audit lookups.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/riskibarqy/soccer-registry/internal/app"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrRunFailed is returned when a run completed but some batch or group failed.
var ErrRunFailed = errors.New("run finished with failures")

// Opener builds the application on first use so --help never touches the store.
type Opener func(ctx context.Context) (*app.App, error)

var cliTracer = otel.Tracer("soccer-registry/internal/interfaces/cli")

type runtime struct {
	open  Opener
	app   *app.App
	newID func() string
}

func (r *runtime) get(ctx context.Context) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	a, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

func (r *runtime) close(ctx context.Context) error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close(ctx)
	r.app = nil
	return err
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, open Opener, args []string, stdout, stderr io.Writer) int {
	rt := &runtime{open: open, newID: uuid.NewString}
	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := rt.close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		if !errors.Is(err, ErrRunFailed) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "registry",
		Short:         "Canonical registry for youth-soccer feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIngestCommand(rt),
		newDedupCommand(rt),
		newAuditCommand(rt),
	)
	return root
}

// startCommandSpan opens the root span of one CLI invocation.
func startCommandSpan(cmd *cobra.Command, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return cliTracer.Start(cmd.Context(), "cli."+cmd.CommandPath(), trace.WithAttributes(attrs...))
}

func endCommandSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrRunFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
