package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/soccer-registry/internal/domain/audit"
	"github.com/riskibarqy/soccer-registry/internal/domain/uow"
	"go.opentelemetry.io/otel/attribute"
)

// AuditService reads the append-only audit trail.
type AuditService struct {
	store uow.Store
}

func NewAuditService(store uow.Store) *AuditService {
	return &AuditService{store: store}
}

// ListByEntity returns every record written for one team, fixture or event,
// oldest first.
func (s *AuditService) ListByEntity(ctx context.Context, entityID string) ([]audit.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.ListByEntity", attribute.String("audit.entity_id", entityID))
	defer span.End()

	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidInput)
	}
	items, err := s.store.Read().Audit.ListByEntity(ctx, entityID)
	if err != nil {
		markSpanError(span, err)
		return nil, fmt.Errorf("list audit by entity: %w", err)
	}
	return items, nil
}

// ListByRun returns the records one pipeline run produced.
func (s *AuditService) ListByRun(ctx context.Context, runID string) ([]audit.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.ListByRun", attribute.String("audit.run_id", runID))
	defer span.End()

	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	items, err := s.store.Read().Audit.ListByRun(ctx, runID)
	if err != nil {
		markSpanError(span, err)
		return nil, fmt.Errorf("list audit by run: %w", err)
	}
	return items, nil
}
