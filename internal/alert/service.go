package alert

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailpulse/internal/alert/domain"
	"github.com/smallbiznis/retailpulse/internal/dashboard"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const openAlertLimit = 50

// Service persists operational alerts and relays them to dashboard viewers.
type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	genID       *snowflake.Node
	broadcaster dashboard.Broadcaster
}

func NewService(db *gorm.DB, log *zap.Logger, repo domain.Repository, genID *snowflake.Node, broadcaster dashboard.Broadcaster) *Service {
	return &Service{
		db:          db,
		log:         log.Named("alert"),
		repo:        repo,
		genID:       genID,
		broadcaster: broadcaster,
	}
}

func (s *Service) Raise(ctx context.Context, tenantID string, kind domain.AlertKind, severity domain.AlertSeverity, message string) (*domain.Alert, error) {
	record := &domain.Alert{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("alert raised",
		zap.String("tenant_id", tenantID),
		zap.String("kind", string(kind)),
		zap.String("severity", string(severity)),
	)
	s.broadcaster.Publish(dashboard.Event{
		Type:     dashboard.EventAlertCreated,
		TenantID: tenantID,
		Payload:  record,
	})
	return record, nil
}

func (s *Service) Resolve(ctx context.Context, tenantID string, id snowflake.ID) error {
	now := time.Now().UTC()
	if err := s.repo.Resolve(ctx, s.db, tenantID, id, now); err != nil {
		return err
	}
	s.broadcaster.Publish(dashboard.Event{
		Type:     dashboard.EventAlertResolved,
		TenantID: tenantID,
		Payload:  map[string]any{"id": id.String(), "resolved_at": now},
	})
	return nil
}

// ResolveOpenByKind closes every open alert of one kind for the tenant.
// Used when the condition that raised them has cleared, e.g. the pipeline
// returning to healthy.
func (s *Service) ResolveOpenByKind(ctx context.Context, tenantID string, kind domain.AlertKind) error {
	open, err := s.repo.ListOpenByKind(ctx, s.db, tenantID, kind, openAlertLimit)
	if err != nil {
		return err
	}
	for _, record := range open {
		if err := s.Resolve(ctx, tenantID, record.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ListOpen(ctx context.Context, tenantID string) ([]domain.Alert, error) {
	return s.repo.ListOpen(ctx, s.db, tenantID, openAlertLimit)
}
