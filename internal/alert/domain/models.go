package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AlertKind string

const (
	AlertKindPipelineHealth   AlertKind = "pipeline_health"
	AlertKindSegmentPromotion AlertKind = "segment_promotion"
	AlertKindDataQuality      AlertKind = "data_quality"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID   string        `gorm:"not null;index" json:"tenant_id"`
	Kind       AlertKind     `gorm:"not null" json:"kind"`
	Severity   AlertSeverity `gorm:"not null" json:"severity"`
	Message    string        `gorm:"not null" json:"message"`
	Resolved   bool          `gorm:"not null;default:false;index" json:"resolved"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, alert *Alert) error
	Resolve(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID, at time.Time) error
	ListOpen(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]Alert, error)
	ListOpenByKind(ctx context.Context, db *gorm.DB, tenantID string, kind AlertKind, limit int) ([]Alert, error)
}
