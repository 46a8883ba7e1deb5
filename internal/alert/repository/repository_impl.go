package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailpulse/internal/alert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, alert *domain.Alert) error {
	return db.WithContext(ctx).Create(alert).Error
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("tenant_id = ? AND id = ? AND resolved = ?", tenantID, id, false).
		Updates(map[string]any{"resolved": true, "resolved_at": at}).Error
}

func (r *repo) ListOpenByKind(ctx context.Context, db *gorm.DB, tenantID string, kind domain.AlertKind, limit int) ([]domain.Alert, error) {
	var rows []domain.Alert
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND resolved = ?", tenantID, kind, false).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB, tenantID string, limit int) ([]domain.Alert, error) {
	var rows []domain.Alert
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND resolved = ?", tenantID, false).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
