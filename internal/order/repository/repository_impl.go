package repository

import (
	"context"

	"github.com/smallbiznis/retailpulse/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, tenantID, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}
