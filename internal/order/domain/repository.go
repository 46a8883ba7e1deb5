package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("order_not_found")

type Repository interface {
	FindByOrderID(ctx context.Context, db *gorm.DB, tenantID, orderID string) (*Order, error)
}
