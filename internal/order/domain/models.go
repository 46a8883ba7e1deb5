package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Order is the commerce-system row the pipeline reads. Ownership of order
// writes belongs to the upstream commerce layer; the pipeline only fetches
// the customer reference and monetary total by (tenant, order id).
type Order struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID      string       `gorm:"not null;index:idx_order_tenant_order,unique" json:"tenant_id"`
	OrderID       string       `gorm:"not null;index:idx_order_tenant_order,unique" json:"order_id"`
	CustomerID    string       `gorm:"not null;index" json:"customer_id"`
	TotalAmount   int64        `gorm:"not null" json:"total_amount"`
	Currency      string       `gorm:"not null;default:'IDR'" json:"currency"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	Region        string       `json:"region,omitempty"`
	Status        string       `gorm:"not null;default:'created'" json:"status"`
	PlacedAt      time.Time    `gorm:"not null" json:"placed_at"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
