package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Segment labels, ordered highest tier first.
const (
	SegmentVIP     = "vip"
	SegmentLoyal   = "loyal"
	SegmentRegular = "regular"
	SegmentNew     = "new"
)

// Payment preference buckets.
const (
	PaymentQRIS         = "qris"
	PaymentEwallet      = "ewallet"
	PaymentBankTransfer = "bank_transfer"
	PaymentCreditCard   = "credit_card"
	PaymentCOD          = "cod"
)

// Digital maturity tiers.
const (
	MaturityBasic        = "basic"
	MaturityIntermediate = "intermediate"
	MaturityAdvanced     = "advanced"
)

// CustomerProfile is the continuously-updated aggregate for one customer
// within a tenant. AvgOrderValue is always derived from LifetimeSpend and
// OrderCount, never written independently.
type CustomerProfile struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID         string            `gorm:"not null;index:idx_profile_tenant_customer,unique" json:"tenant_id"`
	CustomerID       string            `gorm:"not null;index:idx_profile_tenant_customer,unique" json:"customer_id"`
	LifetimeSpend    int64             `gorm:"not null;default:0" json:"lifetime_spend"`
	OrderCount       int64             `gorm:"not null;default:0" json:"order_count"`
	AvgOrderValue    int64             `gorm:"not null;default:0" json:"avg_order_value"`
	LastOrderAt      *time.Time        `json:"last_order_at,omitempty"`
	Segment          string            `gorm:"not null;default:'new';index" json:"segment"`
	SeasonalShopper  bool              `gorm:"not null;default:false" json:"seasonal_shopper"`
	PreferredPayment string            `gorm:"not null;default:''" json:"preferred_payment"`
	DigitalMaturity  string            `gorm:"not null;default:'basic'" json:"digital_maturity"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Transaction is the immutable record of one monetary commerce event.
// The unique (tenant_id, order_id) index is the pipeline's idempotency
// guard and must exist at the store layer.
type Transaction struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID      string       `gorm:"not null;index:idx_tx_tenant_order,unique" json:"tenant_id"`
	OrderID       string       `gorm:"not null;index:idx_tx_tenant_order,unique" json:"order_id"`
	CustomerID    string       `gorm:"not null;index" json:"customer_id"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Currency      string       `gorm:"not null;default:'IDR'" json:"currency"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	Region        string       `json:"region,omitempty"`
	Source        string       `gorm:"not null;default:''" json:"source"`
	OccurredAt    time.Time    `gorm:"not null;index" json:"occurred_at"`
	TimeOfDay     string       `json:"time_of_day"`
	DayOfWeek     string       `json:"day_of_week"`
	Weekend       bool         `json:"weekend"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
