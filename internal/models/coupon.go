package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Coupon struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	BoardID     string    `gorm:"type:varchar(36);not null;index" json:"board_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Cost        int64     `gorm:"not null" json:"cost"`
	CreatedBy   string    `gorm:"type:varchar(128);not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionDenied   RedemptionStatus = "denied"
)

func (s RedemptionStatus) Valid() bool {
	return s == RedemptionPending || s == RedemptionApproved || s == RedemptionDenied
}

// RedemptionRequest snapshots the coupon cost at request time; refunds use the snapshot.
type RedemptionRequest struct {
	ID          string           `gorm:"type:varchar(36);primarykey" json:"id"`
	BoardID     string           `gorm:"type:varchar(36);not null;index" json:"board_id"`
	UserID      string           `gorm:"type:varchar(128);not null;index" json:"user_id"`
	CouponID    string           `gorm:"type:varchar(36);not null" json:"coupon_id"`
	CouponTitle string           `gorm:"type:varchar(255);not null" json:"coupon_title"`
	Cost        int64            `gorm:"not null" json:"cost"`
	Status      RedemptionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	ProcessedAt *time.Time       `json:"processed_at"`
	ProcessedBy string           `gorm:"type:varchar(128)" json:"processed_by"`
	UpdatedAt   time.Time        `json:"updated_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *RedemptionRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
