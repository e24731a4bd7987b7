package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// VotePackage is a purchasable bundle of paid votes. Price is in minor
// units of the contest currency. Packages become immutable once a
// completed purchase references them.
type VotePackage struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ContestID snowflake.ID `gorm:"not null;index" json:"contest_id"`
	Name      string       `gorm:"not null" json:"name"`
	VoteCount int          `gorm:"not null" json:"vote_count"`
	Price     int64        `gorm:"not null" json:"price"`
	SortOrder int          `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (VotePackage) TableName() string { return "vote_packages" }

// VoteOrder tracks how many paid votes were bought, used, and remain.
// Invariant: VotesUsed + VotesRemaining == VoteCount; VotesRemaining
// never goes negative (enforced by the conditional decrement).
type VoteOrder struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID  `gorm:"not null;index" json:"user_id"`
	ContestID     snowflake.ID  `gorm:"not null;index" json:"contest_id"`
	VotePackageID *snowflake.ID `json:"vote_package_id,omitempty"`
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	PlatformFee   int64         `gorm:"not null" json:"platform_fee"`
	Currency      string        `gorm:"not null;default:'USD'" json:"currency"`
	VoteCount     int           `gorm:"not null" json:"vote_count"`
	VotesUsed     int           `gorm:"not null;default:0" json:"votes_used"`
	VotesRemaining int          `gorm:"not null" json:"votes_remaining"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'PENDING'" json:"payment_status"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (VoteOrder) TableName() string { return "vote_orders" }
