package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	TypeVoteReceived   NotificationType = "VOTE_RECEIVED"
	TypeOrderCompleted NotificationType = "ORDER_COMPLETED"
)

type Notification struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Type      NotificationType  `gorm:"type:text;not null" json:"type"`
	Title     string            `gorm:"not null" json:"title"`
	Message   string            `json:"message"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
