package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is a registered member: a voter, and possibly a contest organizer.
type User struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	Email               string       `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName         string       `gorm:"not null" json:"display_name"`
	PasswordHash        string       `gorm:"type:text;not null" json:"-"`
	LastPasswordChanged *time.Time   `json:"-"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Session is a persisted login session. Only the SHA-256 of the session
// token is stored; the raw token lives in the cookie.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"not null;index"`
	SessionTokenHash string       `gorm:"type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"type:text"`
	IPAddress        string       `gorm:"type:text"`
	ExpiresAt        time.Time    `gorm:"not null;index"`
	RevokedAt        *time.Time
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Session) TableName() string { return "sessions" }
