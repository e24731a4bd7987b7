package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type VoteType string

const (
	VoteTypeFree VoteType = "FREE"
	VoteTypePaid VoteType = "PAID"
)

// Vote is an append-only record of a single cast vote. Rows are never
// updated or deleted; disqualified contestants keep their historical votes.
type Vote struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	ContestID    snowflake.ID  `gorm:"not null;index" json:"contest_id"`
	ContestantID snowflake.ID  `gorm:"not null;index" json:"contestant_id"`
	UserID       *snowflake.ID `json:"user_id,omitempty"`
	VoteOrderID  *snowflake.ID `json:"vote_order_id,omitempty"`
	VoteType     VoteType      `gorm:"type:text;not null" json:"vote_type"`
	IPAddress    string        `gorm:"not null" json:"ip_address"`
	UserAgent    string        `json:"user_agent,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Vote) TableName() string { return "votes" }

type VoterKind string

const (
	VoterKindMember VoterKind = "member"
	VoterKindGuest  VoterKind = "guest"
)

// Voter identifies who is casting: a member by user ID, or a guest by IP.
type Voter struct {
	Kind      VoterKind
	UserID    snowflake.ID // set for members
	IPAddress string
	UserAgent string
}

func MemberVoter(userID snowflake.ID, ip, userAgent string) Voter {
	return Voter{Kind: VoterKindMember, UserID: userID, IPAddress: ip, UserAgent: userAgent}
}

func GuestVoter(ip, userAgent string) Voter {
	return Voter{Kind: VoterKindGuest, IPAddress: ip, UserAgent: userAgent}
}
