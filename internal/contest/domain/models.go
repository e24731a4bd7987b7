package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type VotingType string

const (
	VotingTypeFree VotingType = "FREE"
	VotingTypePaid VotingType = "PAID"
)

type ContestantStatus string

const (
	ContestantStatusActive       ContestantStatus = "ACTIVE"
	ContestantStatusDisqualified ContestantStatus = "DISQUALIFIED"
	ContestantStatusWithdrawn    ContestantStatus = "WITHDRAWN"
)

// Contest is a voting event with contestants and a voting configuration.
// Amounts are stored in minor units of Currency.
type Contest struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrganizerID         snowflake.ID      `gorm:"not null;index" json:"organizer_id"`
	Title               string            `gorm:"not null" json:"title"`
	Description         string            `json:"description,omitempty"`
	VotingType          VotingType        `gorm:"type:text;not null" json:"voting_type"`
	VotingStartAt       *time.Time        `json:"voting_start_at,omitempty"`
	VotingEndAt         *time.Time        `json:"voting_end_at,omitempty"`
	AllowGuestVoting    bool              `gorm:"not null;default:false" json:"allow_guest_voting"`
	AllowMultipleVotes  bool              `gorm:"not null;default:false" json:"allow_multiple_votes"`
	MaxVotesPerUser     *int              `json:"max_votes_per_user,omitempty"`
	VotePackagesEnabled bool              `gorm:"not null;default:false" json:"vote_packages_enabled"`
	DefaultVotePrice    *int64            `json:"default_vote_price,omitempty"`
	Currency            string            `gorm:"not null;default:'USD'" json:"currency"`
	ShowLiveResults     bool              `gorm:"not null;default:true" json:"show_live_results"`
	ShowVoterNames      bool              `gorm:"not null;default:false" json:"show_voter_names"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contest) TableName() string { return "contests" }

// Contestant is a participant eligible to receive votes. ContestNumber is
// unique within a contest.
type Contestant struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	ContestID     snowflake.ID     `gorm:"not null;index;uniqueIndex:idx_contestants_contest_number,priority:1" json:"contest_id"`
	ContestNumber int              `gorm:"not null;uniqueIndex:idx_contestants_contest_number,priority:2" json:"contest_number"`
	Name          string           `gorm:"not null" json:"name"`
	Bio           string           `json:"bio,omitempty"`
	PhotoURL      string           `json:"photo_url,omitempty"`
	Status        ContestantStatus `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contestant) TableName() string { return "contestants" }

func (s ContestantStatus) Valid() bool {
	switch s {
	case ContestantStatusActive, ContestantStatusDisqualified, ContestantStatusWithdrawn:
		return true
	default:
		return false
	}
}

func (t VotingType) Valid() bool {
	return t == VotingTypeFree || t == VotingTypePaid
}
