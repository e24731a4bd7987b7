package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/stagevote/pkg/db/pagination"
)

type CreateContestRequest struct {
	Title               string
	Description         string
	VotingType          string
	VotingStartAt       *time.Time
	VotingEndAt         *time.Time
	AllowGuestVoting    bool
	AllowMultipleVotes  bool
	MaxVotesPerUser     *int
	VotePackagesEnabled bool
	DefaultVotePrice    *int64
	Currency            string
	ShowLiveResults     bool
	ShowVoterNames      bool
}

type UpdateContestRequest struct {
	ID                  string
	Title               *string
	Description         *string
	VotingStartAt       *time.Time
	VotingEndAt         *time.Time
	AllowGuestVoting    *bool
	AllowMultipleVotes  *bool
	MaxVotesPerUser     *int
	ShowLiveResults     *bool
	ShowVoterNames      *bool
}

type ListContestRequest struct {
	PageToken  string
	PageSize   int32
	VotingType string
}

type ListContestResponse struct {
	pagination.PageInfo
	Contests []Contest `json:"contests"`
}

type AddContestantRequest struct {
	ContestID     string
	ContestNumber int
	Name          string
	Bio           string
	PhotoURL      string
}

type SetContestantStatusRequest struct {
	ContestID    string
	ContestantID string
	Status       string
}

type Service interface {
	Create(context.Context, CreateContestRequest) (Contest, error)
	Update(context.Context, UpdateContestRequest) (Contest, error)
	List(context.Context, ListContestRequest) (ListContestResponse, error)
	GetByID(ctx context.Context, id string) (Contest, error)

	AddContestant(context.Context, AddContestantRequest) (Contestant, error)
	SetContestantStatus(context.Context, SetContestantStatusRequest) (Contestant, error)
	// Roster returns the public contestant list; disqualified and withdrawn
	// contestants are excluded.
	Roster(ctx context.Context, contestID string) ([]Contestant, error)
}

var (
	ErrInvalidUser            = errors.New("invalid_user")
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrInvalidVotingType      = errors.New("invalid_voting_type")
	ErrInvalidVotingWindow    = errors.New("invalid_voting_window")
	ErrInvalidVotePrice       = errors.New("invalid_vote_price")
	ErrInvalidVoteLimit       = errors.New("invalid_vote_limit")
	ErrInvalidContestNumber   = errors.New("invalid_contest_number")
	ErrInvalidContestantName  = errors.New("invalid_contestant_name")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrDuplicateContestNumber = errors.New("duplicate_contest_number")
	ErrNotOwner               = errors.New("not_owner")
	ErrNotFound               = errors.New("not_found")
	ErrContestantNotFound     = errors.New("contestant_not_found")
)
