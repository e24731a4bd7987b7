package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
)

// ContestantResult is one row of the scoreboard.
type ContestantResult struct {
	ContestantID  snowflake.ID                    `json:"contestant_id"`
	ContestNumber int                             `json:"contest_number"`
	Name          string                          `json:"name"`
	PhotoURL      string                          `json:"photo_url,omitempty"`
	Status        contestdomain.ContestantStatus  `json:"status"`
	VoteCount     int64                           `json:"vote_count"`
	Percentage    float64                         `json:"percentage"`
	Rank          int                             `json:"rank"`
}

// Revenue summarizes paid-contest earnings over completed orders.
type Revenue struct {
	TotalRevenue    int64  `json:"total_revenue"`
	PlatformFee     int64  `json:"platform_fee"`
	NetRevenue      int64  `json:"net_revenue"`
	CompletedOrders int64  `json:"completed_orders"`
	Currency        string `json:"currency"`
}

type Results struct {
	ContestID   snowflake.ID       `json:"contest_id"`
	TotalVotes  int64              `json:"total_votes"`
	Contestants []ContestantResult `json:"contestants"`
	Revenue     *Revenue           `json:"revenue,omitempty"`
}

type Service interface {
	// Aggregate computes the full scoreboard for the contest organizer,
	// including inactive contestants and revenue for paid contests.
	Aggregate(ctx context.Context, contestID snowflake.ID) (*Results, error)

	// PublicResults computes the scoreboard shown to voters: active roster
	// only, no revenue. Hidden unless the contest shows live results.
	PublicResults(ctx context.Context, contestID snowflake.ID) (*Results, error)
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("contest_not_found")
	ErrNotOwner      = errors.New("contest_not_owned")
	ErrResultsHidden = errors.New("results_hidden")
)
