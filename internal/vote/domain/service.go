package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CastFreeRequest struct {
	ContestID    snowflake.ID `json:"contest_id"`
	ContestantID snowflake.ID `json:"contestant_id"`
}

type CastPaidRequest struct {
	ContestID    snowflake.ID `json:"contest_id"`
	ContestantID snowflake.ID `json:"contestant_id"`
	OrderID      snowflake.ID `json:"order_id"`
}

type Service interface {
	// CastFree evaluates and records a free vote for a member or guest.
	// Business refusals come back as *RejectionError.
	CastFree(ctx context.Context, req CastFreeRequest) (*Vote, error)

	// CastPaid evaluates and records a paid vote drawn from the member's
	// order, decrementing the order balance in the same transaction.
	CastPaid(ctx context.Context, req CastPaidRequest) (*Vote, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrContestNotFound    = errors.New("contest_not_found")
	ErrContestantNotFound = errors.New("contestant_not_found")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrLoginRequired      = errors.New("login_required")
)
