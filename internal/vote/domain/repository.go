package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// History is the voter-activity snapshot the eligibility rules read.
type History struct {
	GuestVotedInContest bool
	VotedForContestant  bool
	VotesInContest      int64
	FreeVotesInContest  int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vote *Vote) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vote, error)
	ListByContest(ctx context.Context, db *gorm.DB, contestID snowflake.ID, limit int) ([]Vote, error)

	// GuestHistory reports whether a guest vote from ip exists in the contest.
	GuestHistory(ctx context.Context, db *gorm.DB, contestID snowflake.ID, ip string) (bool, error)

	// MemberHistory loads the member's prior activity for the contest and
	// target contestant in one snapshot.
	MemberHistory(ctx context.Context, db *gorm.DB, contestID, contestantID, userID snowflake.ID) (History, error)

	// CountByContestant returns vote counts per contestant for a contest.
	CountByContestant(ctx context.Context, db *gorm.DB, contestID snowflake.ID) (map[snowflake.ID]int64, error)
}
