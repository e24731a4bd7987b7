package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/stagevote/internal/vote/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vote *domain.Vote) error {
	return db.WithContext(ctx).Create(vote).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vote, error) {
	var vote domain.Vote
	if err := db.WithContext(ctx).Take(&vote, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (r *repo) ListByContest(ctx context.Context, db *gorm.DB, contestID snowflake.ID, limit int) ([]domain.Vote, error) {
	votes := make([]domain.Vote, 0)
	q := db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *repo) GuestHistory(ctx context.Context, db *gorm.DB, contestID snowflake.ID, ip string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("contest_id = ? AND ip_address = ? AND user_id IS NULL", contestID, ip).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) MemberHistory(ctx context.Context, db *gorm.DB, contestID, contestantID, userID snowflake.ID) (domain.History, error) {
	var h domain.History

	var rows []struct {
		ContestantID snowflake.ID
		VoteType     domain.VoteType
	}
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("contestant_id", "vote_type").
		Where("contest_id = ? AND user_id = ?", contestID, userID).
		Find(&rows).Error
	if err != nil {
		return h, err
	}

	for _, row := range rows {
		h.VotesInContest++
		if row.VoteType == domain.VoteTypeFree {
			h.FreeVotesInContest++
			if row.ContestantID == contestantID {
				h.VotedForContestant = true
			}
		}
	}
	return h, nil
}

func (r *repo) CountByContestant(ctx context.Context, db *gorm.DB, contestID snowflake.ID) (map[snowflake.ID]int64, error) {
	var rows []struct {
		ContestantID snowflake.ID
		Total        int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Select("contestant_id", "COUNT(*) AS total").
		Where("contest_id = ?", contestID).
		Group("contestant_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[snowflake.ID]int64, len(rows))
	for _, row := range rows {
		counts[row.ContestantID] = row.Total
	}
	return counts, nil
}
