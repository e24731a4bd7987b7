package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/pkg/db/option"
	"github.com/smallbiznis/stagevote/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contest *domain.Contest) error {
	return db.WithContext(ctx).Create(contest).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, contest *domain.Contest) error {
	return db.WithContext(ctx).Save(contest).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contest, error) {
	var contest domain.Contest
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&contest).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contest, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListContestFilter, page pagination.Pagination) ([]*domain.Contest, error) {
	var contests []*domain.Contest
	stmt := db.WithContext(ctx).Model(&domain.Contest{})
	if filter.OrganizerID != 0 {
		stmt = stmt.Where("organizer_id = ?", filter.OrganizerID)
	}
	if filter.VotingType != "" {
		stmt = stmt.Where("voting_type = ?", filter.VotingType)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&contests).Error
	if err != nil {
		return nil, err
	}
	return contests, nil
}

func (r *repo) InsertContestant(ctx context.Context, db *gorm.DB, contestant *domain.Contestant) error {
	return db.WithContext(ctx).Create(contestant).Error
}

func (r *repo) UpdateContestantStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.ContestantStatus) error {
	return db.WithContext(ctx).
		Model(&domain.Contestant{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repo) FindContestantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contestant, error) {
	var contestant domain.Contestant
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&contestant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contestant, nil
}

func (r *repo) ListContestants(ctx context.Context, db *gorm.DB, contestID snowflake.ID, activeOnly bool) ([]*domain.Contestant, error) {
	var contestants []*domain.Contestant
	stmt := db.WithContext(ctx).
		Model(&domain.Contestant{}).
		Where("contest_id = ?", contestID)
	if activeOnly {
		stmt = stmt.Where("status = ?", domain.ContestantStatusActive)
	}
	err := stmt.
		Order("contest_number asc").
		Find(&contestants).Error
	if err != nil {
		return nil, err
	}
	return contestants, nil
}
