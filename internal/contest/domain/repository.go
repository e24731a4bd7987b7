package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stagevote/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListContestFilter struct {
	OrganizerID snowflake.ID
	VotingType  VotingType
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contest *Contest) error
	Update(ctx context.Context, db *gorm.DB, contest *Contest) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contest, error)
	List(ctx context.Context, db *gorm.DB, filter ListContestFilter, page pagination.Pagination) ([]*Contest, error)

	InsertContestant(ctx context.Context, db *gorm.DB, contestant *Contestant) error
	UpdateContestantStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status ContestantStatus) error
	FindContestantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contestant, error)
	ListContestants(ctx context.Context, db *gorm.DB, contestID snowflake.ID, activeOnly bool) ([]*Contestant, error)
}
