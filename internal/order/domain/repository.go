package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPackage(ctx context.Context, db *gorm.DB, pkg *VotePackage) error
	UpdatePackage(ctx context.Context, db *gorm.DB, pkg *VotePackage) error
	FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*VotePackage, error)
	ListPackages(ctx context.Context, db *gorm.DB, contestID snowflake.ID) ([]*VotePackage, error)
	CountCompletedOrdersForPackage(ctx context.Context, db *gorm.DB, packageID snowflake.ID) (int64, error)

	Insert(ctx context.Context, db *gorm.DB, order *VoteOrder) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*VoteOrder, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID, contestID snowflake.ID) ([]*VoteOrder, error)
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to PaymentStatus, paymentRef string) (bool, error)

	// ConsumeVote decrements votes_remaining by one, guarded so the counter
	// cannot go negative under concurrent casts. Returns false when no vote
	// was available to consume.
	ConsumeVote(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	// RevenueByContest sums total_amount and platform_fee over COMPLETED
	// orders for the contest.
	RevenueByContest(ctx context.Context, db *gorm.DB, contestID snowflake.ID) (Revenue, error)
}

// Revenue is the aggregate over a contest's completed orders.
type Revenue struct {
	TotalAmount int64
	PlatformFee int64
	OrderCount  int64
}
