package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stagevote/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, pkg *domain.VotePackage) error {
	return db.WithContext(ctx).Create(pkg).Error
}

func (r *repo) UpdatePackage(ctx context.Context, db *gorm.DB, pkg *domain.VotePackage) error {
	return db.WithContext(ctx).Save(pkg).Error
}

func (r *repo) FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.VotePackage, error) {
	var pkg domain.VotePackage
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&pkg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB, contestID snowflake.ID) ([]*domain.VotePackage, error) {
	var packages []*domain.VotePackage
	err := db.WithContext(ctx).
		Model(&domain.VotePackage{}).
		Where("contest_id = ?", contestID).
		Order("sort_order asc, price asc").
		Find(&packages).Error
	if err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *repo) CountCompletedOrdersForPackage(ctx context.Context, db *gorm.DB, packageID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.VoteOrder{}).
		Where("vote_package_id = ? AND payment_status = ?", packageID, domain.PaymentStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.VoteOrder) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.VoteOrder, error) {
	var order domain.VoteOrder
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID, contestID snowflake.ID) ([]*domain.VoteOrder, error) {
	var orders []*domain.VoteOrder
	stmt := db.WithContext(ctx).
		Model(&domain.VoteOrder{}).
		Where("user_id = ?", userID)
	if contestID != 0 {
		stmt = stmt.Where("contest_id = ?", contestID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdatePaymentStatus transitions payment_status only when the current
// status matches, so a replayed callback cannot re-complete an order.
func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.PaymentStatus, paymentRef string) (bool, error) {
	updates := map[string]any{"payment_status": to}
	if paymentRef != "" {
		updates["payment_ref"] = paymentRef
	}
	result := db.WithContext(ctx).
		Model(&domain.VoteOrder{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ConsumeVote(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE vote_orders
		 SET votes_used = votes_used + 1,
		     votes_remaining = votes_remaining - 1
		 WHERE id = ? AND votes_remaining > 0`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) RevenueByContest(ctx context.Context, db *gorm.DB, contestID snowflake.ID) (domain.Revenue, error) {
	var revenue domain.Revenue
	err := db.WithContext(ctx).
		Model(&domain.VoteOrder{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_amount, COALESCE(SUM(platform_fee), 0) AS platform_fee, COUNT(*) AS order_count").
		Where("contest_id = ? AND payment_status = ?", contestID, domain.PaymentStatusCompleted).
		Scan(&revenue).Error
	if err != nil {
		return domain.Revenue{}, err
	}
	return revenue, nil
}
