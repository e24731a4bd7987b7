package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stagevote/internal/clock"
	"github.com/smallbiznis/stagevote/internal/config"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/internal/observability/metrics"
	"github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/providers/pdf"
	"github.com/smallbiznis/stagevote/internal/userctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ContestSvc  contestdomain.Service
	PDF         pdf.Provider         `optional:"true"`
	VoteMetrics *metrics.VoteMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	contestSvc  contestdomain.Service
	pdf         pdf.Provider
	voteMetrics *metrics.VoteMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		cfg:         p.Cfg,
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		contestSvc:  p.ContestSvc,
		pdf:         p.PDF,
		voteMetrics: p.VoteMetrics,
	}
}

func (s *Service) CreatePackage(ctx context.Context, req domain.CreatePackageRequest) (domain.VotePackage, error) {
	contest, err := s.ownedPaidContest(ctx, req.ContestID)
	if err != nil {
		return domain.VotePackage{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.VotePackage{}, domain.ErrInvalidName
	}
	if req.VoteCount <= 0 {
		return domain.VotePackage{}, domain.ErrInvalidVoteCount
	}
	if req.Price < 0 {
		return domain.VotePackage{}, domain.ErrInvalidPrice
	}

	now := s.clock.Now()
	pkg := domain.VotePackage{
		ID:        s.genID.Generate(),
		ContestID: contest.ID,
		Name:      name,
		VoteCount: req.VoteCount,
		Price:     req.Price,
		SortOrder: req.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertPackage(ctx, s.db, &pkg); err != nil {
		return domain.VotePackage{}, err
	}

	return pkg, nil
}

func (s *Service) UpdatePackage(ctx context.Context, req domain.UpdatePackageRequest) (domain.VotePackage, error) {
	contest, err := s.ownedPaidContest(ctx, req.ContestID)
	if err != nil {
		return domain.VotePackage{}, err
	}

	packageID, err := s.parseID(req.PackageID)
	if err != nil {
		return domain.VotePackage{}, err
	}

	pkg, err := s.repo.FindPackageByID(ctx, s.db, packageID)
	if err != nil {
		return domain.VotePackage{}, err
	}
	if pkg == nil || pkg.ContestID != contest.ID {
		return domain.VotePackage{}, domain.ErrPackageNotFound
	}

	purchased, err := s.repo.CountCompletedOrdersForPackage(ctx, s.db, packageID)
	if err != nil {
		return domain.VotePackage{}, err
	}
	if purchased > 0 {
		return domain.VotePackage{}, domain.ErrPackageImmutable
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.VotePackage{}, domain.ErrInvalidName
		}
		pkg.Name = name
	}
	if req.VoteCount != nil {
		if *req.VoteCount <= 0 {
			return domain.VotePackage{}, domain.ErrInvalidVoteCount
		}
		pkg.VoteCount = *req.VoteCount
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return domain.VotePackage{}, domain.ErrInvalidPrice
		}
		pkg.Price = *req.Price
	}
	if req.SortOrder != nil {
		pkg.SortOrder = *req.SortOrder
	}

	pkg.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdatePackage(ctx, s.db, pkg); err != nil {
		return domain.VotePackage{}, err
	}

	return *pkg, nil
}

func (s *Service) ListPackages(ctx context.Context, contestID string) ([]domain.VotePackage, error) {
	contest, err := s.contestSvc.GetByID(ctx, contestID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListPackages(ctx, s.db, contest.ID)
	if err != nil {
		return nil, err
	}

	packages := make([]domain.VotePackage, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		packages = append(packages, *item)
	}
	return packages, nil
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.VoteOrder, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.VoteOrder{}, domain.ErrInvalidUser
	}

	contest, err := s.contestSvc.GetByID(ctx, req.ContestID)
	if err != nil {
		return domain.VoteOrder{}, err
	}
	if contest.VotingType != contestdomain.VotingTypePaid {
		return domain.VoteOrder{}, domain.ErrNotPaidContest
	}

	var (
		packageID *snowflake.ID
		total     int64
		voteCount int
	)

	if strings.TrimSpace(req.PackageID) != "" {
		if !contest.VotePackagesEnabled {
			return domain.VoteOrder{}, domain.ErrPackagesDisabled
		}
		id, err := s.parseID(req.PackageID)
		if err != nil {
			return domain.VoteOrder{}, err
		}
		pkg, err := s.repo.FindPackageByID(ctx, s.db, id)
		if err != nil {
			return domain.VoteOrder{}, err
		}
		if pkg == nil || pkg.ContestID != contest.ID {
			return domain.VoteOrder{}, domain.ErrPackageNotFound
		}
		packageID = &pkg.ID
		total = pkg.Price
		voteCount = pkg.VoteCount
	} else {
		if contest.VotePackagesEnabled {
			return domain.VoteOrder{}, domain.ErrPackageRequired
		}
		if contest.DefaultVotePrice == nil || *contest.DefaultVotePrice <= 0 {
			return domain.VoteOrder{}, domain.ErrInvalidPrice
		}
		quantity := req.Quantity
		if quantity <= 0 {
			return domain.VoteOrder{}, domain.ErrInvalidQuantity
		}
		total = *contest.DefaultVotePrice * int64(quantity)
		voteCount = quantity
	}

	now := s.clock.Now()
	order := domain.VoteOrder{
		ID:             s.genID.Generate(),
		UserID:         userID,
		ContestID:      contest.ID,
		VotePackageID:  packageID,
		TotalAmount:    total,
		PlatformFee:    platformFee(total, s.cfg.PlatformFeePercent),
		Currency:       contest.Currency,
		VoteCount:      voteCount,
		VotesUsed:      0,
		VotesRemaining: voteCount,
		PaymentStatus:  domain.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &order); err != nil {
		return domain.VoteOrder{}, err
	}

	s.voteMetrics.RecordOrderTransition(string(domain.PaymentStatusPending))
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.VoteOrder, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.VoteOrder{}, domain.ErrInvalidUser
	}

	orderID, err := s.parseID(id)
	if err != nil {
		return domain.VoteOrder{}, err
	}

	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.VoteOrder{}, err
	}
	if order == nil {
		return domain.VoteOrder{}, domain.ErrNotFound
	}
	if order.UserID != userID {
		return domain.VoteOrder{}, domain.ErrNotOwner
	}

	return *order, nil
}

func (s *Service) ListMyOrders(ctx context.Context, contestID string) ([]domain.VoteOrder, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}

	var filterID snowflake.ID
	if strings.TrimSpace(contestID) != "" {
		id, err := s.parseID(contestID)
		if err != nil {
			return nil, err
		}
		filterID = id
	}

	items, err := s.repo.ListByUser(ctx, s.db, userID, filterID)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.VoteOrder, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		orders = append(orders, *item)
	}
	return orders, nil
}

func (s *Service) CompletePayment(ctx context.Context, req domain.CompletePaymentRequest) (domain.VoteOrder, error) {
	return s.transition(ctx, req.OrderID, domain.PaymentStatusCompleted, strings.TrimSpace(req.PaymentRef))
}

func (s *Service) FailPayment(ctx context.Context, orderID string) (domain.VoteOrder, error) {
	return s.transition(ctx, orderID, domain.PaymentStatusFailed, "")
}

func (s *Service) transition(ctx context.Context, id string, to domain.PaymentStatus, paymentRef string) (domain.VoteOrder, error) {
	orderID, err := s.parseID(id)
	if err != nil {
		return domain.VoteOrder{}, err
	}

	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return domain.VoteOrder{}, err
	}
	if order == nil {
		return domain.VoteOrder{}, domain.ErrNotFound
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, s.db, orderID, domain.PaymentStatusPending, to, paymentRef)
	if err != nil {
		return domain.VoteOrder{}, err
	}
	if !updated {
		return domain.VoteOrder{}, domain.ErrInvalidTransition
	}

	order.PaymentStatus = to
	if paymentRef != "" {
		order.PaymentRef = paymentRef
	}

	s.voteMetrics.RecordOrderTransition(string(to))
	s.log.Info("vote order payment transition",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(to)),
	)
	return *order, nil
}

func (s *Service) ownedPaidContest(ctx context.Context, contestID string) (contestdomain.Contest, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return contestdomain.Contest{}, domain.ErrInvalidUser
	}

	contest, err := s.contestSvc.GetByID(ctx, contestID)
	if err != nil {
		return contestdomain.Contest{}, err
	}
	if contest.OrganizerID != userID {
		return contestdomain.Contest{}, domain.ErrNotOwner
	}
	if contest.VotingType != contestdomain.VotingTypePaid {
		return contestdomain.Contest{}, domain.ErrNotPaidContest
	}
	return contest, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// platformFee computes fee = amount * percent / 100, rounded half up.
func platformFee(amount int64, percent float64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return int64(math.Round(float64(amount) * percent / 100))
}
