package service

import (
	"context"
	"math"
	"sort"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/results/domain"
	"github.com/smallbiznis/stagevote/internal/userctx"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	ContestRepo contestdomain.Repository
	OrderRepo   orderdomain.Repository
	VoteRepo    votedomain.Repository
}

type resultsService struct {
	db          *gorm.DB
	log         *zap.Logger
	contestRepo contestdomain.Repository
	orderRepo   orderdomain.Repository
	voteRepo    votedomain.Repository
}

func New(p Params) domain.Service {
	return &resultsService{
		db:          p.DB,
		log:         p.Log.Named("results.service"),
		contestRepo: p.ContestRepo,
		orderRepo:   p.OrderRepo,
		voteRepo:    p.VoteRepo,
	}
}

func (s *resultsService) Aggregate(ctx context.Context, contestID snowflake.ID) (*domain.Results, error) {
	contest, err := s.loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	organizerID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrNotOwner
	}
	if contest.OrganizerID != organizerID {
		return nil, domain.ErrNotOwner
	}

	results, err := s.scoreboard(ctx, contest, false)
	if err != nil {
		return nil, err
	}

	if contest.VotingType == contestdomain.VotingTypePaid {
		revenue, err := s.orderRepo.RevenueByContest(ctx, s.db, contest.ID)
		if err != nil {
			return nil, err
		}
		results.Revenue = &domain.Revenue{
			TotalRevenue:    revenue.TotalAmount,
			PlatformFee:     revenue.PlatformFee,
			NetRevenue:      revenue.TotalAmount - revenue.PlatformFee,
			CompletedOrders: revenue.OrderCount,
			Currency:        contest.Currency,
		}
	}
	return results, nil
}

func (s *resultsService) PublicResults(ctx context.Context, contestID snowflake.ID) (*domain.Results, error) {
	contest, err := s.loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !contest.ShowLiveResults {
		return nil, domain.ErrResultsHidden
	}
	return s.scoreboard(ctx, contest, true)
}

func (s *resultsService) loadContest(ctx context.Context, contestID snowflake.ID) (*contestdomain.Contest, error) {
	if contestID == 0 {
		return nil, domain.ErrInvalidID
	}
	contest, err := s.contestRepo.FindByID(ctx, s.db, contestID)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, domain.ErrNotFound
	}
	return contest, nil
}

// scoreboard counts every vote in the contest, including votes held by
// inactive contestants, so percentages stay stable when someone is
// disqualified. activeOnly only filters which rows are returned.
func (s *resultsService) scoreboard(ctx context.Context, contest *contestdomain.Contest, activeOnly bool) (*domain.Results, error) {
	contestants, err := s.contestRepo.ListContestants(ctx, s.db, contest.ID, false)
	if err != nil {
		return nil, err
	}

	counts, err := s.voteRepo.CountByContestant(ctx, s.db, contest.ID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	rows := make([]domain.ContestantResult, 0, len(contestants))
	for _, c := range contestants {
		if activeOnly && c.Status != contestdomain.ContestantStatusActive {
			continue
		}
		rows = append(rows, domain.ContestantResult{
			ContestantID:  c.ID,
			ContestNumber: c.ContestNumber,
			Name:          c.Name,
			PhotoURL:      c.PhotoURL,
			Status:        c.Status,
			VoteCount:     counts[c.ID],
			Percentage:    percentage(counts[c.ID], total),
		})
	}

	// Positional rank: ties do not share a rank, the earlier contest
	// number wins the lower rank.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].VoteCount != rows[j].VoteCount {
			return rows[i].VoteCount > rows[j].VoteCount
		}
		return rows[i].ContestNumber < rows[j].ContestNumber
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return &domain.Results{
		ContestID:   contest.ID,
		TotalVotes:  total,
		Contestants: rows,
	}, nil
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
