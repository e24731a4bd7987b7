package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	contestrepository "github.com/smallbiznis/stagevote/internal/contest/repository"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	orderrepository "github.com/smallbiznis/stagevote/internal/order/repository"
	"github.com/smallbiznis/stagevote/internal/results/domain"
	"github.com/smallbiznis/stagevote/internal/userctx"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
	voterepository "github.com/smallbiznis/stagevote/internal/vote/repository"
)

type fixture struct {
	db    *gorm.DB
	genID *snowflake.Node
	svc   domain.Service
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := gdb.AutoMigrate(
		&contestdomain.Contest{},
		&contestdomain.Contestant{},
		&orderdomain.VoteOrder{},
		&votedomain.Vote{},
	); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	svc := New(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		ContestRepo: contestrepository.Provide(),
		OrderRepo:   orderrepository.Provide(),
		VoteRepo:    voterepository.Provide(),
	})
	return &fixture{db: gdb, genID: node, svc: svc}
}

func (f *fixture) seedContest(t *testing.T, mutate func(*contestdomain.Contest)) *contestdomain.Contest {
	t.Helper()
	contest := &contestdomain.Contest{
		ID:              f.genID.Generate(),
		OrganizerID:     f.genID.Generate(),
		Title:           "Spring Showcase",
		VotingType:      contestdomain.VotingTypeFree,
		ShowLiveResults: true,
		Currency:        "USD",
	}
	if mutate != nil {
		mutate(contest)
	}
	if err := f.db.Create(contest).Error; err != nil {
		t.Fatal(err)
	}
	return contest
}

func (f *fixture) seedContestant(t *testing.T, contestID snowflake.ID, number int) *contestdomain.Contestant {
	t.Helper()
	contestant := &contestdomain.Contestant{
		ID:            f.genID.Generate(),
		ContestID:     contestID,
		ContestNumber: number,
		Name:          fmt.Sprintf("Contestant %d", number),
		Status:        contestdomain.ContestantStatusActive,
	}
	if err := f.db.Create(contestant).Error; err != nil {
		t.Fatal(err)
	}
	return contestant
}

func (f *fixture) seedVotes(t *testing.T, contestID, contestantID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		userID := f.genID.Generate()
		vote := &votedomain.Vote{
			ID:           f.genID.Generate(),
			ContestID:    contestID,
			ContestantID: contestantID,
			UserID:       &userID,
			VoteType:     votedomain.VoteTypeFree,
			IPAddress:    "10.0.0.1",
			CreatedAt:    time.Now().UTC(),
		}
		if err := f.db.Create(vote).Error; err != nil {
			t.Fatal(err)
		}
	}
}

func organizerCtx(contest *contestdomain.Contest) context.Context {
	return userctx.WithUserID(context.Background(), contest.OrganizerID)
}

func TestAggregate_PercentagesAndRanks(t *testing.T) {
	f := newFixture(t, "resultsRanks")
	contest := f.seedContest(t, nil)
	first := f.seedContestant(t, contest.ID, 1)
	second := f.seedContestant(t, contest.ID, 2)
	third := f.seedContestant(t, contest.ID, 3)
	f.seedVotes(t, contest.ID, first.ID, 30)
	f.seedVotes(t, contest.ID, second.ID, 20)
	f.seedVotes(t, contest.ID, third.ID, 10)

	results, err := f.svc.Aggregate(organizerCtx(contest), contest.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 60, results.TotalVotes)
	assert.Len(t, results.Contestants, 3)

	assert.Equal(t, []float64{50.00, 33.33, 16.67}, []float64{
		results.Contestants[0].Percentage,
		results.Contestants[1].Percentage,
		results.Contestants[2].Percentage,
	})
	for i, want := range []snowflake.ID{first.ID, second.ID, third.ID} {
		assert.Equal(t, want, results.Contestants[i].ContestantID)
		assert.Equal(t, i+1, results.Contestants[i].Rank)
	}
	assert.Nil(t, results.Revenue)
}

func TestAggregate_ZeroVotes(t *testing.T) {
	f := newFixture(t, "resultsZero")
	contest := f.seedContest(t, nil)
	f.seedContestant(t, contest.ID, 1)
	f.seedContestant(t, contest.ID, 2)

	results, err := f.svc.Aggregate(organizerCtx(contest), contest.ID)
	assert.NoError(t, err)
	assert.EqualValues(t, 0, results.TotalVotes)
	for _, row := range results.Contestants {
		assert.EqualValues(t, 0, row.VoteCount)
		assert.Equal(t, 0.0, row.Percentage)
	}
}

func TestAggregate_TiesGetPositionalRanks(t *testing.T) {
	f := newFixture(t, "resultsTies")
	contest := f.seedContest(t, nil)
	first := f.seedContestant(t, contest.ID, 1)
	second := f.seedContestant(t, contest.ID, 2)
	f.seedVotes(t, contest.ID, first.ID, 5)
	f.seedVotes(t, contest.ID, second.ID, 5)

	results, err := f.svc.Aggregate(organizerCtx(contest), contest.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, results.Contestants[0].Rank)
	assert.Equal(t, 2, results.Contestants[1].Rank)
	assert.Equal(t, first.ID, results.Contestants[0].ContestantID)
}

func TestAggregate_RevenueForPaidContest(t *testing.T) {
	f := newFixture(t, "resultsRevenue")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
	})
	f.seedContestant(t, contest.ID, 1)

	userID := f.genID.Generate()
	for _, o := range []struct {
		amount, fee int64
		status      orderdomain.PaymentStatus
	}{
		{1000, 100, orderdomain.PaymentStatusCompleted},
		{2000, 200, orderdomain.PaymentStatusCompleted},
		{5000, 500, orderdomain.PaymentStatusPending},
		{3000, 300, orderdomain.PaymentStatusFailed},
	} {
		order := &orderdomain.VoteOrder{
			ID:             f.genID.Generate(),
			UserID:         userID,
			ContestID:      contest.ID,
			TotalAmount:    o.amount,
			PlatformFee:    o.fee,
			Currency:       "USD",
			VoteCount:      10,
			VotesRemaining: 10,
			PaymentStatus:  o.status,
		}
		if err := f.db.Create(order).Error; err != nil {
			t.Fatal(err)
		}
	}

	results, err := f.svc.Aggregate(organizerCtx(contest), contest.ID)
	assert.NoError(t, err)
	if assert.NotNil(t, results.Revenue) {
		assert.EqualValues(t, 3000, results.Revenue.TotalRevenue)
		assert.EqualValues(t, 300, results.Revenue.PlatformFee)
		assert.EqualValues(t, 2700, results.Revenue.NetRevenue)
		assert.EqualValues(t, 2, results.Revenue.CompletedOrders)
	}
}

func TestAggregate_OwnershipRequired(t *testing.T) {
	f := newFixture(t, "resultsOwner")
	contest := f.seedContest(t, nil)

	_, err := f.svc.Aggregate(userctx.WithUserID(context.Background(), f.genID.Generate()), contest.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = f.svc.Aggregate(context.Background(), contest.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestPublicResults(t *testing.T) {
	f := newFixture(t, "resultsPublic")
	contest := f.seedContest(t, nil)
	active := f.seedContestant(t, contest.ID, 1)
	disqualified := f.seedContestant(t, contest.ID, 2)
	f.db.Model(&contestdomain.Contestant{}).
		Where("id = ?", disqualified.ID).
		Update("status", contestdomain.ContestantStatusDisqualified)
	f.seedVotes(t, contest.ID, active.ID, 3)
	f.seedVotes(t, contest.ID, disqualified.ID, 1)

	results, err := f.svc.PublicResults(context.Background(), contest.ID)
	assert.NoError(t, err)

	// Disqualified contestants keep their votes in the total but drop off
	// the public roster.
	assert.EqualValues(t, 4, results.TotalVotes)
	assert.Len(t, results.Contestants, 1)
	assert.Equal(t, active.ID, results.Contestants[0].ContestantID)
	assert.Equal(t, 75.0, results.Contestants[0].Percentage)

	hidden := f.seedContest(t, func(c *contestdomain.Contest) {
		c.ShowLiveResults = false
	})
	_, err = f.svc.PublicResults(context.Background(), hidden.ID)
	assert.ErrorIs(t, err, domain.ErrResultsHidden)
}
