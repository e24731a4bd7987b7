package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/stagevote/internal/clock"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	contestrepository "github.com/smallbiznis/stagevote/internal/contest/repository"
	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
	"github.com/smallbiznis/stagevote/internal/netctx"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	orderrepository "github.com/smallbiznis/stagevote/internal/order/repository"
	"github.com/smallbiznis/stagevote/internal/userctx"
	"github.com/smallbiznis/stagevote/internal/vote/domain"
	"github.com/smallbiznis/stagevote/internal/vote/repository"
)

// recordingDispatcher captures dispatched notifications for assertions.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []notificationdomain.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notificationdomain.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

type fixture struct {
	db       *gorm.DB
	genID    *snowflake.Node
	clock    *clock.FakeClock
	svc      domain.Service
	notifier *recordingDispatcher
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
		&domain.Vote{},
	); err != nil {
		t.Fatal(err)
	}
	// Partial unique indexes are created by migrations in production.
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_member_free ON votes (user_id, contestant_id) WHERE vote_type = 'FREE' AND user_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_guest_contest ON votes (contest_id, ip_address) WHERE user_id IS NULL`,
	} {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatal(err)
		}
	}

	node, _ := snowflake.NewNode(1)
	fakeClock := clock.NewFakeClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))
	notifier := &recordingDispatcher{}

	svc := New(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        repository.Provide(),
		ContestRepo: contestrepository.Provide(),
		OrderRepo:   orderrepository.Provide(),
		Notifier:    notifier,
	})

	return &fixture{db: gdb, genID: node, clock: fakeClock, svc: svc, notifier: notifier}
}

func (f *fixture) seedContest(t *testing.T, mutate func(*contestdomain.Contest)) *contestdomain.Contest {
	t.Helper()
	start := f.clock.Now().Add(-time.Hour)
	end := f.clock.Now().Add(time.Hour)
	contest := &contestdomain.Contest{
		ID:                 f.genID.Generate(),
		OrganizerID:        f.genID.Generate(),
		Title:              "Spring Showcase",
		VotingType:         contestdomain.VotingTypeFree,
		VotingStartAt:      &start,
		VotingEndAt:        &end,
		AllowGuestVoting:   true,
		AllowMultipleVotes: true,
		Currency:           "USD",
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

func (f *fixture) seedOrder(t *testing.T, userID, contestID snowflake.ID, votes int, status orderdomain.PaymentStatus) *orderdomain.VoteOrder {
	t.Helper()
	order := &orderdomain.VoteOrder{
		ID:             f.genID.Generate(),
		UserID:         userID,
		ContestID:      contestID,
		TotalAmount:    int64(votes) * 100,
		Currency:       "USD",
		VoteCount:      votes,
		VotesUsed:      0,
		VotesRemaining: votes,
		PaymentStatus:  status,
	}
	if err := f.db.Create(order).Error; err != nil {
		t.Fatal(err)
	}
	return order
}

func memberCtx(userID snowflake.ID, ip string) context.Context {
	ctx := netctx.WithContext(context.Background(), netctx.Context{IPAddress: ip, UserAgent: "test-agent"})
	return userctx.WithUserID(ctx, userID)
}

func guestCtx(ip string) context.Context {
	return netctx.WithContext(context.Background(), netctx.Context{IPAddress: ip, UserAgent: "test-agent"})
}

func assertRejected(t *testing.T, err error, reason domain.RejectReason) {
	t.Helper()
	var rejection *domain.RejectionError
	if assert.True(t, errors.As(err, &rejection), "expected rejection, got %v", err) {
		assert.Equal(t, reason, rejection.Reason)
	}
}

func TestCastFree_SingleVoteContest(t *testing.T) {
	f := newFixture(t, "castFreeSingle")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.AllowMultipleVotes = false
	})
	first := f.seedContestant(t, contest.ID, 1)
	second := f.seedContestant(t, contest.ID, 2)
	userID := f.genID.Generate()

	ctx := memberCtx(userID, "10.0.0.1")
	vote, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: first.ID})
	assert.NoError(t, err)
	assert.NotNil(t, vote)
	assert.Equal(t, domain.VoteTypeFree, vote.VoteType)
	assert.Equal(t, userID, *vote.UserID)

	_, err = f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: second.ID})
	assertRejected(t, err, domain.ReasonOneContestantOnly)

	var total int64
	f.db.Model(&domain.Vote{}).Where("contest_id = ?", contest.ID).Count(&total)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, 1, f.notifier.count())
}

func TestCastFree_DuplicateContestant(t *testing.T) {
	f := newFixture(t, "castFreeDup")
	contest := f.seedContest(t, nil)
	contestant := f.seedContestant(t, contest.ID, 1)
	ctx := memberCtx(f.genID.Generate(), "10.0.0.1")

	_, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
	assert.NoError(t, err)

	_, err = f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
	assertRejected(t, err, domain.ReasonAlreadyVotedForThis)
}

func TestCastFree_VoteLimit(t *testing.T) {
	f := newFixture(t, "castFreeLimit")
	limit := 2
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.MaxVotesPerUser = &limit
	})
	ctx := memberCtx(f.genID.Generate(), "10.0.0.1")

	for i := 1; i <= 2; i++ {
		contestant := f.seedContestant(t, contest.ID, i)
		_, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
		assert.NoError(t, err)
	}

	third := f.seedContestant(t, contest.ID, 3)
	_, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: third.ID})
	assertRejected(t, err, domain.ReasonVoteLimitReached)
}

func TestCastFree_GuestSingleVote(t *testing.T) {
	f := newFixture(t, "castFreeGuest")
	contest := f.seedContest(t, nil)
	first := f.seedContestant(t, contest.ID, 1)
	second := f.seedContestant(t, contest.ID, 2)

	ctx := guestCtx("1.2.3.4")
	vote, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: first.ID})
	assert.NoError(t, err)
	assert.Nil(t, vote.UserID)
	assert.Equal(t, "1.2.3.4", vote.IPAddress)

	_, err = f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: second.ID})
	assertRejected(t, err, domain.ReasonAlreadyVoted)

	// A different IP is a different guest.
	_, err = f.svc.CastFree(guestCtx("5.6.7.8"), domain.CastFreeRequest{ContestID: contest.ID, ContestantID: second.ID})
	assert.NoError(t, err)
}

func TestCastFree_GuestVotingDisabled(t *testing.T) {
	f := newFixture(t, "castFreeGuestOff")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.AllowGuestVoting = false
	})
	contestant := f.seedContestant(t, contest.ID, 1)

	_, err := f.svc.CastFree(guestCtx("1.2.3.4"), domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
	assertRejected(t, err, domain.ReasonGuestVotingDisabled)
}

func TestCastFree_WindowEnforcement(t *testing.T) {
	f := newFixture(t, "castFreeWindow")
	contest := f.seedContest(t, nil)
	contestant := f.seedContestant(t, contest.ID, 1)
	ctx := memberCtx(f.genID.Generate(), "10.0.0.1")

	f.clock.Advance(2 * time.Hour)
	_, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
	assertRejected(t, err, domain.ReasonVotingEnded)
	assert.Equal(t, 0, f.notifier.count())
}

func TestCastFree_InactiveContestant(t *testing.T) {
	f := newFixture(t, "castFreeInactive")
	contest := f.seedContest(t, nil)
	contestant := f.seedContestant(t, contest.ID, 1)
	f.db.Model(&contestdomain.Contestant{}).
		Where("id = ?", contestant.ID).
		Update("status", contestdomain.ContestantStatusDisqualified)

	_, err := f.svc.CastFree(memberCtx(f.genID.Generate(), "10.0.0.1"), domain.CastFreeRequest{ContestID: contest.ID, ContestantID: contestant.ID})
	assertRejected(t, err, domain.ReasonContestantInactive)
}

func TestCastFree_NotFound(t *testing.T) {
	f := newFixture(t, "castFreeNotFound")
	contest := f.seedContest(t, nil)
	f.seedContestant(t, contest.ID, 1)
	other := f.seedContest(t, nil)
	foreign := f.seedContestant(t, other.ID, 1)
	ctx := memberCtx(f.genID.Generate(), "10.0.0.1")

	_, err := f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: f.genID.Generate(), ContestantID: foreign.ID})
	assert.ErrorIs(t, err, domain.ErrContestNotFound)

	// Contestant belonging to another contest is not found, not rejected.
	_, err = f.svc.CastFree(ctx, domain.CastFreeRequest{ContestID: contest.ID, ContestantID: foreign.ID})
	assert.ErrorIs(t, err, domain.ErrContestantNotFound)
}

func TestCastPaid_DrainsOrder(t *testing.T) {
	f := newFixture(t, "castPaidDrain")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
		c.AllowGuestVoting = false
		c.VotePackagesEnabled = true
	})
	contestant := f.seedContestant(t, contest.ID, 1)
	userID := f.genID.Generate()
	order := f.seedOrder(t, userID, contest.ID, 5, orderdomain.PaymentStatusCompleted)
	ctx := memberCtx(userID, "10.0.0.1")

	for i := 0; i < 5; i++ {
		vote, err := f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: order.ID})
		assert.NoError(t, err)
		assert.Equal(t, order.ID, *vote.VoteOrderID)

		var current orderdomain.VoteOrder
		f.db.Take(&current, "id = ?", order.ID)
		assert.Equal(t, current.VoteCount, current.VotesUsed+current.VotesRemaining)
		assert.GreaterOrEqual(t, current.VotesRemaining, 0)
	}

	var drained orderdomain.VoteOrder
	f.db.Take(&drained, "id = ?", order.ID)
	assert.Equal(t, 0, drained.VotesRemaining)
	assert.Equal(t, 5, drained.VotesUsed)

	_, err := f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: order.ID})
	assertRejected(t, err, domain.ReasonNoVotesRemaining)
	assert.Equal(t, 5, f.notifier.count())
}

func TestCastPaid_OrderChecks(t *testing.T) {
	f := newFixture(t, "castPaidChecks")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
		c.VotePackagesEnabled = true
	})
	contestant := f.seedContestant(t, contest.ID, 1)
	ownerID := f.genID.Generate()
	strangerID := f.genID.Generate()

	completed := f.seedOrder(t, ownerID, contest.ID, 5, orderdomain.PaymentStatusCompleted)
	pending := f.seedOrder(t, ownerID, contest.ID, 5, orderdomain.PaymentStatusPending)

	_, err := f.svc.CastPaid(memberCtx(strangerID, "10.0.0.2"), domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: completed.ID})
	assertRejected(t, err, domain.ReasonOrderNotOwned)

	_, err = f.svc.CastPaid(memberCtx(ownerID, "10.0.0.1"), domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: pending.ID})
	assertRejected(t, err, domain.ReasonPaymentIncomplete)

	_, err = f.svc.CastPaid(guestCtx("1.2.3.4"), domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: completed.ID})
	assertRejected(t, err, domain.ReasonGuestVotingDisabled)

	_, err = f.svc.CastPaid(memberCtx(ownerID, "10.0.0.1"), domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: f.genID.Generate()})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCastPaid_ExpiredOrder(t *testing.T) {
	f := newFixture(t, "castPaidExpired")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
		c.VotePackagesEnabled = true
	})
	contestant := f.seedContestant(t, contest.ID, 1)
	userID := f.genID.Generate()
	order := f.seedOrder(t, userID, contest.ID, 5, orderdomain.PaymentStatusCompleted)
	expired := f.clock.Now().Add(-time.Minute)
	f.db.Model(&orderdomain.VoteOrder{}).Where("id = ?", order.ID).Update("expires_at", expired)

	_, err := f.svc.CastPaid(memberCtx(userID, "10.0.0.1"), domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: order.ID})
	assertRejected(t, err, domain.ReasonOrderExpired)
}

func TestCastPaid_ConcurrentExhaustion(t *testing.T) {
	f := newFixture(t, "castPaidRace")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
		c.AllowGuestVoting = false
		c.VotePackagesEnabled = true
	})
	contestant := f.seedContestant(t, contest.ID, 1)
	userID := f.genID.Generate()
	order := f.seedOrder(t, userID, contest.ID, 1, orderdomain.PaymentStatusCompleted)
	ctx := memberCtx(userID, "10.0.0.1")

	// Both casts see the same one-vote balance; the conditional decrement
	// decides the winner.
	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: contest.ID, ContestantID: contestant.ID, OrderID: order.ID})
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes.Load(), int32(1))

	var current orderdomain.VoteOrder
	f.db.Take(&current, "id = ?", order.ID)
	assert.GreaterOrEqual(t, current.VotesRemaining, 0)
	assert.Equal(t, current.VoteCount, current.VotesUsed+current.VotesRemaining)

	var total int64
	f.db.Model(&domain.Vote{}).Where("vote_order_id = ?", order.ID).Count(&total)
	assert.EqualValues(t, successes.Load(), total)
	assert.LessOrEqual(t, total, int64(1))
}

func TestCastPaid_GuestTargetChecks(t *testing.T) {
	f := newFixture(t, "castPaidGuestTarget")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
		c.VotePackagesEnabled = true
	})
	active := f.seedContestant(t, contest.ID, 1)
	withdrawn := f.seedContestant(t, contest.ID, 2)
	f.db.Model(&contestdomain.Contestant{}).
		Where("id = ?", withdrawn.ID).
		Update("status", contestdomain.ContestantStatusWithdrawn)
	ctx := guestCtx("1.2.3.4")

	// A bad target is not-found for guests too, not a business rejection.
	_, err := f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: f.genID.Generate(), ContestantID: active.ID})
	assert.ErrorIs(t, err, domain.ErrContestNotFound)

	_, err = f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: contest.ID, ContestantID: withdrawn.ID})
	assertRejected(t, err, domain.ReasonContestantInactive)

	_, err = f.svc.CastPaid(ctx, domain.CastPaidRequest{ContestID: contest.ID, ContestantID: active.ID})
	assertRejected(t, err, domain.ReasonGuestVotingDisabled)
}

func TestConsumeVote_GuardsExhaustion(t *testing.T) {
	f := newFixture(t, "consumeGuard")
	contest := f.seedContest(t, func(c *contestdomain.Contest) {
		c.VotingType = contestdomain.VotingTypePaid
	})
	userID := f.genID.Generate()
	order := f.seedOrder(t, userID, contest.ID, 1, orderdomain.PaymentStatusCompleted)

	repo := orderrepository.Provide()
	first, err := repo.ConsumeVote(context.Background(), f.db, order.ID)
	assert.NoError(t, err)
	assert.True(t, first)

	// The same stale balance cannot be consumed twice.
	second, err := repo.ConsumeVote(context.Background(), f.db, order.ID)
	assert.NoError(t, err)
	assert.False(t, second)

	var current orderdomain.VoteOrder
	f.db.Take(&current, "id = ?", order.ID)
	assert.Equal(t, 0, current.VotesRemaining)
	assert.Equal(t, 1, current.VotesUsed)
}
