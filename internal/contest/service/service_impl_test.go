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

	"github.com/smallbiznis/stagevote/internal/clock"
	"github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/internal/contest/repository"
	"github.com/smallbiznis/stagevote/internal/userctx"
)

type fixture struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := gdb.AutoMigrate(&domain.Contest{}, &domain.Contestant{}); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fakeClock := clock.NewFakeClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})

	return &fixture{db: gdb, genID: node, clock: fakeClock, svc: svc}
}

func organizerCtx(userID snowflake.ID) context.Context {
	return userctx.WithUserID(context.Background(), userID)
}

func TestCreateContest(t *testing.T) {
	f := newFixture(t, "contestCreate")
	organizerID := f.genID.Generate()
	ctx := organizerCtx(organizerID)

	price := int64(500)
	limit := 3

	contest, err := f.svc.Create(ctx, domain.CreateContestRequest{
		Title:           "  Spring Showcase  ",
		VotingType:      "free",
		MaxVotesPerUser: &limit,
		ShowLiveResults: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, organizerID, contest.OrganizerID)
	assert.Equal(t, "Spring Showcase", contest.Title)
	assert.Equal(t, domain.VotingTypeFree, contest.VotingType)
	assert.Equal(t, "USD", contest.Currency, "currency defaults when omitted")

	cases := []struct {
		name string
		req  domain.CreateContestRequest
		want error
	}{
		{
			name: "blank title",
			req:  domain.CreateContestRequest{Title: "   ", VotingType: "FREE"},
			want: domain.ErrInvalidTitle,
		},
		{
			name: "unknown voting type",
			req:  domain.CreateContestRequest{Title: "X", VotingType: "RANKED"},
			want: domain.ErrInvalidVotingType,
		},
		{
			name: "paid without price or packages",
			req:  domain.CreateContestRequest{Title: "X", VotingType: "PAID"},
			want: domain.ErrInvalidVotePrice,
		},
		{
			name: "zero vote limit",
			req: domain.CreateContestRequest{
				Title: "X", VotingType: "FREE",
				MaxVotesPerUser: intPtr(0),
			},
			want: domain.ErrInvalidVoteLimit,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("window end before start", func(t *testing.T) {
		start := f.clock.Now()
		end := start.Add(-time.Hour)
		_, err := f.svc.Create(ctx, domain.CreateContestRequest{
			Title: "X", VotingType: "FREE",
			VotingStartAt: &start, VotingEndAt: &end,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidVotingWindow)
	})

	t.Run("paid with packages needs no default price", func(t *testing.T) {
		contest, err := f.svc.Create(ctx, domain.CreateContestRequest{
			Title: "Paid Night", VotingType: "PAID",
			VotePackagesEnabled: true,
		})
		assert.NoError(t, err)
		assert.True(t, contest.VotePackagesEnabled)
	})

	t.Run("paid with default price", func(t *testing.T) {
		contest, err := f.svc.Create(ctx, domain.CreateContestRequest{
			Title: "Paid Solo", VotingType: "PAID",
			DefaultVotePrice: &price,
		})
		assert.NoError(t, err)
		assert.Equal(t, price, *contest.DefaultVotePrice)
	})

	t.Run("requires session", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), domain.CreateContestRequest{Title: "X", VotingType: "FREE"})
		assert.ErrorIs(t, err, domain.ErrInvalidUser)
	})
}

func TestUpdateContest(t *testing.T) {
	f := newFixture(t, "contestUpdate")
	organizerID := f.genID.Generate()
	ctx := organizerCtx(organizerID)

	contest, err := f.svc.Create(ctx, domain.CreateContestRequest{Title: "Original", VotingType: "FREE"})
	assert.NoError(t, err)

	title := "Renamed"
	allowGuests := true
	updated, err := f.svc.Update(ctx, domain.UpdateContestRequest{
		ID:               contest.ID.String(),
		Title:            &title,
		AllowGuestVoting: &allowGuests,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.AllowGuestVoting)
	assert.Equal(t, domain.VotingTypeFree, updated.VotingType, "untouched fields survive")

	t.Run("stranger cannot update", func(t *testing.T) {
		_, err := f.svc.Update(organizerCtx(f.genID.Generate()), domain.UpdateContestRequest{
			ID:    contest.ID.String(),
			Title: &title,
		})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("window checked against merged values", func(t *testing.T) {
		start := f.clock.Now()
		end := start.Add(-time.Minute)
		_, err := f.svc.Update(ctx, domain.UpdateContestRequest{
			ID:            contest.ID.String(),
			VotingStartAt: &start,
			VotingEndAt:   &end,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidVotingWindow)
	})

	t.Run("unknown contest", func(t *testing.T) {
		_, err := f.svc.Update(ctx, domain.UpdateContestRequest{
			ID:    f.genID.Generate().String(),
			Title: &title,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAddContestant(t *testing.T) {
	f := newFixture(t, "contestAddContestant")
	organizerID := f.genID.Generate()
	ctx := organizerCtx(organizerID)

	contest, err := f.svc.Create(ctx, domain.CreateContestRequest{Title: "Talent Night", VotingType: "FREE"})
	assert.NoError(t, err)

	contestant, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
		ContestID:     contest.ID.String(),
		ContestNumber: 1,
		Name:          "The Night Owls",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.ContestantStatusActive, contestant.Status)

	t.Run("duplicate contest number", func(t *testing.T) {
		_, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
			ContestID:     contest.ID.String(),
			ContestNumber: 1,
			Name:          "Another Act",
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateContestNumber)
	})

	t.Run("invalid number", func(t *testing.T) {
		_, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
			ContestID:     contest.ID.String(),
			ContestNumber: 0,
			Name:          "Zero",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidContestNumber)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
			ContestID:     contest.ID.String(),
			ContestNumber: 2,
			Name:          "  ",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidContestantName)
	})

	t.Run("stranger cannot add", func(t *testing.T) {
		_, err := f.svc.AddContestant(organizerCtx(f.genID.Generate()), domain.AddContestantRequest{
			ContestID:     contest.ID.String(),
			ContestNumber: 3,
			Name:          "Intruder",
		})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})
}

func TestSetContestantStatus(t *testing.T) {
	f := newFixture(t, "contestSetStatus")
	organizerID := f.genID.Generate()
	ctx := organizerCtx(organizerID)

	contest, err := f.svc.Create(ctx, domain.CreateContestRequest{Title: "Talent Night", VotingType: "FREE"})
	assert.NoError(t, err)
	contestant, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
		ContestID:     contest.ID.String(),
		ContestNumber: 1,
		Name:          "Silver Strings",
	})
	assert.NoError(t, err)

	updated, err := f.svc.SetContestantStatus(ctx, domain.SetContestantStatusRequest{
		ContestID:    contest.ID.String(),
		ContestantID: contestant.ID.String(),
		Status:       "disqualified",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.ContestantStatusDisqualified, updated.Status)

	t.Run("unknown status", func(t *testing.T) {
		_, err := f.svc.SetContestantStatus(ctx, domain.SetContestantStatusRequest{
			ContestID:    contest.ID.String(),
			ContestantID: contestant.ID.String(),
			Status:       "BANNED",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	})

	t.Run("contestant from another contest", func(t *testing.T) {
		other, err := f.svc.Create(ctx, domain.CreateContestRequest{Title: "Other", VotingType: "FREE"})
		assert.NoError(t, err)
		_, err = f.svc.SetContestantStatus(ctx, domain.SetContestantStatusRequest{
			ContestID:    other.ID.String(),
			ContestantID: contestant.ID.String(),
			Status:       "ACTIVE",
		})
		assert.ErrorIs(t, err, domain.ErrContestantNotFound)
	})
}

func TestRoster(t *testing.T) {
	f := newFixture(t, "contestRoster")
	organizerID := f.genID.Generate()
	ctx := organizerCtx(organizerID)

	contest, err := f.svc.Create(ctx, domain.CreateContestRequest{Title: "Talent Night", VotingType: "FREE"})
	assert.NoError(t, err)

	active, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
		ContestID: contest.ID.String(), ContestNumber: 1, Name: "Active Act",
	})
	assert.NoError(t, err)
	dropped, err := f.svc.AddContestant(ctx, domain.AddContestantRequest{
		ContestID: contest.ID.String(), ContestNumber: 2, Name: "Dropped Act",
	})
	assert.NoError(t, err)
	_, err = f.svc.SetContestantStatus(ctx, domain.SetContestantStatusRequest{
		ContestID:    contest.ID.String(),
		ContestantID: dropped.ID.String(),
		Status:       "WITHDRAWN",
	})
	assert.NoError(t, err)

	roster, err := f.svc.Roster(context.Background(), contest.ID.String())
	assert.NoError(t, err)
	if assert.Len(t, roster, 1) {
		assert.Equal(t, active.ID, roster[0].ID)
	}
}

func TestListContests(t *testing.T) {
	f := newFixture(t, "contestList")
	mine := f.genID.Generate()
	theirs := f.genID.Generate()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(organizerCtx(mine), domain.CreateContestRequest{
			Title:      fmt.Sprintf("Mine %d", i),
			VotingType: "FREE",
		})
		assert.NoError(t, err)
		f.clock.Advance(time.Second)
	}
	_, err := f.svc.Create(organizerCtx(theirs), domain.CreateContestRequest{
		Title:      "Theirs",
		VotingType: "FREE",
	})
	assert.NoError(t, err)

	resp, err := f.svc.List(organizerCtx(mine), domain.ListContestRequest{PageSize: 10})
	assert.NoError(t, err)
	assert.Len(t, resp.Contests, 3, "only the caller's contests are listed")
	for _, contest := range resp.Contests {
		assert.Equal(t, mine, contest.OrganizerID)
	}
}

func intPtr(v int) *int { return &v }
