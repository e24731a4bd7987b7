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
	"github.com/smallbiznis/stagevote/internal/config"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	contestrepository "github.com/smallbiznis/stagevote/internal/contest/repository"
	contestservice "github.com/smallbiznis/stagevote/internal/contest/service"
	"github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/order/repository"
	"github.com/smallbiznis/stagevote/internal/userctx"
)

type fixture struct {
	db         *gorm.DB
	genID      *snowflake.Node
	clock      *clock.FakeClock
	svc        domain.Service
	contestSvc contestdomain.Service
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
		&domain.VotePackage{},
		&domain.VoteOrder{},
	); err != nil {
		t.Fatal(err)
	}

	node, _ := snowflake.NewNode(1)
	fakeClock := clock.NewFakeClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	contestSvc := contestservice.New(contestservice.Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  contestrepository.Provide(),
	})

	svc := New(Params{
		DB:         gdb,
		Log:        zap.NewNop(),
		Cfg:        config.Config{PlatformFeePercent: 10},
		GenID:      node,
		Clock:      fakeClock,
		Repo:       repository.Provide(),
		ContestSvc: contestSvc,
	})

	return &fixture{db: gdb, genID: node, clock: fakeClock, svc: svc, contestSvc: contestSvc}
}

func memberCtx(userID snowflake.ID) context.Context {
	return userctx.WithUserID(context.Background(), userID)
}

func (f *fixture) seedPaidContest(t *testing.T, organizerID snowflake.ID, packages bool, defaultPrice *int64) contestdomain.Contest {
	t.Helper()
	contest, err := f.contestSvc.Create(memberCtx(organizerID), contestdomain.CreateContestRequest{
		Title:               "Paid Night",
		VotingType:          "PAID",
		VotePackagesEnabled: packages,
		DefaultVotePrice:    defaultPrice,
	})
	if err != nil {
		t.Fatal(err)
	}
	return contest
}

func TestCreatePackage(t *testing.T) {
	f := newFixture(t, "orderCreatePackage")
	organizerID := f.genID.Generate()
	contest := f.seedPaidContest(t, organizerID, true, nil)
	ctx := memberCtx(organizerID)

	pkg, err := f.svc.CreatePackage(ctx, domain.CreatePackageRequest{
		ContestID: contest.ID.String(),
		Name:      "Starter",
		VoteCount: 5,
		Price:     1000,
	})
	assert.NoError(t, err)
	assert.Equal(t, contest.ID, pkg.ContestID)
	assert.Equal(t, 5, pkg.VoteCount)

	cases := []struct {
		name string
		req  domain.CreatePackageRequest
		want error
	}{
		{
			name: "blank name",
			req:  domain.CreatePackageRequest{ContestID: contest.ID.String(), Name: " ", VoteCount: 5, Price: 1000},
			want: domain.ErrInvalidName,
		},
		{
			name: "zero votes",
			req:  domain.CreatePackageRequest{ContestID: contest.ID.String(), Name: "Bad", VoteCount: 0, Price: 1000},
			want: domain.ErrInvalidVoteCount,
		},
		{
			name: "negative price",
			req:  domain.CreatePackageRequest{ContestID: contest.ID.String(), Name: "Bad", VoteCount: 5, Price: -1},
			want: domain.ErrInvalidPrice,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreatePackage(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("stranger cannot create", func(t *testing.T) {
		_, err := f.svc.CreatePackage(memberCtx(f.genID.Generate()), domain.CreatePackageRequest{
			ContestID: contest.ID.String(),
			Name:      "Theirs",
			VoteCount: 5,
			Price:     1000,
		})
		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})
}

func TestUpdatePackage_ImmutableAfterPurchase(t *testing.T) {
	f := newFixture(t, "orderPackageImmutable")
	organizerID := f.genID.Generate()
	contest := f.seedPaidContest(t, organizerID, true, nil)
	ctx := memberCtx(organizerID)

	pkg, err := f.svc.CreatePackage(ctx, domain.CreatePackageRequest{
		ContestID: contest.ID.String(),
		Name:      "Starter",
		VoteCount: 5,
		Price:     1000,
	})
	assert.NoError(t, err)

	newPrice := int64(1500)
	updated, err := f.svc.UpdatePackage(ctx, domain.UpdatePackageRequest{
		ContestID: contest.ID.String(),
		PackageID: pkg.ID.String(),
		Price:     &newPrice,
	})
	assert.NoError(t, err)
	assert.Equal(t, newPrice, updated.Price)

	// A completed purchase freezes the package.
	buyerID := f.genID.Generate()
	order, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
		ContestID: contest.ID.String(),
		PackageID: pkg.ID.String(),
	})
	assert.NoError(t, err)
	_, err = f.svc.CompletePayment(context.Background(), domain.CompletePaymentRequest{
		OrderID:    order.ID.String(),
		PaymentRef: "pay_123",
	})
	assert.NoError(t, err)

	_, err = f.svc.UpdatePackage(ctx, domain.UpdatePackageRequest{
		ContestID: contest.ID.String(),
		PackageID: pkg.ID.String(),
		Price:     &newPrice,
	})
	assert.ErrorIs(t, err, domain.ErrPackageImmutable)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, "orderCreate")
	organizerID := f.genID.Generate()
	buyerID := f.genID.Generate()

	t.Run("package order carries package totals and fee", func(t *testing.T) {
		contest := f.seedPaidContest(t, organizerID, true, nil)
		pkg, err := f.svc.CreatePackage(memberCtx(organizerID), domain.CreatePackageRequest{
			ContestID: contest.ID.String(),
			Name:      "Booster",
			VoteCount: 20,
			Price:     2500,
		})
		assert.NoError(t, err)

		order, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			PackageID: pkg.ID.String(),
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(2500), order.TotalAmount)
		assert.Equal(t, int64(250), order.PlatformFee)
		assert.Equal(t, 20, order.VoteCount)
		assert.Equal(t, 20, order.VotesRemaining)
		assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	})

	t.Run("default price order multiplies quantity", func(t *testing.T) {
		price := int64(300)
		contest := f.seedPaidContest(t, organizerID, false, &price)

		order, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			Quantity:  4,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(1200), order.TotalAmount)
		assert.Equal(t, 4, order.VoteCount)
	})

	t.Run("package required when packages enabled", func(t *testing.T) {
		contest := f.seedPaidContest(t, organizerID, true, nil)
		_, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			Quantity:  1,
		})
		assert.ErrorIs(t, err, domain.ErrPackageRequired)
	})

	t.Run("free contest takes no orders", func(t *testing.T) {
		contest, err := f.contestSvc.Create(memberCtx(organizerID), contestdomain.CreateContestRequest{
			Title:      "Free Night",
			VotingType: "FREE",
		})
		assert.NoError(t, err)
		_, err = f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			Quantity:  1,
		})
		assert.ErrorIs(t, err, domain.ErrNotPaidContest)
	})

	t.Run("guest cannot order", func(t *testing.T) {
		price := int64(300)
		contest := f.seedPaidContest(t, organizerID, false, &price)
		_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			Quantity:  1,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidUser)
	})
}

func TestPaymentTransitions(t *testing.T) {
	f := newFixture(t, "orderTransitions")
	organizerID := f.genID.Generate()
	buyerID := f.genID.Generate()
	price := int64(500)
	contest := f.seedPaidContest(t, organizerID, false, &price)

	newOrder := func(t *testing.T) domain.VoteOrder {
		t.Helper()
		order, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
			ContestID: contest.ID.String(),
			Quantity:  2,
		})
		assert.NoError(t, err)
		return order
	}

	t.Run("complete records the payment ref", func(t *testing.T) {
		order := newOrder(t)
		completed, err := f.svc.CompletePayment(context.Background(), domain.CompletePaymentRequest{
			OrderID:    order.ID.String(),
			PaymentRef: "pay_abc",
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCompleted, completed.PaymentStatus)
		assert.Equal(t, "pay_abc", completed.PaymentRef)
	})

	t.Run("double completion is rejected", func(t *testing.T) {
		order := newOrder(t)
		_, err := f.svc.CompletePayment(context.Background(), domain.CompletePaymentRequest{
			OrderID: order.ID.String(), PaymentRef: "pay_1",
		})
		assert.NoError(t, err)
		_, err = f.svc.CompletePayment(context.Background(), domain.CompletePaymentRequest{
			OrderID: order.ID.String(), PaymentRef: "pay_2",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("failed order cannot complete", func(t *testing.T) {
		order := newOrder(t)
		_, err := f.svc.FailPayment(context.Background(), order.ID.String())
		assert.NoError(t, err)
		_, err = f.svc.CompletePayment(context.Background(), domain.CompletePaymentRequest{
			OrderID: order.ID.String(), PaymentRef: "pay_late",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.FailPayment(context.Background(), f.genID.Generate().String())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGetOrderOwnership(t *testing.T) {
	f := newFixture(t, "orderOwnership")
	organizerID := f.genID.Generate()
	buyerID := f.genID.Generate()
	price := int64(500)
	contest := f.seedPaidContest(t, organizerID, false, &price)

	order, err := f.svc.CreateOrder(memberCtx(buyerID), domain.CreateOrderRequest{
		ContestID: contest.ID.String(),
		Quantity:  1,
	})
	assert.NoError(t, err)

	got, err := f.svc.GetOrder(memberCtx(buyerID), order.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetOrder(memberCtx(f.genID.Generate()), order.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	orders, err := f.svc.ListMyOrders(memberCtx(buyerID), contest.ID.String())
	assert.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = f.svc.ListMyOrders(memberCtx(f.genID.Generate()), contest.ID.String())
	assert.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlatformFee(t *testing.T) {
	cases := []struct {
		amount  int64
		percent float64
		want    int64
	}{
		{amount: 1000, percent: 10, want: 100},
		{amount: 999, percent: 10, want: 100},
		{amount: 101, percent: 2.5, want: 3},
		{amount: 0, percent: 10, want: 0},
		{amount: 1000, percent: 0, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, platformFee(tc.amount, tc.percent),
			"fee of %d at %.1f%%", tc.amount, tc.percent)
	}
}
