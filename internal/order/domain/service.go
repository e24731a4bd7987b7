package domain

import (
	"context"
	"errors"
	"io"
)

type CreatePackageRequest struct {
	ContestID string
	Name      string
	VoteCount int
	Price     int64
	SortOrder int
}

type CreateOrderRequest struct {
	ContestID string
	// PackageID selects a vote package; empty means a single-vote order at
	// the contest default price.
	PackageID string
	// Quantity applies only to default-price orders.
	Quantity int
}

type UpdatePackageRequest struct {
	ContestID string
	PackageID string
	Name      *string
	VoteCount *int
	Price     *int64
	SortOrder *int
}

type CompletePaymentRequest struct {
	OrderID    string
	PaymentRef string
}

type Service interface {
	CreatePackage(context.Context, CreatePackageRequest) (VotePackage, error)
	// UpdatePackage rejects changes once a completed purchase references
	// the package.
	UpdatePackage(context.Context, UpdatePackageRequest) (VotePackage, error)
	ListPackages(ctx context.Context, contestID string) ([]VotePackage, error)

	CreateOrder(context.Context, CreateOrderRequest) (VoteOrder, error)
	GetOrder(ctx context.Context, id string) (VoteOrder, error)
	ListMyOrders(ctx context.Context, contestID string) ([]VoteOrder, error)

	// CompletePayment and FailPayment are invoked by the external
	// payment-verification callback.
	CompletePayment(context.Context, CompletePaymentRequest) (VoteOrder, error)
	FailPayment(ctx context.Context, orderID string) (VoteOrder, error)

	// Receipt renders a PDF receipt for the caller's completed order.
	Receipt(ctx context.Context, orderID string) (io.Reader, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidVoteCount   = errors.New("invalid_vote_count")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrPackagesDisabled   = errors.New("packages_disabled")
	ErrPackageRequired    = errors.New("package_required")
	ErrPackageImmutable   = errors.New("package_immutable")
	ErrNotPaidContest     = errors.New("not_paid_contest")
	ErrNotOwner           = errors.New("not_owner")
	ErrNotFound           = errors.New("not_found")
	ErrPackageNotFound    = errors.New("package_not_found")
	ErrInvalidTransition  = errors.New("invalid_payment_transition")
	ErrOrderNotPaid       = errors.New("order_not_paid")
)
