package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/providers/pdf"
)

// Receipt renders a PDF receipt for a completed order owned by the caller.
func (s *Service) Receipt(ctx context.Context, orderID string) (io.Reader, error) {
	if s.pdf == nil {
		return nil, errors.New("pdf_provider_unavailable")
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != domain.PaymentStatusCompleted {
		return nil, domain.ErrOrderNotPaid
	}

	contest, err := s.contestSvc.GetByID(ctx, order.ContestID.String())
	if err != nil {
		return nil, err
	}

	data := pdf.ReceiptData{
		OrderNumber: order.ID.String(),
		DatePaid:    order.UpdatedAt.Format("Jan 2, 2006"),
		ContestName: contest.Title,
		VoteCount:   order.VoteCount,
		UnitPrice:   formatMoney(unitPrice(order), order.Currency),
		Subtotal:    formatMoney(order.TotalAmount, order.Currency),
		PlatformFee: formatMoney(order.PlatformFee, order.Currency),
		Total:       formatMoney(order.TotalAmount, order.Currency),
	}
	if order.VotePackageID != nil {
		pkg, err := s.repo.FindPackageByID(ctx, s.db, *order.VotePackageID)
		if err == nil && pkg != nil {
			data.PackageName = pkg.Name
		}
	}

	return s.pdf.GenerateReceipt(ctx, data)
}

func unitPrice(order domain.VoteOrder) int64 {
	if order.VoteCount <= 0 {
		return order.TotalAmount
	}
	return order.TotalAmount / int64(order.VoteCount)
}

// formatMoney renders a minor-unit amount as "12.34 USD".
func formatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
