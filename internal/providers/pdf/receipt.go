package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReceiptData holds the rendered fields for a vote-order receipt. Amounts
// are preformatted strings so the layout stays currency-agnostic.
type ReceiptData struct {
	OrderNumber string
	DatePaid    string
	ContestName string
	BuyerName   string
	BuyerEmail  string
	PackageName string
	VoteCount   int
	UnitPrice   string
	Subtotal    string
	PlatformFee string
	Total       string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(12, "Vote Order Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Order number: "+data.OrderNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.DatePaid, props.Text{Top: 4}),
			text.New("Contest: "+data.ContestName, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New(data.BuyerName, props.Text{Style: fontstyle.Bold}),
			text.New(data.BuyerEmail, props.Text{Top: 5}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.Total+" paid on "+data.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Votes", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	description := data.PackageName
	if description == "" {
		description = "Votes for " + data.ContestName
	}
	m.AddRow(15,
		text.NewCol(6, description, props.Text{Size: 9}),
		text.NewCol(2, fmt.Sprintf("%d", data.VoteCount), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, data.UnitPrice, props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, data.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, data.Subtotal, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Platform fee", props.Text{Size: 9}),
		text.NewCol(2, data.PlatformFee, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, data.Total, props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
