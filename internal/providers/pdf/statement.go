package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData is the pre-formatted content of a monthly bill statement.
type StatementData struct {
	BillNumber  string
	Month       string
	Category    string
	BillType    string
	Status      string
	AgencyName  string
	AccountName string
	Currency    string

	TotalAmount  string
	RebateAmount string
	NetAmount    string

	Lines []StatementLine
}

type StatementLine struct {
	Kind      string
	Reference string
	Date      string
	Amount    string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateBillStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if data.BillNumber == "" {
		return nil, errors.New("bill number is required for statement PDF")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Monthly bill statement", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.BillNumber, props.Text{
			Size:  10,
			Align: align.Right,
			Top:   3,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Agency: "+data.AgencyName, props.Text{Top: 0}),
			text.New("Ad account: "+data.AccountName, props.Text{Top: 5}),
			text.New("Currency: "+data.Currency, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Month: "+data.Month, props.Text{Top: 0, Align: align.Right}),
			text.New("Bill: "+data.Category+" / "+data.BillType, props.Text{Top: 5, Align: align.Right}),
			text.New("Status: "+data.Status, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(3, "Kind", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Reference", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, line := range data.Lines {
		m.AddRow(8,
			text.NewCol(3, line.Kind, props.Text{Size: 9}),
			text.NewCol(4, line.Reference, props.Text{Size: 9}),
			text.NewCol(2, line.Date, props.Text{Size: 9}),
			text.NewCol(3, line.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(3, data.TotalAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, "Rebate", props.Text{Size: 9}),
		text.NewCol(3, data.RebateAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(7),
		text.NewCol(2, "Net", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(3, data.NetAmount, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
