package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, data.HouseholdName+" - Electricity Statement", props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(14,
		col.New(6).Add(
			text.New("Period: "+data.Period, props.Text{Top: 0, Size: 9}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 4, Size: 9}),
			text.New("Energy unit: "+data.EnergyUnit, props.Text{Top: 8, Size: 9}),
		),
		col.New(6),
	)

	// Purchases table
	m.AddRow(8,
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(1, "Tokens", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Payment", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Meter", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Contributor", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(1, "Paid", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(1, "Used", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(1, "Share", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)

	for _, line := range data.Lines {
		m.AddRow(7,
			text.NewCol(2, line.PurchaseDate, props.Text{Size: 8}),
			text.NewCol(1, line.Tokens, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.Payment, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.MeterReading, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.ContributorName, props.Text{Size: 8}),
			text.NewCol(1, line.Contribution, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.TokensConsumed, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.FairShare, props.Text{Size: 8, Align: align.Right}),
		)
	}

	// Member balances
	m.AddRow(10,
		text.NewCol(12, "Member balances", props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)
	m.AddRow(8,
		text.NewCol(6, "Member", props.Text{Style: fontstyle.Bold, Size: 8}),
		text.NewCol(2, "Contributed", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Fair share", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		text.NewCol(2, "Balance", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
	)
	for _, member := range data.Members {
		m.AddRow(7,
			text.NewCol(6, member.Name, props.Text{Size: 8}),
			text.NewCol(2, member.Contributed, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, member.FairShare, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, member.Balance, props.Text{Size: 8, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Global balance", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, data.GlobalBalance, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
