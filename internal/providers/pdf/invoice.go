package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceDocument is the preformatted content of an invoice. Amounts are
// already rendered strings.
type InvoiceDocument struct {
	CompanyName   string
	InvoiceNumber string
	IssueDate     string
	OrderID       string
	IssuedBy      string

	CustomerName  string
	CustomerPhone string

	Lines []InvoiceLine

	Total     string
	Paid      string
	Remaining string
	Notes     string
}

type InvoiceLine struct {
	Description string
	Quantity    int64
	Length      string
	UnitPrice   string
	Discount    string
	Amount      string
}

var errEmptyInvoice = errors.New("invoice document has no number")

func (r *MarotoRenderer) RenderInvoice(ctx context.Context, doc InvoiceDocument) ([]byte, error) {
	if doc.InvoiceNumber == "" {
		return nil, errEmptyInvoice
	}
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

	m.AddRow(12,
		text.NewCol(8, doc.CompanyName, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+doc.IssueDate, props.Text{Top: 5}),
			text.New("Order: "+doc.OrderID, props.Text{Top: 10}),
			text.New("Issued by: "+doc.IssuedBy, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(doc.CustomerName, props.Text{Top: 5}),
			text.New(doc.CustomerPhone, props.Text{Top: 10}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, "Description", header),
		text.NewCol(1, "Qty", headerRight),
		text.NewCol(2, "Length", headerRight),
		text.NewCol(2, "Unit price", headerRight),
		text.NewCol(1, "Discount", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, line := range doc.Lines {
		m.AddRow(8,
			text.NewCol(4, line.Description, cell),
			text.NewCol(1, fmt.Sprintf("%d", line.Quantity), cellRight),
			text.NewCol(2, line.Length, cellRight),
			text.NewCol(2, line.UnitPrice, cellRight),
			text.NewCol(1, line.Discount, cellRight),
			text.NewCol(2, line.Amount, cellRight),
		)
	}

	totals := []struct {
		label, value string
		style        fontstyle.Type
	}{
		{"Total", doc.Total, fontstyle.Normal},
		{"Paid", doc.Paid, fontstyle.Normal},
		{"Remaining", doc.Remaining, fontstyle.Bold},
	}
	for _, row := range totals {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, row.label, props.Text{Size: 9, Style: row.style}),
			text.NewCol(2, row.value, props.Text{Size: 9, Style: row.style, Align: align.Right}),
		)
	}

	if doc.Notes != "" {
		m.AddRow(15, text.NewCol(12, doc.Notes, props.Text{Size: 8, Top: 5}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}
