package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/internal/invoice/format"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/providers/pdf"
	"go.uber.org/zap"
)

const companyName = "Millrun"

func (s *Service) RenderPDF(ctx context.Context, id snowflake.ID) ([]byte, string, error) {
	invoice, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}
	order, err := s.orderSvc.Get(ctx, invoice.OrderID)
	if err != nil {
		return nil, "", err
	}

	doc := buildDocument(invoice, order)
	out, err := s.renderer.RenderInvoice(ctx, doc)
	if err != nil {
		s.log.Error("render invoice pdf", zap.String("invoice_id", id.String()), zap.Error(err))
		return nil, "", err
	}
	return out, format.FileName(invoice.InvoiceNumber, doc.CustomerName), nil
}

func buildDocument(invoice domain.Invoice, order orderdomain.OrderView) pdf.InvoiceDocument {
	doc := pdf.InvoiceDocument{
		CompanyName:   companyName,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     format.Date(invoice.IssuedAt),
		OrderID:       invoice.OrderID.String(),
		IssuedBy:      invoice.IssuedBy.String(),
		Total:         format.Money(invoice.TotalAmount),
		Paid:          format.Money(invoice.PaidAmount),
		Remaining:     format.Money(invoice.RemainingAmount),
		Notes:         invoice.Notes,
	}
	if order.Customer != nil {
		doc.CustomerName = order.Customer.Name
		doc.CustomerPhone = order.Customer.Phone
	}

	for _, item := range order.Items {
		doc.Lines = append(doc.Lines, pdf.InvoiceLine{
			Description: describe(item),
			Quantity:    item.Quantity,
			Length:      item.Length.StringFixed(2),
			UnitPrice:   format.Money(item.UnitPrice),
			Discount:    format.Money(item.DiscountAmount),
			Amount:      format.Money(item.Subtotal),
		})
	}
	return doc
}

func describe(item orderdomain.ItemView) string {
	label := item.MaterialName
	if item.ColorName != "" {
		label += " " + item.ColorName
	}
	if item.TypeItem != "" {
		label += " " + item.TypeItem
	}
	if item.BatchNumber != "" {
		label += " (" + item.BatchNumber + ")"
	}
	if label == "" {
		return item.RulerID.String()
	}
	return label
}
