package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	OrderID    snowflake.ID
	IssuedBy   snowflake.ID
	PaidAmount decimal.Decimal
	Notes      string
}

type UpdateInvoiceRequest struct {
	PaidAmount *decimal.Decimal
	Notes      *string
}

type ListInvoiceResponse struct {
	Invoices []Invoice           `json:"invoices"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Get(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, filter ListFilter) (ListInvoiceResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest) (Invoice, error)
	AddPayment(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (Invoice, error)
	Delete(ctx context.Context, id snowflake.ID) error
	// RenderPDF returns the invoice document and its file name.
	RenderPDF(ctx context.Context, id snowflake.ID) ([]byte, string, error)
}

var (
	ErrNotFound          = errors.New("invoice_not_found")
	ErrOrderNotCompleted = errors.New("order_not_completed")
	ErrAlreadyInvoiced   = errors.New("order_already_invoiced")
	ErrOverpaid          = errors.New("paid_amount_exceeds_total")
	ErrNegativeAmount    = errors.New("negative_amount")
	ErrInvalidPayment    = errors.New("payment_must_be_positive")
	ErrConcurrentUpdate  = errors.New("invoice_concurrently_updated")
	ErrInvoiceLocked     = errors.New("invoice_locked")
)
