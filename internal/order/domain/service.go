package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type ItemInput struct {
	RulerID           snowflake.ID
	BatchID           snowflake.ID
	TypeItemID        snowflake.ID
	ConstantWidth     decimal.Decimal
	Length            decimal.Decimal
	ConstantThickness decimal.Decimal
	Quantity          int64
	// UnitPrice is resolved from the price table when zero.
	UnitPrice decimal.Decimal
	Notes     string
}

type CreateOrderRequest struct {
	CustomerID  snowflake.ID
	SalesUserID snowflake.ID
	Notes       string
	Items       []ItemInput
}

type UpdateOrderRequest struct {
	CustomerID *snowflake.ID
	Notes      *string
}

type UpdateItemRequest struct {
	RulerID           *snowflake.ID
	BatchID           *snowflake.ID
	TypeItemID        *snowflake.ID
	ConstantWidth     *decimal.Decimal
	Length            *decimal.Decimal
	ConstantThickness *decimal.Decimal
	Quantity          *int64
	UnitPrice         *decimal.Decimal
	Notes             *string
}

type ListOrderResponse struct {
	Orders   []OrderView         `json:"orders"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (OrderView, error)
	Get(ctx context.Context, id snowflake.ID) (OrderView, error)
	List(ctx context.Context, filter ListFilter) (ListOrderResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateOrderRequest) (OrderView, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status Status) (OrderView, error)
	Delete(ctx context.Context, id snowflake.ID) error

	AddItem(ctx context.Context, orderID snowflake.ID, item ItemInput) (OrderView, error)
	UpdateItem(ctx context.Context, orderID, itemID snowflake.ID, req UpdateItemRequest) (OrderView, error)
	DeleteItem(ctx context.Context, orderID, itemID snowflake.ID) (OrderView, error)
}

var (
	ErrNotFound           = errors.New("order_not_found")
	ErrItemNotFound       = errors.New("order_item_not_found")
	ErrEmptyOrder         = errors.New("order_requires_items")
	ErrLastItem           = errors.New("order_last_item")
	ErrNotMutable         = errors.New("order_not_mutable")
	ErrInvalidStatus      = errors.New("invalid_order_status")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrOutstandingBalance = errors.New("customer_outstanding_balance")
	ErrHasInvoices        = errors.New("order_has_invoices")
)
