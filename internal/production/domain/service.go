package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type CreateOrderRequest struct {
	RulerID           snowflake.ID
	BatchID           snowflake.ID
	TypeItemID        snowflake.ID
	ConstantWidth     decimal.Decimal
	Length            decimal.Decimal
	ConstantThickness decimal.Decimal
	Notes             string
}

type UpdateOrderRequest struct {
	RulerID           *snowflake.ID
	BatchID           *snowflake.ID
	TypeItemID        *snowflake.ID
	ConstantWidth     *decimal.Decimal
	Length            *decimal.Decimal
	ConstantThickness *decimal.Decimal
	Status            *Status
	Notes             *string
}

// ItemSpec requests one routed run through Types, in order.
type ItemSpec struct {
	Types         []ProductionType
	ConstantWidth decimal.Decimal
	Length        decimal.Decimal
	Quantity      int64
	Notes         string
}

type UpdateItemRequest struct {
	ConstantWidth *decimal.Decimal
	Length        *decimal.Decimal
	Quantity      *int64
	Status        *Status
	Notes         *string
}

type ListOrderResponse struct {
	Orders   []OrderView         `json:"orders"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, req CreateOrderRequest) (OrderView, error)
	GetOrder(ctx context.Context, actor auth.Actor, id snowflake.ID) (OrderView, error)
	ListOrders(ctx context.Context, actor auth.Actor, filter ListFilter) (ListOrderResponse, error)
	UpdateOrder(ctx context.Context, actor auth.Actor, id snowflake.ID, req UpdateOrderRequest) (OrderView, error)
	DeleteOrder(ctx context.Context, actor auth.Actor, id snowflake.ID) error

	CreateItems(ctx context.Context, actor auth.Actor, orderID snowflake.ID, specs []ItemSpec) ([]Item, error)
	GetItem(ctx context.Context, actor auth.Actor, id snowflake.ID) (Item, error)
	ListItems(ctx context.Context, actor auth.Actor, orderID snowflake.ID) ([]Item, error)
	UpdateItemStatus(ctx context.Context, actor auth.Actor, id snowflake.ID, status Status) (Item, error)
	UpdateItem(ctx context.Context, actor auth.Actor, id snowflake.ID, req UpdateItemRequest) (Item, error)
	DeleteItem(ctx context.Context, actor auth.Actor, id snowflake.ID) error
}

var (
	ErrNotFound         = errors.New("production_order_not_found")
	ErrItemNotFound     = errors.New("production_item_not_found")
	ErrNotPending       = errors.New("production_order_not_pending")
	ErrInvalidStatus    = errors.New("invalid_production_status")
	ErrInvalidType      = errors.New("invalid_production_type")
	ErrEmptyRoute       = errors.New("empty_production_route")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
	ErrTypeForbidden    = errors.New("production_type_forbidden")
	ErrHasExecutions    = errors.New("production_has_executions")
	ErrMissingReference = errors.New("production_reference_not_found")
)
