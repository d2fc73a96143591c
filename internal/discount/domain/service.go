package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateDiscountRequest struct {
	Name              string
	Description       string
	Type              Type
	QuantityCondition Condition
	Quantity          decimal.Decimal
	Value             decimal.Decimal
}

type UpdateDiscountRequest struct {
	Name              *string
	Description       *string
	Type              *Type
	QuantityCondition *Condition
	Quantity          *decimal.Decimal
	Value             *decimal.Decimal
}

type ListDiscountResponse struct {
	Discounts []Discount `json:"discounts"`
	Total     int64      `json:"total"`
}

// Resolver picks the discount for a single order line. db is the handle the
// caller is working in, so lookups can join an open transaction.
type Resolver interface {
	Resolve(ctx context.Context, db *gorm.DB, measure, amount decimal.Decimal) (*Applied, error)
}

type Service interface {
	Resolver
	List(ctx context.Context, filter ListDiscountFilter) (ListDiscountResponse, error)
	Get(ctx context.Context, id snowflake.ID) (Discount, error)
	Create(ctx context.Context, req CreateDiscountRequest) (Discount, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateDiscountRequest) (Discount, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound         = errors.New("discount_not_found")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidCondition = errors.New("invalid_quantity_condition")
	ErrInvalidValue     = errors.New("invalid_value")
	ErrInvalidQuantity  = errors.New("invalid_quantity")
)
