package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID snowflake.ID
	OrderID    snowflake.ID
	IssuedBy   snowflake.ID
	StartDate  *time.Time
	EndDate    *time.Time
	Page       pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, int64, error)
	// UpdateIfPaid applies fields only while paid_amount still equals
	// expectedPaid and reports whether a row changed.
	UpdateIfPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedPaid decimal.Decimal, fields map[string]any) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
