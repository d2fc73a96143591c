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
	CustomerID  snowflake.ID
	SalesUserID snowflake.ID
	Status      Status
	StartDate   *time.Time
	EndDate     *time.Time
	Page        pagination.Pagination
}

// Repository finders return (nil, nil) when the row does not exist.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Order, int64, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	UpdateTotal(ctx context.Context, db *gorm.DB, id snowflake.ID, total decimal.Decimal) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*OrderItem, error)
	ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	ListItemsByOrders(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]OrderItem, error)
	SaveItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) error
	DeleteItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error

	// CountInvoices reports how many invoices reference the order.
	CountInvoices(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error)
}
