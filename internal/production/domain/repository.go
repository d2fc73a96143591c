package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	// Search matches notes, or the order id when numeric.
	Search string
	Page   pagination.Pagination
}

type Repository interface {
	InsertOrder(ctx context.Context, db *gorm.DB, order *ProductionOrder) error
	FindOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ProductionOrder, error)
	ListOrders(ctx context.Context, db *gorm.DB, filter ListFilter) ([]ProductionOrder, int64, error)
	UpdateOrderFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	FindItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Item, error)
	// ListItems returns the items of the given orders restricted to types.
	// A nil types slice means no restriction.
	ListItems(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID, types []ProductionType) ([]Item, error)
	UpdateItemFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteItemsByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error

	// CountExecutions counts process and slite records attached to items.
	CountExecutions(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) (int64, error)
}
