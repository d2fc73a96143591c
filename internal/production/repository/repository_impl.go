package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/production/domain"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/option"
	"gorm.io/gorm"
)

// Tables of the execution records; counted here to keep production free of
// a dependency on the process package.
const (
	processTable = "production_processes"
	sliteTable   = "slites"
	itemColumn   = "production_order_item_id"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *domain.ProductionOrder) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProductionOrder, error) {
	var order domain.ProductionOrder
	err := db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.ProductionOrder, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.ProductionOrder{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		if id, err := strconv.ParseInt(search, 10, 64); err == nil {
			stmt = stmt.Where("notes LIKE ? OR id = ?", like, id)
		} else {
			stmt = stmt.Where("notes LIKE ?", like)
		}
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []domain.ProductionOrder
	err := option.ApplyPagination(filter.Page).
		Apply(stmt.Order("created_at desc, id desc")).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) UpdateOrderFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.ProductionOrder{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) DeleteOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.ProductionOrder{}).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID, types []domain.ProductionType) ([]domain.Item, error) {
	if len(orderIDs) == 0 || (types != nil && len(types) == 0) {
		return []domain.Item{}, nil
	}
	stmt := db.WithContext(ctx).Where("production_order_id IN ?", orderIDs)
	if types != nil {
		stmt = stmt.Where("type IN ?", types)
	}
	var items []domain.Item
	if err := stmt.Order("created_at asc, id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateItemFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Item{}).Error
}

func (r *repo) DeleteItemsByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error {
	return db.WithContext(ctx).Where("production_order_id = ?", orderID).Delete(&domain.Item{}).Error
}

func (r *repo) CountExecutions(ctx context.Context, db *gorm.DB, itemIDs []snowflake.ID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	var total int64
	for _, table := range []string{processTable, sliteTable} {
		var n int64
		err := db.WithContext(ctx).Table(table).Where(itemColumn+" IN ?", itemIDs).Count(&n).Error
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
