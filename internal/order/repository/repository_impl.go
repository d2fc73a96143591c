package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/order/domain"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Order, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.SalesUserID != 0 {
		stmt = stmt.Where("sales_user_id = ?", filter.SalesUserID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndDate)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []domain.Order
	err := option.ApplyPagination(filter.Page).
		Apply(stmt.Order("created_at desc, id desc")).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) UpdateTotal(ctx context.Context, db *gorm.DB, id snowflake.ID, total decimal.Decimal) error {
	return db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Update("total_amount", total).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Order{}).Error
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*domain.OrderItem, error) {
	var item domain.OrderItem
	err := db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		First(&item).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListItemsByOrders(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var items []domain.OrderItem
	err := db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) SaveItem(ctx context.Context, db *gorm.DB, item *domain.OrderItem) error {
	return db.WithContext(ctx).Save(item).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Delete(&domain.OrderItem{}).Error
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) error {
	return db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&domain.OrderItem{}).Error
}

func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("invoices").Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}
