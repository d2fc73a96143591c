package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/pkg/db/option"
	"github.com/smallbiznis/millrun/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Invoice] {
	return repository.ProvideStore[domain.Invoice](db)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return r.store(db).Create(ctx, invoice)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.store(db).FindByID(ctx, id)
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Invoice, error) {
	return r.store(db).FindOne(ctx, &domain.Invoice{OrderID: orderID})
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	if filter.IssuedBy != 0 {
		stmt = stmt.Where("issued_by = ?", filter.IssuedBy)
	}
	if filter.StartDate != nil {
		stmt = stmt.Where("issued_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		stmt = stmt.Where("issued_at <= ?", *filter.EndDate)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	invoices := []domain.Invoice{}
	err := option.ApplyPagination(filter.Page).
		Apply(stmt.Order("issued_at desc, id desc")).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) UpdateIfPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedPaid decimal.Decimal, fields map[string]any) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND paid_amount = ?", id, expectedPaid).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return r.store(db).Delete(ctx, id)
}
