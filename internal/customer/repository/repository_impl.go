package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/customer/domain"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// AdjustBalance adds delta to the stored balance in a single statement so
// concurrent invoice operations on the same customer compose.
func (r *repo) AdjustBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) OutstandingBalance(ctx context.Context, db *gorm.DB, id snowflake.ID) (decimal.Decimal, error) {
	var remainders []decimal.Decimal
	err := db.WithContext(ctx).
		Table("invoices").
		Where("customer_id = ?", id).
		Pluck("remaining_amount", &remainders).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, remainders...).Round(2), nil
}
