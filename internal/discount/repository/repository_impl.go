package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/smallbiznis/millrun/pkg/db/option"
	"github.com/smallbiznis/millrun/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) store(db *gorm.DB) repository.Repository[domain.Discount] {
	return repository.ProvideStore[domain.Discount](db)
}

func (r *repo) ListRules(ctx context.Context, db *gorm.DB) ([]domain.Discount, error) {
	rows, err := r.store(db).Find(ctx, nil, option.WithOrder("quantity desc, id asc"))
	if err != nil {
		return nil, err
	}
	return deref(rows), nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListDiscountFilter) ([]domain.Discount, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Discount{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		stmt = stmt.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var discounts []domain.Discount
	if err := stmt.Order("quantity desc, id asc").Find(&discounts).Error; err != nil {
		return nil, 0, err
	}
	return discounts, total, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Discount, error) {
	return r.store(db).FindByID(ctx, id)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, discount *domain.Discount) error {
	return r.store(db).Create(ctx, discount)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return r.store(db).Update(ctx, id, fields)
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return r.store(db).Delete(ctx, id)
}

func deref(rows []*domain.Discount) []domain.Discount {
	out := make([]domain.Discount, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	return out
}
