package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/catalog/domain"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindRuler(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ruler, error) {
	var ruler domain.Ruler
	err := db.WithContext(ctx).
		Preload("Material").
		Preload("Color").
		Where("id = ?", id).
		First(&ruler).Error
	return found(&ruler, err)
}

func (r *repo) FindBatch(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	return found(&batch, err)
}

func (r *repo) FindConstantValue(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ConstantValue, error) {
	var value domain.ConstantValue
	err := db.WithContext(ctx).Where("id = ?", id).First(&value).Error
	return found(&value, err)
}

// FindPriceForRuler resolves the price row of the ruler's color for tier.
func (r *repo) FindPriceForRuler(ctx context.Context, db *gorm.DB, rulerID snowflake.ID, tier string) (*domain.PriceColor, error) {
	var price domain.PriceColor
	err := db.WithContext(ctx).
		Model(&domain.PriceColor{}).
		Joins("JOIN rulers ON rulers.color_id = price_colors.color_id").
		Where("rulers.id = ? AND price_colors.price_color_by = ?", rulerID, tier).
		First(&price).Error
	return found(&price, err)
}

func found[T any](row *T, err error) (*T, error) {
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}
