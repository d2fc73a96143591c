package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the read side of the catalog. Finders return (nil, nil)
// when the row does not exist.
type Repository interface {
	FindRuler(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ruler, error)
	FindBatch(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Batch, error)
	FindConstantValue(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ConstantValue, error)
	FindPriceForRuler(ctx context.Context, db *gorm.DB, rulerID snowflake.ID, tier string) (*PriceColor, error)
}
