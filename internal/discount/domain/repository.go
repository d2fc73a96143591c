package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListDiscountFilter struct {
	Search string
}

type Repository interface {
	// ListRules returns every rule ordered by quantity threshold, highest first.
	ListRules(ctx context.Context, db *gorm.DB) ([]Discount, error)
	List(ctx context.Context, db *gorm.DB, filter ListDiscountFilter) ([]Discount, int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Discount, error)
	Insert(ctx context.Context, db *gorm.DB, discount *Discount) error
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
