package repository

import (
	"context"

	"github.com/smallbiznis/millrun/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for plain entity tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id any, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id any, fields map[string]any) error
	Delete(ctx context.Context, id any) error
	Count(ctx context.Context, query *T) (int64, error)
}
