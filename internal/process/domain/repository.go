package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	ItemID snowflake.ID
	Page   pagination.Pagination
}

// Repository stores both execution record kinds. Finders return (nil, nil)
// when nothing matches.
type Repository interface {
	InsertProcess(ctx context.Context, db *gorm.DB, p *Process) error
	FindProcess(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Process, error)
	FindProcessByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*Process, error)
	ListProcesses(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Process, int64, error)
	UpdateProcess(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteProcess(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertSlite(ctx context.Context, db *gorm.DB, s *Slite) error
	FindSlite(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Slite, error)
	FindSliteByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*Slite, error)
	ListSlites(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Slite, int64, error)
	UpdateSlite(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteSlite(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
