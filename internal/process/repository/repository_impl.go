package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/process/domain"
	pkgdb "github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/option"
	"github.com/smallbiznis/millrun/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) processes(db *gorm.DB) repository.Repository[domain.Process] {
	return repository.ProvideStore[domain.Process](db)
}

func (r *repo) slites(db *gorm.DB) repository.Repository[domain.Slite] {
	return repository.ProvideStore[domain.Slite](db)
}

func (r *repo) InsertProcess(ctx context.Context, db *gorm.DB, p *domain.Process) error {
	return r.processes(db).Create(ctx, p)
}

func (r *repo) FindProcess(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Process, error) {
	return r.processes(db).FindByID(ctx, id)
}

func (r *repo) FindProcessByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*domain.Process, error) {
	return r.processes(db).FindOne(ctx, &domain.Process{Barcode: barcode})
}

func (r *repo) ListProcesses(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Process, int64, error) {
	var rows []domain.Process
	total, err := list(ctx, db, &domain.Process{}, filter, &rows)
	return rows, total, err
}

func (r *repo) UpdateProcess(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return r.processes(db).Update(ctx, id, fields)
}

func (r *repo) DeleteProcess(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return r.processes(db).Delete(ctx, id)
}

func (r *repo) InsertSlite(ctx context.Context, db *gorm.DB, s *domain.Slite) error {
	return r.slites(db).Create(ctx, s)
}

func (r *repo) FindSlite(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Slite, error) {
	return r.slites(db).FindByID(ctx, id)
}

func (r *repo) FindSliteByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*domain.Slite, error) {
	return r.slites(db).FindOne(ctx, &domain.Slite{Barcode: barcode})
}

func (r *repo) ListSlites(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Slite, int64, error) {
	var rows []domain.Slite
	total, err := list(ctx, db, &domain.Slite{}, filter, &rows)
	return rows, total, err
}

func (r *repo) UpdateSlite(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return r.slites(db).Update(ctx, id, fields)
}

func (r *repo) DeleteSlite(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return r.slites(db).Delete(ctx, id)
}

func list(ctx context.Context, db *gorm.DB, model any, filter domain.ListFilter, dest any) (int64, error) {
	stmt := db.WithContext(ctx).Model(model)
	if filter.ItemID != 0 {
		stmt = stmt.Where("production_order_item_id = ?", filter.ItemID)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return 0, err
	}
	err := option.ApplyPagination(filter.Page).
		Apply(stmt.Order("created_at desc, id desc")).
		Find(dest).Error
	if err != nil && !pkgdb.IsNotFound(err) {
		return 0, err
	}
	return total, nil
}
