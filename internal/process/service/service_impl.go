package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/smallbiznis/millrun/internal/process/domain"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Production productiondomain.Repository
	Authz      authorization.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	production productiondomain.Repository
	authz      authorization.Service
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("process.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		production: p.Production,
		authz:      p.Authz,
		metrics:    p.Metrics,
	}
}

// CreateProcess records a cutting or gluing run. Checks run in order: role,
// item exists, item pending, item type, barcode unused.
func (s *Service) CreateProcess(ctx context.Context, actor auth.Actor, req domain.CreateProcessRequest) (domain.Process, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProcess, authorization.ActionCreate); err != nil {
		return domain.Process{}, err
	}
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return domain.Process{}, errs.Wrap(errs.KindValidation, domain.ErrBarcodeRequired, "barcode is required")
	}
	if err := nonNegative(req.InputLength, req.OutputLength, req.InputWidth, req.Waste); err != nil {
		return domain.Process{}, err
	}

	process := domain.Process{
		ID:                    s.genID.Generate(),
		ProductionOrderItemID: req.ItemID,
		UserID:                actor.ID,
		InputLength:           req.InputLength.Round(2),
		OutputLength:          req.OutputLength.Round(2),
		InputWidth:            req.InputWidth.Round(2),
		Waste:                 req.Waste.Round(2),
		Barcode:               barcode,
		Notes:                 req.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkItem(ctx, tx, req.ItemID, productiondomain.TypeCutting, productiondomain.TypeGluing); err != nil {
			return err
		}
		existing, err := s.repo.FindProcessByBarcode(ctx, tx, barcode)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateBarcode(barcode)
		}
		if err := s.repo.InsertProcess(ctx, tx, &process); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicateBarcode(barcode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Process{}, err
	}

	s.metrics.RecordProcessRecorded(ctx, "process")
	s.log.Info("production process recorded",
		zap.String("process_id", process.ID.String()),
		zap.String("production_item_id", req.ItemID.String()),
		zap.String("user_id", actor.ID.String()),
	)
	return s.findProcess(ctx, s.db, process.ID)
}

func (s *Service) GetProcess(ctx context.Context, actor auth.Actor, id snowflake.ID) (domain.Process, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProcess, authorization.ActionView); err != nil {
		return domain.Process{}, err
	}
	return s.findProcess(ctx, s.db, id)
}

func (s *Service) ListProcesses(ctx context.Context, actor auth.Actor, filter domain.ListFilter) (domain.ListProcessResponse, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProcess, authorization.ActionView); err != nil {
		return domain.ListProcessResponse{}, err
	}
	rows, total, err := s.repo.ListProcesses(ctx, s.db, filter)
	if err != nil {
		return domain.ListProcessResponse{}, err
	}
	if rows == nil {
		rows = []domain.Process{}
	}
	return domain.ListProcessResponse{
		Processes: rows,
		PageInfo:  pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

// UpdateProcess corrects a recorded run; the item's state is not checked.
func (s *Service) UpdateProcess(ctx context.Context, actor auth.Actor, id snowflake.ID, req domain.UpdateProcessRequest) (domain.Process, error) {
	current, err := s.findProcess(ctx, s.db, id)
	if err != nil {
		return domain.Process{}, err
	}
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProcess, authorization.ActionUpdate); err != nil {
		return domain.Process{}, err
	}

	fields, err := measureFields(map[string]*decimal.Decimal{
		"input_length":  req.InputLength,
		"output_length": req.OutputLength,
		"input_width":   req.InputWidth,
		"waste":         req.Waste,
	})
	if err != nil {
		return domain.Process{}, err
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Barcode != nil {
			barcode := strings.TrimSpace(*req.Barcode)
			if barcode == "" {
				return errs.Wrap(errs.KindValidation, domain.ErrBarcodeRequired, "barcode is required")
			}
			if barcode != current.Barcode {
				other, err := s.repo.FindProcessByBarcode(ctx, tx, barcode)
				if err != nil {
					return err
				}
				if other != nil {
					return duplicateBarcode(barcode)
				}
			}
			fields["barcode"] = barcode
		}
		if err := s.repo.UpdateProcess(ctx, tx, id, fields); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicateBarcode(*req.Barcode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Process{}, err
	}

	s.log.Info("production process updated", zap.String("process_id", id.String()))
	return s.findProcess(ctx, s.db, id)
}

func (s *Service) DeleteProcess(ctx context.Context, actor auth.Actor, id snowflake.ID) error {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProcess, authorization.ActionDelete); err != nil {
		return err
	}
	if _, err := s.findProcess(ctx, s.db, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProcess(ctx, s.db, id); err != nil {
		return err
	}
	s.log.Info("production process deleted", zap.String("process_id", id.String()))
	return nil
}

func (s *Service) findProcess(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Process, error) {
	p, err := s.repo.FindProcess(ctx, tx, id)
	if err != nil {
		return domain.Process{}, err
	}
	if p == nil {
		return domain.Process{}, errs.Wrap(errs.KindNotFound, domain.ErrProcessNotFound, "process %s not found", id)
	}
	return *p, nil
}

// checkItem requires a pending item whose type is one of types.
func (s *Service) checkItem(ctx context.Context, tx *gorm.DB, itemID snowflake.ID, types ...productiondomain.ProductionType) error {
	item, err := s.production.FindItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return errs.Wrap(errs.KindNotFound, productiondomain.ErrItemNotFound, "production item %s not found", itemID)
	}
	if item.Status != productiondomain.StatusPending {
		return errs.Wrap(errs.KindInvalidState, domain.ErrItemNotPending,
			"production item %s is %s; runs can only be recorded while pending", item.ID, item.Status)
	}
	for _, t := range types {
		if item.Type == t {
			return nil
		}
	}
	return errs.Wrap(errs.KindValidation, domain.ErrWrongItemType,
		"production item %s is a %s stage", item.ID, item.Type)
}

func duplicateBarcode(barcode string) error {
	return errs.Wrap(errs.KindConflict, domain.ErrDuplicateBarcode, "barcode %s is already in use", barcode)
}

func nonNegative(values ...decimal.Decimal) error {
	for _, v := range values {
		if v.IsNegative() {
			return errs.Wrap(errs.KindValidation, domain.ErrNegativeMeasure, "measures must not be negative")
		}
	}
	return nil
}

// measureFields turns the set measures into rounded update columns.
func measureFields(measures map[string]*decimal.Decimal) (map[string]any, error) {
	fields := map[string]any{}
	for column, v := range measures {
		if v == nil {
			continue
		}
		if err := nonNegative(*v); err != nil {
			return nil, err
		}
		fields[column] = v.Round(2)
	}
	return fields, nil
}
