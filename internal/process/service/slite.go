package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/process/domain"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) CreateSlite(ctx context.Context, actor auth.Actor, req domain.CreateSliteRequest) (domain.Slite, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectSlite, authorization.ActionCreate); err != nil {
		return domain.Slite{}, err
	}
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return domain.Slite{}, errs.Wrap(errs.KindValidation, domain.ErrBarcodeRequired, "barcode is required")
	}
	if err := nonNegative(req.InputLength, req.OutputLength, req.InputWidth, req.OutputLength22, req.OutputLength44, req.Waste); err != nil {
		return domain.Slite{}, err
	}
	if req.Destination != "" && !domain.ValidSliteDestination(req.Destination) {
		return domain.Slite{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidDestination, "invalid destination %q", req.Destination)
	}

	slite := domain.Slite{
		ID:                    s.genID.Generate(),
		ProductionOrderItemID: req.ItemID,
		UserID:                actor.ID,
		InputLength:           req.InputLength.Round(2),
		OutputLength:          req.OutputLength.Round(2),
		InputWidth:            req.InputWidth.Round(2),
		OutputLength22:        req.OutputLength22.Round(2),
		OutputLength44:        req.OutputLength44.Round(2),
		Waste:                 req.Waste.Round(2),
		Barcode:               barcode,
		Destination:           req.Destination,
		Notes:                 req.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkItem(ctx, tx, req.ItemID, productiondomain.TypeSlitting); err != nil {
			return err
		}
		existing, err := s.repo.FindSliteByBarcode(ctx, tx, barcode)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateBarcode(barcode)
		}
		if err := s.repo.InsertSlite(ctx, tx, &slite); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicateBarcode(barcode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Slite{}, err
	}

	s.metrics.RecordProcessRecorded(ctx, "slite")
	s.log.Info("slite recorded",
		zap.String("slite_id", slite.ID.String()),
		zap.String("production_item_id", req.ItemID.String()),
		zap.String("user_id", actor.ID.String()),
	)
	return s.findSlite(ctx, s.db, slite.ID)
}

func (s *Service) GetSlite(ctx context.Context, actor auth.Actor, id snowflake.ID) (domain.Slite, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectSlite, authorization.ActionView); err != nil {
		return domain.Slite{}, err
	}
	return s.findSlite(ctx, s.db, id)
}

func (s *Service) ListSlites(ctx context.Context, actor auth.Actor, filter domain.ListFilter) (domain.ListSliteResponse, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectSlite, authorization.ActionView); err != nil {
		return domain.ListSliteResponse{}, err
	}
	rows, total, err := s.repo.ListSlites(ctx, s.db, filter)
	if err != nil {
		return domain.ListSliteResponse{}, err
	}
	if rows == nil {
		rows = []domain.Slite{}
	}
	return domain.ListSliteResponse{
		Slites:   rows,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

func (s *Service) UpdateSlite(ctx context.Context, actor auth.Actor, id snowflake.ID, req domain.UpdateSliteRequest) (domain.Slite, error) {
	current, err := s.findSlite(ctx, s.db, id)
	if err != nil {
		return domain.Slite{}, err
	}
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectSlite, authorization.ActionUpdate); err != nil {
		return domain.Slite{}, err
	}

	fields, err := measureFields(map[string]*decimal.Decimal{
		"input_length":     req.InputLength,
		"output_length":    req.OutputLength,
		"input_width":      req.InputWidth,
		"output_length_22": req.OutputLength22,
		"output_length_44": req.OutputLength44,
		"waste":            req.Waste,
	})
	if err != nil {
		return domain.Slite{}, err
	}
	if req.Destination != nil {
		if !domain.ValidSliteDestination(*req.Destination) {
			return domain.Slite{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidDestination, "invalid destination %q", *req.Destination)
		}
		fields["destination"] = *req.Destination
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
				other, err := s.repo.FindSliteByBarcode(ctx, tx, barcode)
				if err != nil {
					return err
				}
				if other != nil {
					return duplicateBarcode(barcode)
				}
			}
			fields["barcode"] = barcode
		}
		if err := s.repo.UpdateSlite(ctx, tx, id, fields); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return duplicateBarcode(*req.Barcode)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Slite{}, err
	}

	s.log.Info("slite updated", zap.String("slite_id", id.String()))
	return s.findSlite(ctx, s.db, id)
}

func (s *Service) DeleteSlite(ctx context.Context, actor auth.Actor, id snowflake.ID) error {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectSlite, authorization.ActionDelete); err != nil {
		return err
	}
	if _, err := s.findSlite(ctx, s.db, id); err != nil {
		return err
	}
	if err := s.repo.DeleteSlite(ctx, s.db, id); err != nil {
		return err
	}
	s.log.Info("slite deleted", zap.String("slite_id", id.String()))
	return nil
}

func (s *Service) findSlite(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Slite, error) {
	v, err := s.repo.FindSlite(ctx, tx, id)
	if err != nil {
		return domain.Slite{}, err
	}
	if v == nil {
		return domain.Slite{}, errs.Wrap(errs.KindNotFound, domain.ErrSliteNotFound, "slite %s not found", id)
	}
	return *v, nil
}
