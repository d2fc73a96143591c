package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/production/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateItems expands every spec into routed items and moves the parent
// order to preparing once at least one item exists.
func (s *Service) CreateItems(ctx context.Context, actor auth.Actor, orderID snowflake.ID, specs []domain.ItemSpec) ([]domain.Item, error) {
	var created []domain.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.findOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProductionItem, authorization.ActionCreate); err != nil {
			return err
		}
		if order.Status != domain.StatusPending {
			return errs.Wrap(errs.KindInvalidState, domain.ErrNotPending,
				"production order %s is %s; stages can only be added while pending", order.ID, order.Status)
		}

		created = make([]domain.Item, 0, len(specs))
		for _, spec := range specs {
			if spec.Quantity < 1 {
				return errs.Wrap(errs.KindValidation, domain.ErrInvalidQuantity, "quantity must be at least 1")
			}
			route := datatypes.JSONSlice[domain.ProductionType](spec.Types)
			for _, leg := range domain.Route(spec.Types) {
				created = append(created, domain.Item{
					ID:                s.genID.Generate(),
					ProductionOrderID: order.ID,
					Type:              leg.Type,
					Source:            leg.Source,
					Destination:       leg.Destination,
					Status:            domain.StatusPending,
					ConstantWidth:     spec.ConstantWidth.Round(2),
					Length:            spec.Length.Round(2),
					Quantity:          spec.Quantity,
					Notes:             spec.Notes,
					Route:             route,
				})
			}
		}
		if len(created) == 0 {
			return nil
		}

		if err := s.repo.InsertItems(ctx, tx, created); err != nil {
			return err
		}
		return s.repo.UpdateOrderFields(ctx, tx, order.ID, map[string]any{"status": domain.StatusPreparing})
	})
	if err != nil {
		return nil, err
	}

	perType := map[domain.ProductionType]int{}
	for _, item := range created {
		perType[item.Type]++
	}
	for t, n := range perType {
		s.metrics.RecordItemsRouted(ctx, string(t), n)
	}
	s.log.Info("production items routed",
		zap.String("production_order_id", orderID.String()),
		zap.Int("count", len(created)),
	)
	return created, nil
}

func (s *Service) GetItem(ctx context.Context, actor auth.Actor, id snowflake.ID) (domain.Item, error) {
	item, err := s.visibleItem(ctx, s.db, actor, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

// ListItems returns the order's items of the types the actor may see.
func (s *Service) ListItems(ctx context.Context, actor auth.Actor, orderID snowflake.ID) ([]domain.Item, error) {
	if _, err := s.findOrder(ctx, s.db, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, s.db, []snowflake.ID{orderID}, s.allowedTypes(actor.Role))
}

func (s *Service) UpdateItemStatus(ctx context.Context, actor auth.Actor, id snowflake.ID, status domain.Status) (domain.Item, error) {
	if !status.Valid() {
		return domain.Item{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "invalid status %q", status)
	}
	return s.UpdateItem(ctx, actor, id, domain.UpdateItemRequest{Status: &status})
}

func (s *Service) UpdateItem(ctx context.Context, actor auth.Actor, id snowflake.ID, req domain.UpdateItemRequest) (domain.Item, error) {
	item, err := s.visibleItem(ctx, s.db, actor, id)
	if err != nil {
		return domain.Item{}, err
	}

	fields := map[string]any{}
	if req.ConstantWidth != nil {
		fields["constant_width"] = req.ConstantWidth.Round(2)
	}
	if req.Length != nil {
		fields["length"] = req.Length.Round(2)
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return domain.Item{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidQuantity, "quantity must be at least 1")
		}
		fields["quantity"] = *req.Quantity
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.Item{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "invalid status %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if err := s.repo.UpdateItemFields(ctx, s.db, item.ID, fields); err != nil {
		return domain.Item{}, err
	}
	s.log.Info("production item updated",
		zap.String("production_item_id", item.ID.String()),
		zap.String("type", string(item.Type)),
	)

	updated, err := s.repo.FindItem(ctx, s.db, item.ID)
	if err != nil {
		return domain.Item{}, err
	}
	if updated == nil {
		return domain.Item{}, errs.Wrap(errs.KindNotFound, domain.ErrItemNotFound, "production item %s not found", id)
	}
	return *updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, actor auth.Actor, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.findItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProductionItem, authorization.ActionDelete); err != nil {
			return err
		}
		linked, err := s.repo.CountExecutions(ctx, tx, []snowflake.ID{item.ID})
		if err != nil {
			return err
		}
		if linked > 0 {
			return errs.Wrap(errs.KindConflict, domain.ErrHasExecutions,
				"production item %s has %d linked process records", item.ID, linked)
		}
		return s.repo.DeleteItem(ctx, tx, item.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("production item deleted", zap.String("production_item_id", id.String()))
	return nil
}

func (s *Service) findItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Item, error) {
	item, err := s.repo.FindItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errs.Wrap(errs.KindNotFound, domain.ErrItemNotFound, "production item %s not found", id)
	}
	return item, nil
}

// visibleItem loads an item and fails with Forbidden when its type is
// outside the actor's production types.
func (s *Service) visibleItem(ctx context.Context, db *gorm.DB, actor auth.Actor, id snowflake.ID) (*domain.Item, error) {
	item, err := s.findItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanAccessProductionType(actor.Role, string(item.Type)) {
		return nil, errs.Wrap(errs.KindForbidden, domain.ErrTypeForbidden,
			"role %s may not access %s items", actor.Role, item.Type)
	}
	return item, nil
}
