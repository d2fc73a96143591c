package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Catalog catalogdomain.Repository
	Authz   authorization.Service
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	catalog catalogdomain.Repository
	authz   authorization.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("production.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		catalog: p.Catalog,
		authz:   p.Authz,
		metrics: p.Metrics,
	}
}

func (s *Service) CreateOrder(ctx context.Context, actor auth.Actor, req domain.CreateOrderRequest) (domain.OrderView, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProductionOrder, authorization.ActionCreate); err != nil {
		return domain.OrderView{}, err
	}
	if err := s.checkReferences(ctx, &req.RulerID, &req.BatchID, &req.TypeItemID); err != nil {
		return domain.OrderView{}, err
	}

	order := domain.ProductionOrder{
		ID:                s.genID.Generate(),
		UserID:            actor.ID,
		RulerID:           req.RulerID,
		BatchID:           req.BatchID,
		TypeItemID:        req.TypeItemID,
		ConstantWidth:     req.ConstantWidth.Round(2),
		Length:            req.Length.Round(2),
		ConstantThickness: req.ConstantThickness.Round(2),
		Status:            domain.StatusPending,
		Notes:             req.Notes,
	}
	if err := s.repo.InsertOrder(ctx, s.db, &order); err != nil {
		return domain.OrderView{}, err
	}

	s.log.Info("production order created",
		zap.String("production_order_id", order.ID.String()),
		zap.String("user_id", actor.ID.String()),
	)
	return s.GetOrder(ctx, actor, order.ID)
}

// GetOrder returns the order with the items the actor's role may see.
func (s *Service) GetOrder(ctx context.Context, actor auth.Actor, id snowflake.ID) (domain.OrderView, error) {
	order, err := s.findOrder(ctx, s.db, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	views, err := s.buildViews(ctx, actor, []domain.ProductionOrder{*order})
	if err != nil {
		return domain.OrderView{}, err
	}
	return views[0], nil
}

func (s *Service) ListOrders(ctx context.Context, actor auth.Actor, filter domain.ListFilter) (domain.ListOrderResponse, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListOrderResponse{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "invalid status %q", filter.Status)
	}
	orders, total, err := s.repo.ListOrders(ctx, s.db, filter)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}
	views, err := s.buildViews(ctx, actor, orders)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}
	return domain.ListOrderResponse{
		Orders:   views,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

func (s *Service) UpdateOrder(ctx context.Context, actor auth.Actor, id snowflake.ID, req domain.UpdateOrderRequest) (domain.OrderView, error) {
	if _, err := s.findOrder(ctx, s.db, id); err != nil {
		return domain.OrderView{}, err
	}
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProductionOrder, authorization.ActionUpdate); err != nil {
		return domain.OrderView{}, err
	}
	if err := s.checkReferences(ctx, req.RulerID, req.BatchID, req.TypeItemID); err != nil {
		return domain.OrderView{}, err
	}

	fields := map[string]any{}
	if req.RulerID != nil {
		fields["ruler_id"] = *req.RulerID
	}
	if req.BatchID != nil {
		fields["batch_id"] = *req.BatchID
	}
	if req.TypeItemID != nil {
		fields["type_item"] = *req.TypeItemID
	}
	if req.ConstantWidth != nil {
		fields["constant_width"] = req.ConstantWidth.Round(2)
	}
	if req.Length != nil {
		fields["length"] = req.Length.Round(2)
	}
	if req.ConstantThickness != nil {
		fields["constant_thickness"] = req.ConstantThickness.Round(2)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.OrderView{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "invalid status %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if err := s.repo.UpdateOrderFields(ctx, s.db, id, fields); err != nil {
		return domain.OrderView{}, err
	}
	s.log.Info("production order updated",
		zap.String("production_order_id", id.String()),
		zap.String("user_id", actor.ID.String()),
	)
	return s.GetOrder(ctx, actor, id)
}

// DeleteOrder removes the order and its items unless any item already has
// process or slite records.
func (s *Service) DeleteOrder(ctx context.Context, actor auth.Actor, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, id); err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectProductionOrder, authorization.ActionDelete); err != nil {
			return err
		}

		items, err := s.repo.ListItems(ctx, tx, []snowflake.ID{id}, nil)
		if err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		linked, err := s.repo.CountExecutions(ctx, tx, ids)
		if err != nil {
			return err
		}
		if linked > 0 {
			return errs.Wrap(errs.KindConflict, domain.ErrHasExecutions,
				"production order %s has %d linked process records", id, linked)
		}

		if err := s.repo.DeleteItemsByOrder(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.DeleteOrder(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("production order deleted", zap.String("production_order_id", id.String()))
	return nil
}

func (s *Service) findOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ProductionOrder, error) {
	order, err := s.repo.FindOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.Wrap(errs.KindNotFound, domain.ErrNotFound, "production order %s not found", id)
	}
	return order, nil
}

// checkReferences validates the non-nil catalog references.
func (s *Service) checkReferences(ctx context.Context, rulerID, batchID, typeItemID *snowflake.ID) error {
	if rulerID != nil {
		ruler, err := s.catalog.FindRuler(ctx, s.db, *rulerID)
		if err != nil {
			return err
		}
		if ruler == nil {
			return errs.Wrap(errs.KindNotFound, domain.ErrMissingReference, "ruler %s not found", *rulerID)
		}
	}
	if batchID != nil {
		batch, err := s.catalog.FindBatch(ctx, s.db, *batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return errs.Wrap(errs.KindNotFound, domain.ErrMissingReference, "batch %s not found", *batchID)
		}
	}
	if typeItemID != nil {
		value, err := s.catalog.FindConstantValue(ctx, s.db, *typeItemID)
		if err != nil {
			return err
		}
		if value == nil {
			return errs.Wrap(errs.KindNotFound, domain.ErrMissingReference, "type item %s not found", *typeItemID)
		}
	}
	return nil
}

// allowedTypes lists the production types role may see; empty when none.
func (s *Service) allowedTypes(role string) []domain.ProductionType {
	names := s.authz.AllowedProductionTypes(role)
	types := make([]domain.ProductionType, 0, len(names))
	for _, n := range names {
		types = append(types, domain.ProductionType(n))
	}
	return types
}

func (s *Service) buildViews(ctx context.Context, actor auth.Actor, orders []domain.ProductionOrder) ([]domain.OrderView, error) {
	views := make([]domain.OrderView, 0, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	ids := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.ListItems(ctx, s.db, ids, s.allowedTypes(actor.Role))
	if err != nil {
		return nil, err
	}
	byOrder := make(map[snowflake.ID][]domain.Item, len(orders))
	for _, item := range items {
		byOrder[item.ProductionOrderID] = append(byOrder[item.ProductionOrderID], item)
	}

	labels := newLabeler(s)
	for _, o := range orders {
		view := domain.OrderView{ProductionOrder: o, Items: byOrder[o.ID]}
		if view.Items == nil {
			view.Items = []domain.Item{}
		}
		if err := labels.apply(ctx, &view); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
