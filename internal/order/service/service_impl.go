package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	"github.com/smallbiznis/millrun/internal/config"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/pricing"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Catalog   catalogdomain.Repository
	Customers customerdomain.Repository
	Pricing   *pricing.Engine
	Policy    *config.PolicyHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	catalog   catalogdomain.Repository
	customers customerdomain.Repository
	pricing   *pricing.Engine
	policy    *config.PolicyHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		catalog:   p.Catalog,
		customers: p.Customers,
		pricing:   p.Pricing,
		policy:    p.Policy,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderView, error) {
	if len(req.Items) == 0 {
		return domain.OrderView{}, errs.Wrap(errs.KindValidation, domain.ErrEmptyOrder, "an order needs at least one item")
	}

	customer, err := s.customers.FindByID(ctx, s.db, req.CustomerID)
	if err != nil {
		return domain.OrderView{}, err
	}
	if customer == nil {
		return domain.OrderView{}, errs.Wrap(errs.KindNotFound, customerdomain.ErrNotFound, "customer %s not found", req.CustomerID)
	}
	if s.policy.Get().Orders.BlockOnOutstandingBalance && customer.Balance.IsPositive() {
		return domain.OrderView{}, errs.Wrap(errs.KindValidation, domain.ErrOutstandingBalance,
			"customer %s has an outstanding balance of %s", customer.ID, customer.Balance.StringFixed(2))
	}

	orderID := s.genID.Generate()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, in := range req.Items {
		item, err := s.buildItem(ctx, s.db, orderID, in)
		if err != nil {
			return domain.OrderView{}, err
		}
		items = append(items, item)
	}

	order := domain.Order{
		ID:          orderID,
		CustomerID:  customer.ID,
		SalesUserID: req.SalesUserID,
		Status:      domain.StatusPending,
		TotalAmount: decimal.Zero,
		Notes:       req.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		_, err := s.recomputeTotal(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	s.metrics.RecordOrderCreated(ctx)
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.Int("items", len(items)),
	)
	return s.Get(ctx, order.ID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.OrderView, error) {
	order, err := s.findOrder(ctx, s.db, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return domain.OrderView{}, err
	}
	return newViewBuilder(s).build(ctx, *order, items)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListOrderResponse, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.ListOrderResponse{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "unknown order status %q", filter.Status)
	}

	orders, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}

	ids := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.repo.ListItemsByOrders(ctx, s.db, ids)
	if err != nil {
		return domain.ListOrderResponse{}, err
	}
	byOrder := make(map[snowflake.ID][]domain.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	builder := newViewBuilder(s)
	views := make([]domain.OrderView, 0, len(orders))
	for _, o := range orders {
		view, err := builder.build(ctx, o, byOrder[o.ID])
		if err != nil {
			return domain.ListOrderResponse{}, err
		}
		views = append(views, view)
	}

	return domain.ListOrderResponse{
		Orders:   views,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateOrderRequest) (domain.OrderView, error) {
	if _, err := s.findOrder(ctx, s.db, id); err != nil {
		return domain.OrderView{}, err
	}

	fields := map[string]any{}
	if req.CustomerID != nil {
		customer, err := s.customers.FindByID(ctx, s.db, *req.CustomerID)
		if err != nil {
			return domain.OrderView{}, err
		}
		if customer == nil {
			return domain.OrderView{}, errs.Wrap(errs.KindNotFound, customerdomain.ErrNotFound, "customer %s not found", *req.CustomerID)
		}
		fields["customer_id"] = customer.ID
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if err := s.repo.UpdateFields(ctx, s.db, id, fields); err != nil {
		return domain.OrderView{}, err
	}
	return s.Get(ctx, id)
}

// UpdateStatus changes only the status; totals are untouched.
func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.Status) (domain.OrderView, error) {
	if !status.Valid() {
		return domain.OrderView{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidStatus, "unknown order status %q", status)
	}
	order, err := s.findOrder(ctx, s.db, id)
	if err != nil {
		return domain.OrderView{}, err
	}

	if err := s.repo.UpdateFields(ctx, s.db, id, map[string]any{"status": status}); err != nil {
		return domain.OrderView{}, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)),
	)
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findOrder(ctx, tx, id); err != nil {
			return err
		}
		invoices, err := s.repo.CountInvoices(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoices > 0 {
			return errs.Wrap(errs.KindConflict, domain.ErrHasInvoices, "order %s has %d invoice(s) and cannot be deleted", id, invoices)
		}
		if err := s.repo.DeleteItems(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

func (s *Service) findOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.Wrap(errs.KindNotFound, domain.ErrNotFound, "order %s not found", id)
	}
	return order, nil
}

// findMutableOrder loads an order whose items may still change.
func (s *Service) findMutableOrder(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	order, err := s.findOrder(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Get().Orders.IsMutableStatus(string(order.Status)) {
		return nil, errs.Wrap(errs.KindInvalidState, domain.ErrNotMutable, "items of a %s order cannot be changed", order.Status)
	}
	return order, nil
}

// recomputeTotal rewrites the order total as the sum of the current item
// subtotals. It must run on the same handle as the item mutation.
func (s *Service) recomputeTotal(ctx context.Context, tx *gorm.DB, orderID snowflake.ID) (decimal.Decimal, error) {
	items, err := s.repo.ListItems(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	total = total.Round(2)
	if err := s.repo.UpdateTotal(ctx, tx, orderID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
