package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/clock"
	"github.com/smallbiznis/millrun/internal/config"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/internal/invoice/format"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/providers/pdf"
	"github.com/smallbiznis/millrun/internal/ratelimit"
	"github.com/smallbiznis/millrun/pkg/db"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	invoiceLockTTL  = 10 * time.Second
	invoiceLockWait = 5 * time.Second
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Orders    orderdomain.Repository
	OrderSvc  orderdomain.Service
	Customers customerdomain.Repository
	Policy    *config.PolicyHolder
	Renderer  pdf.Renderer
	Clock     clock.Clock       `optional:"true"`
	Locker    *ratelimit.Locker `optional:"true"`
	Metrics   *metrics.Metrics  `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	orders    orderdomain.Repository
	orderSvc  orderdomain.Service
	customers customerdomain.Repository
	policy    *config.PolicyHolder
	renderer  pdf.Renderer
	clock     clock.Clock
	locker    *ratelimit.Locker
	lockWait  time.Duration
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		orders:    p.Orders,
		orderSvc:  p.OrderSvc,
		customers: p.Customers,
		policy:    p.Policy,
		renderer:  p.Renderer,
		clock:     clk,
		locker:    p.Locker,
		lockWait:  invoiceLockWait,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	if req.PaidAmount.IsNegative() {
		return domain.Invoice{}, errs.Wrap(errs.KindValidation, domain.ErrNegativeAmount, "paid_amount must not be negative")
	}

	order, err := s.orders.FindByID(ctx, s.db, req.OrderID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if order == nil {
		return domain.Invoice{}, errs.Wrap(errs.KindNotFound, orderdomain.ErrNotFound, "order %s not found", req.OrderID)
	}
	if s.policy.Get().Invoices.RequireCompletedOrder && order.Status != orderdomain.StatusCompleted {
		return domain.Invoice{}, errs.Wrap(errs.KindInvalidState, domain.ErrOrderNotCompleted,
			"order %s is %s, only completed orders can be invoiced", order.ID, order.Status)
	}

	paid := req.PaidAmount.Round(2)
	total := order.TotalAmount.Round(2)
	if paid.GreaterThan(total) {
		return domain.Invoice{}, errs.Wrap(errs.KindValidation, domain.ErrOverpaid,
			"paid_amount %s exceeds order total %s", paid.StringFixed(2), total.StringFixed(2))
	}

	now := s.clock.Now()
	invoice := domain.Invoice{
		ID:              s.genID.Generate(),
		InvoiceNumber:   format.InvoiceNumber(now),
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		IssuedBy:        req.IssuedBy,
		TotalAmount:     total,
		PaidAmount:      paid,
		RemainingAmount: total.Sub(paid),
		Notes:           req.Notes,
		IssuedAt:        now,
	}

	err = s.withLock(ctx, orderLockKey(order.ID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := s.repo.FindByOrderID(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return errs.Wrap(errs.KindConflict, domain.ErrAlreadyInvoiced,
					"order %s already has invoice %s", order.ID, existing.InvoiceNumber)
			}
			if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return errs.Wrap(errs.KindConflict, domain.ErrAlreadyInvoiced, "order %s already has an invoice", order.ID)
				}
				return err
			}
			return s.adjustBalance(ctx, tx, invoice.CustomerID, invoice.RemainingAmount)
		})
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceIssued(ctx)
	s.recordBalance(ctx, "create", invoice.RemainingAmount)
	s.log.Info("invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("order_id", invoice.OrderID.String()),
		zap.String("remaining", invoice.RemainingAmount.StringFixed(2)),
	)
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Invoice, error) {
	return s.find(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListInvoiceResponse, error) {
	invoices, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	return domain.ListInvoiceResponse{
		Invoices: invoices,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

// Update recomputes the remaining amount against the order total and moves
// the customer balance by the difference.
func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	if req.PaidAmount != nil && req.PaidAmount.IsNegative() {
		return domain.Invoice{}, errs.Wrap(errs.KindValidation, domain.ErrNegativeAmount, "paid_amount must not be negative")
	}

	current, err := s.find(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var (
		updated domain.Invoice
		delta   decimal.Decimal
	)
	err = s.withLock(ctx, invoiceLockKey(current.ID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			invoice, err := s.find(ctx, tx, id)
			if err != nil {
				return err
			}

			order, err := s.orders.FindByID(ctx, tx, invoice.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return errs.Wrap(errs.KindNotFound, orderdomain.ErrNotFound, "order %s of invoice %s not found", invoice.OrderID, invoice.ID)
			}
			total := order.TotalAmount.Round(2)

			paid := invoice.PaidAmount
			if req.PaidAmount != nil {
				paid = req.PaidAmount.Round(2)
			}
			if paid.GreaterThan(total) {
				return errs.Wrap(errs.KindValidation, domain.ErrOverpaid,
					"paid_amount %s exceeds order total %s", paid.StringFixed(2), total.StringFixed(2))
			}

			remaining := total.Sub(paid)
			delta = remaining.Sub(invoice.RemainingAmount)

			fields := map[string]any{
				"total_amount":     total,
				"paid_amount":      paid,
				"remaining_amount": remaining,
				"updated_at":       s.clock.Now(),
			}
			if req.Notes != nil {
				fields["notes"] = *req.Notes
			}
			if err := s.casUpdate(ctx, tx, invoice, fields); err != nil {
				return err
			}
			if err := s.adjustBalance(ctx, tx, invoice.CustomerID, delta); err != nil {
				return err
			}

			updated, err = s.find(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.recordBalance(ctx, "update", delta)
	s.log.Info("invoice updated",
		zap.String("invoice_id", id.String()),
		zap.String("balance_delta", delta.StringFixed(2)),
	)
	return updated, nil
}

func (s *Service) AddPayment(ctx context.Context, id snowflake.ID, amount decimal.Decimal) (domain.Invoice, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return domain.Invoice{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidPayment, "payment amount must be greater than zero")
	}

	current, err := s.find(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var updated domain.Invoice
	err = s.withLock(ctx, invoiceLockKey(current.ID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			invoice, err := s.find(ctx, tx, id)
			if err != nil {
				return err
			}

			paid := invoice.PaidAmount.Add(amount)
			if paid.GreaterThan(invoice.TotalAmount) {
				return errs.Wrap(errs.KindValidation, domain.ErrOverpaid,
					"payment of %s exceeds the remaining amount %s", amount.StringFixed(2), invoice.RemainingAmount.StringFixed(2))
			}

			fields := map[string]any{
				"paid_amount":      paid,
				"remaining_amount": invoice.TotalAmount.Sub(paid),
				"updated_at":       s.clock.Now(),
			}
			if err := s.casUpdate(ctx, tx, invoice, fields); err != nil {
				return err
			}
			if err := s.adjustBalance(ctx, tx, invoice.CustomerID, amount.Neg()); err != nil {
				return err
			}

			updated, err = s.find(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.recordBalance(ctx, "payment", amount.Neg())
	s.log.Info("payment recorded",
		zap.String("invoice_id", id.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("remaining", updated.RemainingAmount.StringFixed(2)),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	current, err := s.find(ctx, s.db, id)
	if err != nil {
		return err
	}

	var reversed decimal.Decimal
	err = s.withLock(ctx, invoiceLockKey(current.ID), func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			invoice, err := s.find(ctx, tx, id)
			if err != nil {
				return err
			}
			reversed = invoice.RemainingAmount.Neg()
			if err := s.adjustBalance(ctx, tx, invoice.CustomerID, reversed); err != nil {
				return err
			}
			return s.repo.Delete(ctx, tx, invoice.ID)
		})
	})
	if err != nil {
		return err
	}

	s.recordBalance(ctx, "delete", reversed)
	s.log.Info("invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.String("balance_delta", reversed.StringFixed(2)),
	)
	return nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice == nil {
		return domain.Invoice{}, errs.Wrap(errs.KindNotFound, domain.ErrNotFound, "invoice %s not found", id)
	}
	return *invoice, nil
}

// casUpdate writes fields only if paid_amount is unchanged since invoice
// was read.
func (s *Service) casUpdate(ctx context.Context, tx *gorm.DB, invoice domain.Invoice, fields map[string]any) error {
	ok, err := s.repo.UpdateIfPaid(ctx, tx, invoice.ID, invoice.PaidAmount, fields)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Wrap(errs.KindConflict, domain.ErrConcurrentUpdate, "invoice %s changed while updating", invoice.ID)
	}
	return nil
}

func (s *Service) adjustBalance(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	err := s.customers.AdjustBalance(ctx, tx, customerID, delta)
	if errors.Is(err, customerdomain.ErrNotFound) {
		return errs.Wrap(errs.KindNotFound, customerdomain.ErrNotFound, "customer %s not found", customerID)
	}
	return err
}

func orderLockKey(orderID snowflake.ID) string {
	return fmt.Sprintf("millrun:lock:invoice-order:%s", orderID)
}

func invoiceLockKey(invoiceID snowflake.ID) string {
	return fmt.Sprintf("millrun:lock:invoice:%s", invoiceID)
}

// withLock serializes writers of one invoice across replicas when redis is
// available, waiting up to lockWait for the current holder.
func (s *Service) withLock(ctx context.Context, key string, fn func() error) error {
	err := s.locker.WithLockWait(ctx, key, invoiceLockTTL, s.lockWait, fn)
	if errors.Is(err, ratelimit.ErrLocked) {
		return errs.Wrap(errs.KindConflict, domain.ErrInvoiceLocked, "invoice is still being updated by another request")
	}
	return err
}

func (s *Service) recordBalance(ctx context.Context, op string, delta decimal.Decimal) {
	if delta.IsZero() {
		return
	}
	s.metrics.RecordBalanceDelta(ctx, op, delta.InexactFloat64())
}
