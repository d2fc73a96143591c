package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogrepo "github.com/smallbiznis/millrun/internal/catalog/repository"
	"github.com/smallbiznis/millrun/internal/clock"
	"github.com/smallbiznis/millrun/internal/config"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	customerrepo "github.com/smallbiznis/millrun/internal/customer/repository"
	discountrepo "github.com/smallbiznis/millrun/internal/discount/repository"
	discountservice "github.com/smallbiznis/millrun/internal/discount/service"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/internal/invoice/repository"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	orderrepo "github.com/smallbiznis/millrun/internal/order/repository"
	orderservice "github.com/smallbiznis/millrun/internal/order/service"
	"github.com/smallbiznis/millrun/internal/pricing"
	"github.com/smallbiznis/millrun/internal/providers/pdf"
	"github.com/smallbiznis/millrun/internal/ratelimit"
	"github.com/smallbiznis/millrun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var issuedAt = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      domain.Service
	orders   orderdomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	catalog  testutil.Catalog
	customer customerdomain.Customer
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T, locker *ratelimit.Locker) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)

	policy := config.DefaultPolicy()
	policy.Orders.BlockOnOutstandingBalance = false
	holder := config.NewStaticPolicyHolder(policy)

	catalog := catalogrepo.Provide()
	discounts := discountservice.New(discountservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  discountrepo.Provide(),
	})
	orders := orderservice.New(orderservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      orderrepo.Provide(),
		Catalog:   catalog,
		Customers: customerrepo.Provide(),
		Pricing:   pricing.NewEngine(catalog, discounts),
		Policy:    holder,
		Metrics:   metrics.NewNoop(),
	})

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Orders:    orderrepo.Provide(),
		OrderSvc:  orders,
		Customers: customerrepo.Provide(),
		Policy:    holder,
		Renderer:  pdf.New(),
		Clock:     clock.NewFakeClock(issuedAt),
		Locker:    locker,
		Metrics:   metrics.NewNoop(),
	})

	return fixture{
		svc:      svc,
		orders:   orders,
		db:       db,
		node:     node,
		catalog:  testutil.SeedCatalog(t, db, node),
		customer: testutil.SeedCustomer(t, db, node, "Acme", decimal.Zero),
	}
}

// seedOrder inserts an order row directly with the given status and total.
func (f fixture) seedOrder(t *testing.T, status orderdomain.Status, total string) orderdomain.Order {
	t.Helper()
	order := orderdomain.Order{
		ID:          f.node.Generate(),
		CustomerID:  f.customer.ID,
		SalesUserID: f.node.Generate(),
		Status:      status,
		TotalAmount: dec(total),
	}
	require.NoError(t, f.db.Create(&order).Error)
	return order
}

func (f fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	var c customerdomain.Customer
	require.NoError(t, f.db.First(&c, "id = ?", f.customer.ID).Error)
	return c.Balance
}

// assertConserved checks that the stored balance equals the sum of open
// invoice remainders.
func (f fixture) assertConserved(t *testing.T) {
	t.Helper()
	var invoices []domain.Invoice
	require.NoError(t, f.db.Where("customer_id = ?", f.customer.ID).Find(&invoices).Error)
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(inv.RemainingAmount)
	}
	assert.True(t, sum.Equal(f.balance(t)), "balance %s, remainders %s", f.balance(t), sum)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.seedOrder(t, orderdomain.StatusCompleted, "100.50")

	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID, IssuedBy: f.node.Generate(), PaidAmount: dec("40.25")})
	require.NoError(t, err)

	assert.Contains(t, inv.InvoiceNumber, "INV-")
	assert.True(t, inv.IssuedAt.Equal(issuedAt))
	assert.True(t, inv.TotalAmount.Equal(dec("100.50")))
	assert.True(t, inv.RemainingAmount.Equal(dec("60.25")))
	assert.True(t, f.balance(t).Equal(dec("60.25")))
	f.assertConserved(t)
}

func TestCreateInvoiceFullyPaidLeavesBalance(t *testing.T) {
	f := newFixture(t, nil)
	order := f.seedOrder(t, orderdomain.StatusCompleted, "50.00")

	inv, err := f.svc.Create(context.Background(), domain.CreateInvoiceRequest{OrderID: order.ID, PaidAmount: dec("50.00")})
	require.NoError(t, err)
	assert.True(t, inv.RemainingAmount.IsZero())
	assert.True(t, f.balance(t).IsZero())
}

func TestCreateInvoiceRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pending := f.seedOrder(t, orderdomain.StatusPending, "10.00")
	_, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: pending.ID})
	assert.ErrorIs(t, err, domain.ErrOrderNotCompleted)
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: f.node.Generate()})
	assert.ErrorIs(t, err, orderdomain.ErrNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	order := f.seedOrder(t, orderdomain.StatusCompleted, "10.00")
	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID, PaidAmount: dec("10.50")})
	assert.ErrorIs(t, err, domain.ErrOverpaid)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID, PaidAmount: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrNegativeAmount)

	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyInvoiced)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	assert.True(t, f.balance(t).Equal(dec("10.00")))
	f.assertConserved(t)
}

func TestBalanceConservation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.seedOrder(t, orderdomain.StatusCompleted, "100.00")
	second := f.seedOrder(t, orderdomain.StatusCompleted, "20.50")

	a, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: first.ID, PaidAmount: dec("25.00")})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: second.ID})
	require.NoError(t, err)
	assert.True(t, f.balance(t).Equal(dec("95.50")))
	f.assertConserved(t)

	paid := dec("50.00")
	a, err = f.svc.Update(ctx, a.ID, domain.UpdateInvoiceRequest{PaidAmount: &paid})
	require.NoError(t, err)
	assert.True(t, a.RemainingAmount.Equal(dec("50.00")))
	assert.True(t, f.balance(t).Equal(dec("70.50")))
	f.assertConserved(t)

	// repeated updates compose through deltas
	paid = dec("10.00")
	_, err = f.svc.Update(ctx, a.ID, domain.UpdateInvoiceRequest{PaidAmount: &paid})
	require.NoError(t, err)
	assert.True(t, f.balance(t).Equal(dec("110.50")))
	f.assertConserved(t)

	b, err = f.svc.AddPayment(ctx, b.ID, dec("20.25"))
	require.NoError(t, err)
	assert.True(t, b.PaidAmount.Equal(dec("20.25")))
	assert.True(t, b.RemainingAmount.Equal(dec("0.25")))
	assert.True(t, f.balance(t).Equal(dec("90.25")))
	f.assertConserved(t)

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	assert.True(t, f.balance(t).Equal(dec("0.25")))
	f.assertConserved(t)

	_, err = f.svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddPaymentRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.seedOrder(t, orderdomain.StatusCompleted, "30.00")
	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID, PaidAmount: dec("10.00")})
	require.NoError(t, err)

	_, err = f.svc.AddPayment(ctx, inv.ID, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidPayment)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.AddPayment(ctx, inv.ID, dec("20.50"))
	assert.ErrorIs(t, err, domain.ErrOverpaid)

	_, err = f.svc.AddPayment(ctx, f.node.Generate(), dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.True(t, f.balance(t).Equal(dec("20.00")))
	f.assertConserved(t)
}

func TestUpdateOverpaidRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.seedOrder(t, orderdomain.StatusCompleted, "30.00")
	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)

	paid := dec("31.00")
	_, err = f.svc.Update(ctx, inv.ID, domain.UpdateInvoiceRequest{PaidAmount: &paid})
	assert.ErrorIs(t, err, domain.ErrOverpaid)

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, f.balance(t).Equal(dec("30.00")))
}

func TestUpdateWithMissingOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.seedOrder(t, orderdomain.StatusCompleted, "30.00")
	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec("DELETE FROM orders WHERE id = ?", order.ID).Error)

	paid := dec("10.00")
	_, err = f.svc.Update(ctx, inv.ID, domain.UpdateInvoiceRequest{PaidAmount: &paid})
	assert.ErrorIs(t, err, orderdomain.ErrNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.True(t, f.balance(t).Equal(dec("30.00")))
}

func TestListInvoices(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	issuer := f.node.Generate()

	for _, total := range []string{"10.00", "20.00", "30.00"} {
		order := f.seedOrder(t, orderdomain.StatusCompleted, total)
		_, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: order.ID, IssuedBy: issuer})
		require.NoError(t, err)
	}
	other := f.seedOrder(t, orderdomain.StatusCompleted, "5.00")
	_, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: other.ID, IssuedBy: f.node.Generate()})
	require.NoError(t, err)

	res, err := f.svc.List(ctx, domain.ListFilter{IssuedBy: issuer})
	require.NoError(t, err)
	assert.Len(t, res.Invoices, 3)
	assert.EqualValues(t, 3, res.PageInfo.Total)

	res, err = f.svc.List(ctx, domain.ListFilter{OrderID: other.ID})
	require.NoError(t, err)
	require.Len(t, res.Invoices, 1)
	assert.Equal(t, other.ID, res.Invoices[0].OrderID)

	res, err = f.svc.List(ctx, domain.ListFilter{CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 4, res.PageInfo.Total)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	view, err := f.orders.Create(ctx, orderdomain.CreateOrderRequest{
		CustomerID:  f.customer.ID,
		SalesUserID: f.node.Generate(),
		Items: []orderdomain.ItemInput{{
			RulerID:       f.catalog.Ruler.ID,
			BatchID:       f.catalog.Batch.ID,
			TypeItemID:    f.catalog.TypeItem.ID,
			ConstantWidth: dec("22"),
			Length:        dec("10"),
			Quantity:      5,
		}},
	})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, view.ID, orderdomain.StatusCompleted)
	require.NoError(t, err)

	inv, err := f.svc.Create(ctx, domain.CreateInvoiceRequest{OrderID: view.ID})
	require.NoError(t, err)

	out, name, err := f.svc.RenderPDF(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber+"-acme.pdf", name)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
