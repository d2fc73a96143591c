package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	catalogrepo "github.com/smallbiznis/millrun/internal/catalog/repository"
	"github.com/smallbiznis/millrun/internal/config"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	customerrepo "github.com/smallbiznis/millrun/internal/customer/repository"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	discountrepo "github.com/smallbiznis/millrun/internal/discount/repository"
	discountservice "github.com/smallbiznis/millrun/internal/discount/service"
	"github.com/smallbiznis/millrun/internal/errs"
	invoicedomain "github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/order/repository"
	"github.com/smallbiznis/millrun/internal/pricing"
	"github.com/smallbiznis/millrun/internal/pricing/mock_pricing"
	"github.com/smallbiznis/millrun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	node     *snowflake.Node
	catalog  testutil.Catalog
	customer customerdomain.Customer
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T, policy config.Policy) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)

	discounts := discountservice.New(discountservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  discountrepo.Provide(),
	})
	catalog := catalogrepo.Provide()

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Catalog:   catalog,
		Customers: customerrepo.Provide(),
		Pricing:   pricing.NewEngine(catalog, discounts),
		Policy:    config.NewStaticPolicyHolder(policy),
		Metrics:   metrics.NewNoop(),
	})

	return fixture{
		svc:      svc,
		db:       db,
		node:     node,
		catalog:  testutil.SeedCatalog(t, db, node),
		customer: testutil.SeedCustomer(t, db, node, "Acme", decimal.Zero),
	}
}

func (f fixture) item(width, length string, qty int64) domain.ItemInput {
	return domain.ItemInput{
		RulerID:           f.catalog.Ruler.ID,
		BatchID:           f.catalog.Batch.ID,
		TypeItemID:        f.catalog.TypeItem.ID,
		ConstantWidth:     dec(width),
		Length:            dec(length),
		ConstantThickness: dec("1.5"),
		Quantity:          qty,
	}
}

// assertTotalMatchesItems reads the stored rows and checks the order total
// equals the sum of item subtotals.
func assertTotalMatchesItems(t *testing.T, db *gorm.DB, orderID snowflake.ID) decimal.Decimal {
	t.Helper()
	var order domain.Order
	require.NoError(t, db.First(&order, "id = ?", orderID).Error)

	var items []domain.OrderItem
	require.NoError(t, db.Where("order_id = ?", orderID).Find(&items).Error)

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, order.TotalAmount.Equal(sum), "total %s != sum of items %s", order.TotalAmount, sum)
	return order.TotalAmount
}

func TestCreateOrderPricesWithDiscount(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	testutil.SeedDiscount(t, f.db, f.node, discountdomain.Discount{
		Type:              discountdomain.TypeFixed,
		QuantityCondition: discountdomain.ConditionGreaterThanOrEqual,
		Quantity:          dec("50"),
		Value:             dec("10"),
	})

	view, err := f.svc.Create(context.Background(), domain.CreateOrderRequest{
		CustomerID:  f.customer.ID,
		SalesUserID: 99,
		Items:       []domain.ItemInput{f.item("22", "10", 5)},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, view.Status)
	assert.True(t, view.TotalAmount.Equal(dec("140")), "got %s", view.TotalAmount)
	require.Len(t, view.Items, 1)
	item := view.Items[0]
	assert.True(t, item.UnitPrice.Equal(dec("3")))
	assert.True(t, item.DiscountAmount.Equal(dec("10")))
	assert.True(t, item.Subtotal.Equal(dec("140")))
	assert.NotNil(t, item.DiscountID)
	assert.Equal(t, "PVC", item.MaterialName)
	assert.Equal(t, "Black", item.ColorName)
	assert.Equal(t, f.catalog.Batch.BatchNumber, item.BatchNumber)
	assert.Equal(t, "roll", item.TypeItem)
	require.NotNil(t, view.Customer)
	assert.Equal(t, "Acme", view.Customer.Name)

	assertTotalMatchesItems(t, f.db, view.ID)
}

func TestOrderTotalTracksItemMutations(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items: []domain.ItemInput{
			f.item("22", "10", 2),
			f.item("44", "3", 1),
		},
	})
	require.NoError(t, err)
	// 3*10*2 + 5*3*1
	assert.True(t, assertTotalMatchesItems(t, f.db, view.ID).Equal(dec("75")))

	view, err = f.svc.AddItem(ctx, view.ID, f.item("30", "4", 1))
	require.NoError(t, err)
	require.Len(t, view.Items, 3)
	assert.True(t, assertTotalMatchesItems(t, f.db, view.ID).Equal(dec("83")))

	qty := int64(4)
	view, err = f.svc.UpdateItem(ctx, view.ID, view.Items[0].ID, domain.UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, assertTotalMatchesItems(t, f.db, view.ID).Equal(dec("143")))

	view, err = f.svc.DeleteItem(ctx, view.ID, view.Items[1].ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.True(t, assertTotalMatchesItems(t, f.db, view.ID).Equal(dec("128")))
	assert.True(t, view.TotalAmount.Equal(dec("128")))
}

func TestDeleteItemRollsBackWhenRequoteFails(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items: []domain.ItemInput{
			f.item("22", "10", 2),
			f.item("44", "3", 1),
		},
	})
	require.NoError(t, err)
	before := assertTotalMatchesItems(t, f.db, view.ID)

	ctrl := gomock.NewController(t)
	resolver := mock_pricing.NewMockDiscountResolver(ctrl)
	resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("discount table unavailable")).
		AnyTimes()

	catalog := catalogrepo.Provide()
	failing := New(Params{
		DB:        f.db,
		Log:       zap.NewNop(),
		GenID:     f.node,
		Repo:      repository.Provide(),
		Catalog:   catalog,
		Customers: customerrepo.Provide(),
		Pricing:   pricing.NewEngine(catalog, resolver),
		Policy:    config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Metrics:   metrics.NewNoop(),
	})

	deleted := view.Items[0].ID
	_, err = failing.DeleteItem(ctx, view.ID, deleted)
	require.Error(t, err)

	var items []domain.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", view.ID).Find(&items).Error)
	require.Len(t, items, 2)
	ids := []snowflake.ID{items[0].ID, items[1].ID}
	assert.Contains(t, ids, deleted)
	assert.True(t, assertTotalMatchesItems(t, f.db, view.ID).Equal(before))
}

func TestUpdateItemPriceResolution(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("22", "1", 1)},
	})
	require.NoError(t, err)
	itemID := view.Items[0].ID

	price := dec("7.25")
	view, err = f.svc.UpdateItem(ctx, view.ID, itemID, domain.UpdateItemRequest{UnitPrice: &price})
	require.NoError(t, err)
	assert.True(t, view.Items[0].UnitPrice.Equal(price))

	length := dec("2")
	view, err = f.svc.UpdateItem(ctx, view.ID, itemID, domain.UpdateItemRequest{Length: &length})
	require.NoError(t, err)
	assert.True(t, view.Items[0].UnitPrice.Equal(price), "stored price is kept when ruler and width are unchanged")
	assert.True(t, view.Items[0].Subtotal.Equal(dec("14.5")))

	width := dec("44")
	view, err = f.svc.UpdateItem(ctx, view.ID, itemID, domain.UpdateItemRequest{ConstantWidth: &width})
	require.NoError(t, err)
	assert.True(t, view.Items[0].UnitPrice.Equal(testutil.Price44))
	assertTotalMatchesItems(t, f.db, view.ID)

	_, err = f.svc.UpdateItem(ctx, view.ID, f.node.Generate(), domain.UpdateItemRequest{Length: &length})
	assert.True(t, errors.Is(err, domain.ErrItemNotFound))
}

func TestDeleteLastItemIsRejected(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("22", "10", 1)},
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteItem(ctx, view.ID, view.Items[0].ID)
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
	assert.True(t, errors.Is(err, domain.ErrLastItem))

	after, err := f.svc.Get(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.True(t, after.TotalAmount.Equal(view.TotalAmount))
}

func TestCreateOrderOutstandingBalancePolicy(t *testing.T) {
	ctx := context.Background()

	strict := newFixture(t, config.DefaultPolicy())
	debtor := testutil.SeedCustomer(t, strict.db, strict.node, "Debtor", dec("100"))
	_, err := strict.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: debtor.ID,
		Items:      []domain.ItemInput{strict.item("22", "1", 1)},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	assert.True(t, errors.Is(err, domain.ErrOutstandingBalance))

	relaxed := config.DefaultPolicy()
	relaxed.Orders.BlockOnOutstandingBalance = false
	lenient := newFixture(t, relaxed)
	debtor = testutil.SeedCustomer(t, lenient.db, lenient.node, "Debtor", dec("100"))
	_, err = lenient.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: debtor.ID,
		Items:      []domain.ItemInput{lenient.item("22", "1", 1)},
	})
	require.NoError(t, err)
}

func TestCreateOrderFailsFastOnMissingReferences(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: f.node.Generate(), Items: []domain.ItemInput{f.item("22", "1", 1)}})
	assert.True(t, errors.Is(err, customerdomain.ErrNotFound))

	missingRuler := f.item("22", "1", 1)
	missingRuler.RulerID = f.node.Generate()
	_, err = f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("22", "1", 1), missingRuler},
	})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	_, err = f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("66", "1", 1)},
	})
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Contains(t, err.Error(), "isByMeter66")

	_, err = f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: f.customer.ID})
	assert.True(t, errors.Is(err, domain.ErrEmptyOrder))

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&domain.OrderItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestItemsFrozenOutsideMutableStatuses(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("22", "1", 1), f.item("22", "2", 1)},
	})
	require.NoError(t, err)

	view, err = f.svc.UpdateStatus(ctx, view.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, view.Status)

	_, err = f.svc.AddItem(ctx, view.ID, f.item("22", "1", 1))
	assert.Equal(t, errs.KindInvalidState, errs.KindOf(err))
	_, err = f.svc.DeleteItem(ctx, view.ID, view.Items[0].ID)
	assert.True(t, errors.Is(err, domain.ErrNotMutable))

	_, err = f.svc.UpdateStatus(ctx, view.ID, "shipped")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestDeleteOrderBlockedByInvoice(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	view, err := f.svc.Create(ctx, domain.CreateOrderRequest{
		CustomerID: f.customer.ID,
		Items:      []domain.ItemInput{f.item("22", "1", 1)},
	})
	require.NoError(t, err)

	invoice := invoicedomain.Invoice{
		ID:              f.node.Generate(),
		InvoiceNumber:   "INV-TEST",
		OrderID:         view.ID,
		CustomerID:      f.customer.ID,
		TotalAmount:     view.TotalAmount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: view.TotalAmount,
	}
	require.NoError(t, f.db.Create(&invoice).Error)

	err = f.svc.Delete(ctx, view.ID)
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	require.NoError(t, f.db.Delete(&invoicedomain.Invoice{}, "id = ?", invoice.ID).Error)
	require.NoError(t, f.svc.Delete(ctx, view.ID))

	_, err = f.svc.Get(ctx, view.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	var items int64
	require.NoError(t, f.db.Model(&domain.OrderItem{}).Where("order_id = ?", view.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	other := testutil.SeedCustomer(t, f.db, f.node, "Other", decimal.Zero)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: f.customer.ID, Items: []domain.ItemInput{f.item("22", "1", 1)}})
		require.NoError(t, err)
	}
	created, err := f.svc.Create(ctx, domain.CreateOrderRequest{CustomerID: other.ID, Items: []domain.ItemInput{f.item("22", "1", 1)}})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, created.ID, domain.StatusPreparing)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.PageInfo.Total)

	mine, err := f.svc.List(ctx, domain.ListFilter{CustomerID: f.customer.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, mine.PageInfo.Total)
	for _, o := range mine.Orders {
		assert.Len(t, o.Items, 1)
	}

	preparing, err := f.svc.List(ctx, domain.ListFilter{Status: domain.StatusPreparing})
	require.NoError(t, err)
	require.Len(t, preparing.Orders, 1)
	assert.Equal(t, created.ID, preparing.Orders[0].ID)
}
