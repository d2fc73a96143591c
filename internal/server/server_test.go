package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	catalogrepo "github.com/smallbiznis/millrun/internal/catalog/repository"
	"github.com/smallbiznis/millrun/internal/config"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	customerrepo "github.com/smallbiznis/millrun/internal/customer/repository"
	customerservice "github.com/smallbiznis/millrun/internal/customer/service"
	discountrepo "github.com/smallbiznis/millrun/internal/discount/repository"
	discountservice "github.com/smallbiznis/millrun/internal/discount/service"
	invoicerepo "github.com/smallbiznis/millrun/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/millrun/internal/invoice/service"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	orderrepo "github.com/smallbiznis/millrun/internal/order/repository"
	orderservice "github.com/smallbiznis/millrun/internal/order/service"
	"github.com/smallbiznis/millrun/internal/pricing"
	processrepo "github.com/smallbiznis/millrun/internal/process/repository"
	processservice "github.com/smallbiznis/millrun/internal/process/service"
	productionrepo "github.com/smallbiznis/millrun/internal/production/repository"
	productionservice "github.com/smallbiznis/millrun/internal/production/service"
	"github.com/smallbiznis/millrun/internal/providers/pdf"
	"github.com/smallbiznis/millrun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret"

type harness struct {
	engine   *gin.Engine
	db       *gorm.DB
	node     *snowflake.Node
	verifier *auth.Verifier
	catalog  testutil.Catalog
	customer customerdomain.Customer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	log := zap.NewNop()
	noop := metrics.NewNoop()

	policy := config.DefaultPolicy()
	policy.Orders.BlockOnOutstandingBalance = false
	holder := config.NewStaticPolicyHolder(policy)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	catalog := catalogrepo.Provide()
	customers := customerrepo.Provide()
	discounts := discountservice.New(discountservice.Params{DB: db, Log: log, GenID: node, Repo: discountrepo.Provide()})
	orders := orderservice.New(orderservice.Params{
		DB: db, Log: log, GenID: node,
		Repo:      orderrepo.Provide(),
		Catalog:   catalog,
		Customers: customers,
		Pricing:   pricing.NewEngine(catalog, discounts),
		Policy:    holder,
		Metrics:   noop,
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB: db, Log: log, GenID: node,
		Repo:      invoicerepo.Provide(),
		Orders:    orderrepo.Provide(),
		OrderSvc:  orders,
		Customers: customers,
		Policy:    holder,
		Renderer:  pdf.New(),
		Metrics:   noop,
	})
	productionRepo := productionrepo.Provide()
	production := productionservice.New(productionservice.Params{
		DB: db, Log: log, GenID: node,
		Repo:    productionRepo,
		Catalog: catalog,
		Authz:   authz,
		Metrics: noop,
	})
	processes := processservice.New(processservice.Params{
		DB: db, Log: log, GenID: node,
		Repo:       processrepo.Provide(),
		Production: productionRepo,
		Authz:      authz,
		Metrics:    noop,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	verifier := auth.NewVerifierWithSecret(testSecret)

	NewServer(ServerParams{
		Gin:           engine,
		Verifier:      verifier,
		AuthzSvc:      authz,
		CustomerSvc:   customerservice.New(customerservice.Params{DB: db, Log: log, Repo: customers}),
		OrderSvc:      orders,
		InvoiceSvc:    invoices,
		DiscountSvc:   discounts,
		ProductionSvc: production,
		ProcessSvc:    processes,
	})

	return harness{
		engine:   engine,
		db:       db,
		node:     node,
		verifier: verifier,
		catalog:  testutil.SeedCatalog(t, db, node),
		customer: testutil.SeedCustomer(t, db, node, "Acme", decimal.Zero),
	}
}

func (h harness) token(t *testing.T, role string) string {
	t.Helper()
	raw, err := h.verifier.Issue(auth.Actor{ID: h.node.Generate(), Role: role}, time.Hour)
	require.NoError(t, err)
	return raw
}

func (h harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Type    string            `json:"type"`
		Message string            `json:"message"`
		Errors  []ValidationError `json:"errors"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func TestRequiresBearerToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec, nil).Error.Type)

	rec = h.do(t, http.MethodGet, "/api/orders", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouteGuardsFollowGrantTable(t *testing.T) {
	h := newHarness(t)

	body := map[string]any{
		"name":              "bulk",
		"type":              "fixed",
		"quantityCondition": "GREATER_THAN_OR_EQUAL",
		"quantity":          "50",
		"value":             "10",
	}
	rec := h.do(t, http.MethodPost, "/api/discounts", h.token(t, authorization.RoleCashier), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decode(t, rec, nil).Error.Type)

	rec = h.do(t, http.MethodPost, "/api/discounts", h.token(t, authorization.RoleAdmin), body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/invoices", h.token(t, authorization.RoleCuttingTechnician), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBindingErrorsAreFieldLevel(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", h.token(t, authorization.RoleSales), map[string]any{
		"customer_id": h.customer.ID.String(),
		"items":       []any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.NotEmpty(t, env.Error.Errors)
	assert.Equal(t, "items", env.Error.Errors[0].Field)

	rec = h.do(t, http.MethodGet, "/api/orders/abc", h.token(t, authorization.RoleSales), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderToInvoiceFlow(t *testing.T) {
	h := newHarness(t)
	sales := h.token(t, authorization.RoleSales)
	accountant := h.token(t, authorization.RoleAccountant)

	rec := h.do(t, http.MethodPost, "/api/orders", sales, map[string]any{
		"customer_id": h.customer.ID.String(),
		"items": []any{map[string]any{
			"ruler_id":       h.catalog.Ruler.ID.String(),
			"batch_id":       h.catalog.Batch.ID.String(),
			"type_item":      h.catalog.TypeItem.ID.String(),
			"constant_width": "22",
			"length":         "10",
			"quantity":       5,
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID          snowflake.ID    `json:"id"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	decode(t, rec, &order)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("150")))

	path := "/api/orders/" + order.ID.String()

	rec = h.do(t, http.MethodPost, "/api/invoices", accountant, map[string]any{"order_id": order.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_state", decode(t, rec, nil).Error.Type)

	rec = h.do(t, http.MethodPatch, path+"/status", sales, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/invoices", accountant, map[string]any{
		"order_id":    order.ID.String(),
		"paid_amount": "50.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invoice struct {
		ID              snowflake.ID    `json:"id"`
		RemainingAmount decimal.Decimal `json:"remaining_amount"`
	}
	decode(t, rec, &invoice)
	assert.True(t, invoice.RemainingAmount.Equal(decimal.RequireFromString("99.50")))

	rec = h.do(t, http.MethodPost, "/api/invoices", accountant, map[string]any{"order_id": order.ID.String()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	invoicePath := "/api/invoices/" + invoice.ID.String()
	rec = h.do(t, http.MethodPost, invoicePath+"/payment", accountant, map[string]any{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, invoicePath+"/payment", accountant, map[string]any{"amount": "99.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, invoicePath+"/pdf", sales, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = h.do(t, http.MethodDelete, path, sales, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodDelete, invoicePath, accountant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, invoicePath, accountant, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerStatement(t *testing.T) {
	h := newHarness(t)
	accountant := h.token(t, authorization.RoleAccountant)

	order := orderdomain.Order{
		ID:          h.node.Generate(),
		CustomerID:  h.customer.ID,
		SalesUserID: h.node.Generate(),
		Status:      orderdomain.StatusCompleted,
		TotalAmount: decimal.RequireFromString("40.00"),
	}
	require.NoError(t, h.db.Create(&order).Error)

	rec := h.do(t, http.MethodPost, "/api/invoices", accountant, map[string]any{
		"order_id":    order.ID.String(),
		"paid_amount": "15.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	path := "/api/customers/" + h.customer.ID.String()
	var stmt customerdomain.BalanceStatement
	rec = h.do(t, http.MethodGet, path+"/statement", accountant, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &stmt)
	assert.Equal(t, h.customer.ID, stmt.CustomerID)
	assert.True(t, stmt.Balance.Equal(decimal.RequireFromString("24.50")))
	assert.True(t, stmt.Outstanding.Equal(decimal.RequireFromString("24.50")))
	assert.True(t, stmt.Reconciled)

	require.NoError(t, h.db.Exec("UPDATE customers SET balance = balance + 1 WHERE id = ?", h.customer.ID).Error)
	rec = h.do(t, http.MethodGet, path+"/statement", accountant, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stmt)
	assert.False(t, stmt.Reconciled)

	rec = h.do(t, http.MethodGet, path, accountant, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/customers/"+h.node.Generate().String()+"/statement", accountant, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, path+"/statement", h.token(t, authorization.RoleCuttingTechnician), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProductionItemVisibility(t *testing.T) {
	h := newHarness(t)
	manager := h.token(t, authorization.RoleProductionManager)
	cutter := h.token(t, authorization.RoleCuttingTechnician)

	rec := h.do(t, http.MethodPost, "/api/production-orders", manager, map[string]any{
		"ruler_id":       h.catalog.Ruler.ID.String(),
		"batch_id":       h.catalog.Batch.ID.String(),
		"type_item":      h.catalog.TypeItem.ID.String(),
		"constant_width": "44",
		"length":         "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order struct {
		ID snowflake.ID `json:"id"`
	}
	decode(t, rec, &order)

	rec = h.do(t, http.MethodPost, "/api/production-orders/"+order.ID.String()+"/items", manager, map[string]any{
		"items": []any{map[string]any{
			"production_types": []string{"warehouse", "slitting", "cutting"},
			"quantity":         2,
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var items []struct {
		ID          snowflake.ID `json:"id"`
		Type        string       `json:"type"`
		Source      string       `json:"source"`
		Destination string       `json:"destination"`
	}
	decode(t, rec, &items)
	require.Len(t, items, 3)
	assert.Equal(t, "slitting", items[0].Destination)
	assert.Equal(t, "cutting", items[1].Destination)
	assert.Equal(t, "gluing", items[2].Destination)

	rec = h.do(t, http.MethodGet, "/api/production-orders/"+order.ID.String()+"/items", cutter, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var visible []struct {
		Type string `json:"type"`
	}
	decode(t, rec, &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, "cutting", visible[0].Type)

	rec = h.do(t, http.MethodGet, "/api/production-orders/item/"+items[0].ID.String(), cutter, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/processes", cutter, map[string]any{
		"production_order_item_id": items[2].ID.String(),
		"input_length":             "10",
		"output_length":            "9.5",
		"barcode":                  "CUT-0001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/processes", cutter, map[string]any{
		"production_order_item_id": items[2].ID.String(),
		"barcode":                  "CUT-0001",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodDelete, "/api/production-orders/"+order.ID.String(), manager, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
