package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	"github.com/smallbiznis/millrun/internal/authorization"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/observability/metrics"
	"github.com/smallbiznis/millrun/internal/process/domain"
	"github.com/smallbiznis/millrun/internal/process/repository"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	productionrepo "github.com/smallbiznis/millrun/internal/production/repository"
	"github.com/smallbiznis/millrun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	manager = auth.Actor{ID: 200, Role: authorization.RoleProductionManager}
	cutter  = auth.Actor{ID: 201, Role: authorization.RoleCuttingTechnician}
	sales   = auth.Actor{ID: 202, Role: authorization.RoleSales}
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		Production: productionrepo.Provide(),
		Authz:      authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer}),
		Metrics:    metrics.NewNoop(),
	})
	return fixture{svc: svc, db: db, node: node}
}

func (f fixture) item(t *testing.T, typ productiondomain.ProductionType, status productiondomain.Status) productiondomain.Item {
	t.Helper()
	item := productiondomain.Item{
		ID:                f.node.Generate(),
		ProductionOrderID: f.node.Generate(),
		Type:              typ,
		Source:            productiondomain.LocationProduction,
		Destination:       productiondomain.LocationGluing,
		Status:            status,
		Quantity:          1,
	}
	require.NoError(t, f.db.Create(&item).Error)
	return item
}

func processReq(itemID snowflake.ID, barcode string) domain.CreateProcessRequest {
	return domain.CreateProcessRequest{
		ItemID:       itemID,
		InputLength:  decimal.RequireFromString("100"),
		OutputLength: decimal.RequireFromString("97.5"),
		InputWidth:   decimal.RequireFromString("44"),
		Waste:        decimal.RequireFromString("2.5"),
		Barcode:      barcode,
	}
}

func TestCreateProcessPreconditionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProcess(ctx, sales, processReq(f.node.Generate(), "BC-1"))
	assert.True(t, errors.Is(err, errs.ErrForbidden), "role is checked before the item")

	_, err = f.svc.CreateProcess(ctx, cutter, processReq(f.node.Generate(), "BC-1"))
	assert.True(t, errors.Is(err, productiondomain.ErrItemNotFound))

	done := f.item(t, productiondomain.TypeCutting, productiondomain.StatusCompleted)
	_, err = f.svc.CreateProcess(ctx, cutter, processReq(done.ID, "BC-1"))
	assert.True(t, errors.Is(err, domain.ErrItemNotPending))

	slitting := f.item(t, productiondomain.TypeSlitting, productiondomain.StatusPending)
	_, err = f.svc.CreateProcess(ctx, cutter, processReq(slitting.ID, "BC-1"))
	assert.True(t, errors.Is(err, domain.ErrWrongItemType))

	cutting := f.item(t, productiondomain.TypeCutting, productiondomain.StatusPending)
	created, err := f.svc.CreateProcess(ctx, cutter, processReq(cutting.ID, "BC-1"))
	require.NoError(t, err)
	assert.Equal(t, cutter.ID, created.UserID)
	assert.True(t, created.OutputLength.Equal(decimal.RequireFromString("97.5")))

	gluing := f.item(t, productiondomain.TypeGluing, productiondomain.StatusPending)
	_, err = f.svc.CreateProcess(ctx, cutter, processReq(gluing.ID, "BC-1"))
	assert.True(t, errors.Is(err, domain.ErrDuplicateBarcode))
	assert.True(t, errors.Is(err, errs.ErrConflict))

	_, err = f.svc.CreateProcess(ctx, cutter, processReq(gluing.ID, "  "))
	assert.True(t, errors.Is(err, domain.ErrBarcodeRequired))
}

func TestProcessLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.item(t, productiondomain.TypeCutting, productiondomain.StatusPending)
	other := f.item(t, productiondomain.TypeGluing, productiondomain.StatusPending)

	first, err := f.svc.CreateProcess(ctx, cutter, processReq(item.ID, "BC-10"))
	require.NoError(t, err)
	_, err = f.svc.CreateProcess(ctx, cutter, processReq(other.ID, "BC-11"))
	require.NoError(t, err)

	list, err := f.svc.ListProcesses(ctx, cutter, domain.ListFilter{ItemID: item.ID})
	require.NoError(t, err)
	require.Len(t, list.Processes, 1)
	assert.EqualValues(t, 1, list.PageInfo.Total)

	// Updates ignore the item state.
	require.NoError(t, f.db.Model(&productiondomain.Item{}).Where("id = ?", item.ID).Update("status", productiondomain.StatusCompleted).Error)
	waste := decimal.RequireFromString("3.456")
	updated, err := f.svc.UpdateProcess(ctx, cutter, first.ID, domain.UpdateProcessRequest{Waste: &waste})
	require.NoError(t, err)
	assert.True(t, updated.Waste.Equal(decimal.RequireFromString("3.46")))

	taken := "BC-11"
	_, err = f.svc.UpdateProcess(ctx, cutter, first.ID, domain.UpdateProcessRequest{Barcode: &taken})
	assert.True(t, errors.Is(err, domain.ErrDuplicateBarcode))

	same := "BC-10"
	_, err = f.svc.UpdateProcess(ctx, cutter, first.ID, domain.UpdateProcessRequest{Barcode: &same})
	require.NoError(t, err)

	_, err = f.svc.GetProcess(ctx, sales, first.ID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	err = f.svc.DeleteProcess(ctx, cutter, first.ID)
	assert.True(t, errors.Is(err, errs.ErrForbidden))

	require.NoError(t, f.svc.DeleteProcess(ctx, manager, first.ID))
	_, err = f.svc.GetProcess(ctx, manager, first.ID)
	assert.True(t, errors.Is(err, domain.ErrProcessNotFound))
}

func TestSlites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slitting := f.item(t, productiondomain.TypeSlitting, productiondomain.StatusPending)
	cutting := f.item(t, productiondomain.TypeCutting, productiondomain.StatusPending)

	req := domain.CreateSliteRequest{
		ItemID:         slitting.ID,
		InputLength:    decimal.RequireFromString("200"),
		OutputLength:   decimal.RequireFromString("198"),
		InputWidth:     decimal.RequireFromString("66"),
		OutputLength22: decimal.RequireFromString("99"),
		OutputLength44: decimal.RequireFromString("99"),
		Barcode:        "SL-1",
		Destination:    productiondomain.LocationCutting,
	}

	created, err := f.svc.CreateSlite(ctx, manager, req)
	require.NoError(t, err)
	assert.True(t, created.OutputLength22.Equal(decimal.NewFromInt(99)))
	assert.Equal(t, productiondomain.LocationCutting, created.Destination)

	_, err = f.svc.CreateSlite(ctx, manager, req)
	assert.True(t, errors.Is(err, domain.ErrDuplicateBarcode))

	wrong := req
	wrong.ItemID = cutting.ID
	wrong.Barcode = "SL-2"
	_, err = f.svc.CreateSlite(ctx, manager, wrong)
	assert.True(t, errors.Is(err, domain.ErrWrongItemType))

	bad := req
	bad.Barcode = "SL-3"
	bad.Destination = productiondomain.LocationGluing
	_, err = f.svc.CreateSlite(ctx, manager, bad)
	assert.True(t, errors.Is(err, domain.ErrInvalidDestination))

	// Slite and process barcodes are separate namespaces.
	_, err = f.svc.CreateProcess(ctx, manager, processReq(cutting.ID, "SL-1"))
	require.NoError(t, err)

	notes := "re-measured"
	updated, err := f.svc.UpdateSlite(ctx, manager, created.ID, domain.UpdateSliteRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "re-measured", updated.Notes)

	list, err := f.svc.ListSlites(ctx, manager, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Slites, 1)

	require.NoError(t, f.svc.DeleteSlite(ctx, manager, created.ID))
	_, err = f.svc.GetSlite(ctx, manager, created.ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
