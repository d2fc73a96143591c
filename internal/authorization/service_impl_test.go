package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeResourceTable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, grant := range ResourceGrants {
		for _, role := range grant.Roles {
			assert.NoError(t, svc.Authorize(ctx, role, grant.Object, grant.Action), "%s %s %s", role, grant.Object, grant.Action)
		}
	}

	err := svc.Authorize(ctx, RoleCashier, ObjectOrder, ActionDelete)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
	assert.True(t, errors.Is(err, ErrForbidden))

	assert.Error(t, svc.Authorize(ctx, RoleCuttingTechnician, ObjectInvoice, ActionView))
	assert.Error(t, svc.Authorize(ctx, RoleSales, ObjectProductionOrder, ActionCreate))
	assert.Error(t, svc.Authorize(ctx, RoleWarehouseProducts, ObjectProcess, ActionCreate))
	assert.Error(t, svc.Authorize(ctx, "", ObjectOrder, ActionView))
	assert.Error(t, svc.Authorize(ctx, "intruder", ObjectOrder, ActionView))
}

func TestProductionTypeTable(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, ProductionTypes, svc.AllowedProductionTypes(RoleAdmin))
	assert.Equal(t, ProductionTypes, svc.AllowedProductionTypes(RoleProductionManager))
	assert.Equal(t, []string{"warehouse"}, svc.AllowedProductionTypes(RoleWarehouseKeeper))
	assert.Equal(t, []string{"warehouse"}, svc.AllowedProductionTypes(RoleWarehouseProducts))
	assert.Equal(t, []string{"slitting"}, svc.AllowedProductionTypes(RoleDissectionTechnician))
	assert.Equal(t, []string{"cutting"}, svc.AllowedProductionTypes(RoleCuttingTechnician))
	assert.Equal(t, []string{"gluing"}, svc.AllowedProductionTypes(RoleGluingTechnician))
	assert.Empty(t, svc.AllowedProductionTypes(RoleSales))

	assert.True(t, svc.CanAccessProductionType(RoleCuttingTechnician, "cutting"))
	assert.False(t, svc.CanAccessProductionType(RoleCuttingTechnician, "gluing"))
	assert.False(t, svc.CanAccessProductionType("", "cutting"))
}

func TestNewEnforcerPersistsPolicies(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:authz_enforcer?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	ok, err := enforcer.Enforce(subject(RoleAdmin), ObjectInvoice, ActionPay)
	require.NoError(t, err)
	assert.True(t, ok)

	var stored int64
	require.NoError(t, db.Table("casbin_rule").Count(&stored).Error)
	assert.EqualValues(t, len(rules()), stored)

	// Seeding again must not duplicate rows.
	_, err = NewEnforcer(db)
	require.NoError(t, err)
	require.NoError(t, db.Table("casbin_rule").Count(&stored).Error)
	assert.EqualValues(t, len(rules()), stored)
}
