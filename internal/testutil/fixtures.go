package testutil

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Catalog is the reference data of one sellable ruler.
type Catalog struct {
	Material catalogdomain.Material
	Color    catalogdomain.Color
	Ruler    catalogdomain.Ruler
	Batch    catalogdomain.Batch
	TypeItem catalogdomain.ConstantValue
}

// Tier prices seeded by SeedCatalog.
var (
	Price22    = decimal.RequireFromString("3.00")
	Price44    = decimal.RequireFromString("5.00")
	PriceBlank = decimal.RequireFromString("2.00")
)

func SeedCatalog(t testing.TB, db *gorm.DB, node *snowflake.Node) Catalog {
	t.Helper()

	c := Catalog{
		Material: catalogdomain.Material{ID: node.Generate(), Name: "PVC"},
		Color:    catalogdomain.Color{ID: node.Generate(), Code: "BLK-" + node.Generate().String(), Name: "Black"},
	}
	c.Ruler = catalogdomain.Ruler{ID: node.Generate(), MaterialID: c.Material.ID, ColorID: c.Color.ID, Type: "flexible"}
	c.Batch = catalogdomain.Batch{ID: node.Generate(), BatchNumber: "B-" + node.Generate().String(), MaterialID: c.Material.ID}

	unitType := catalogdomain.ConstantType{ID: node.Generate(), Name: "unit-" + node.Generate().String()}
	c.TypeItem = catalogdomain.ConstantValue{ID: node.Generate(), ConstantTypeID: unitType.ID, Value: "roll"}

	require.NoError(t, db.Create(&c.Material).Error)
	require.NoError(t, db.Create(&c.Color).Error)
	require.NoError(t, db.Create(&c.Ruler).Error)
	require.NoError(t, db.Create(&c.Batch).Error)
	require.NoError(t, db.Create(&unitType).Error)
	require.NoError(t, db.Create(&c.TypeItem).Error)

	prices := []catalogdomain.PriceColor{
		{ID: node.Generate(), ColorID: c.Color.ID, PriceColorBy: "isByMeter22", PricePerMeter: Price22},
		{ID: node.Generate(), ColorID: c.Color.ID, PriceColorBy: "isByMeter44", PricePerMeter: Price44},
		{ID: node.Generate(), ColorID: c.Color.ID, PriceColorBy: "isByBlanck", PricePerMeter: PriceBlank},
	}
	require.NoError(t, db.Create(&prices).Error)
	return c
}

func SeedCustomer(t testing.TB, db *gorm.DB, node *snowflake.Node, name string, balance decimal.Decimal) customerdomain.Customer {
	t.Helper()
	customer := customerdomain.Customer{ID: node.Generate(), Name: name, Balance: balance}
	require.NoError(t, db.Create(&customer).Error)
	return customer
}

func SeedDiscount(t testing.TB, db *gorm.DB, node *snowflake.Node, d discountdomain.Discount) discountdomain.Discount {
	t.Helper()
	if d.ID == 0 {
		d.ID = node.Generate()
	}
	if d.Name == "" {
		d.Name = "tier " + d.Quantity.String()
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}
