package migration

import (
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	invoicedomain "github.com/smallbiznis/millrun/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	processdomain "github.com/smallbiznis/millrun/internal/process/domain"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"gorm.io/gorm"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&catalogdomain.Material{},
		&catalogdomain.Color{},
		&catalogdomain.Ruler{},
		&catalogdomain.Batch{},
		&catalogdomain.ConstantType{},
		&catalogdomain.ConstantValue{},
		&catalogdomain.PriceColor{},
		&customerdomain.Customer{},
		&discountdomain.Discount{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&productiondomain.ProductionOrder{},
		&productiondomain.Item{},
		&processdomain.Process{},
		&processdomain.Slite{},
		&invoicedomain.Invoice{},
	}
}

// AutoMigrate creates the schema from the models. It backs sqlite and
// mysql deployments and the test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
