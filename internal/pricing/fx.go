package pricing

import (
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.engine",
	fx.Provide(
		func(repo catalogdomain.Repository) PriceLookup { return repo },
		func(resolver discountdomain.Resolver) DiscountResolver { return resolver },
	),
	fx.Provide(New),
)
