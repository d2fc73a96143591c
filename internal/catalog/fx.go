package catalog

import (
	"github.com/smallbiznis/millrun/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.repository",
	fx.Provide(repository.Provide),
)
