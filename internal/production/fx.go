package production

import (
	"github.com/smallbiznis/millrun/internal/production/repository"
	"github.com/smallbiznis/millrun/internal/production/service"
	"go.uber.org/fx"
)

var Module = fx.Module("production.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
