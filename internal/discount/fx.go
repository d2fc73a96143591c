package discount

import (
	"github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/smallbiznis/millrun/internal/discount/repository"
	"github.com/smallbiznis/millrun/internal/discount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("discount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Resolver { return svc }),
)
