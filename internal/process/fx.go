package process

import (
	"github.com/smallbiznis/millrun/internal/process/repository"
	"github.com/smallbiznis/millrun/internal/process/service"
	"go.uber.org/fx"
)

var Module = fx.Module("process.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
