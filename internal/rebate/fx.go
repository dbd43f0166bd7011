package rebate

import (
	"github.com/smallbiznis/adledger/internal/rebate/repository"
	"github.com/smallbiznis/adledger/internal/rebate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rebate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
