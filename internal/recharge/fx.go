package recharge

import (
	"github.com/smallbiznis/adledger/internal/recharge/repository"
	"github.com/smallbiznis/adledger/internal/recharge/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recharge.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
