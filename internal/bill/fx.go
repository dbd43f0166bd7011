package bill

import (
	"github.com/smallbiznis/adledger/internal/bill/repository"
	"github.com/smallbiznis/adledger/internal/bill/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bill.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
