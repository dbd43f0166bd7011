package adaccount

import (
	"github.com/smallbiznis/adledger/internal/adaccount/repository"
	"github.com/smallbiznis/adledger/internal/adaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("adaccount.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
