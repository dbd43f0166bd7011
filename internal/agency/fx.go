package agency

import (
	"github.com/smallbiznis/adledger/internal/agency/repository"
	"github.com/smallbiznis/adledger/internal/agency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("agency.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
