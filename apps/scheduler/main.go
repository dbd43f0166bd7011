package main

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/accountlock"
	"github.com/smallbiznis/adledger/internal/adaccount"
	"github.com/smallbiznis/adledger/internal/agency"
	"github.com/smallbiznis/adledger/internal/bill"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/config"
	"github.com/smallbiznis/adledger/internal/consumption"
	"github.com/smallbiznis/adledger/internal/ledger"
	"github.com/smallbiznis/adledger/internal/observability"
	"github.com/smallbiznis/adledger/internal/providers"
	"github.com/smallbiznis/adledger/internal/rebate"
	"github.com/smallbiznis/adledger/internal/recharge"
	"github.com/smallbiznis/adledger/internal/reconcile"
	reconciledomain "github.com/smallbiznis/adledger/internal/reconcile/domain"
	"github.com/smallbiznis/adledger/internal/scheduler"
	"github.com/smallbiznis/adledger/internal/settlement"
	"github.com/smallbiznis/adledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		accountlock.Module,
		providers.Module,

		// Domain services required by the scheduler jobs
		agency.Module,
		adaccount.Module,
		ledger.Module,
		rebate.Module,
		bill.Module,
		reconcile.Module,
		recharge.Module,
		consumption.Module,
		settlement.Module,

		// No server module!
		scheduler.Module,
		fx.Invoke(ReconcileOnStartup),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// ReconcileOnStartup sweeps every account once before the periodic jobs begin.
func ReconcileOnStartup(lc fx.Lifecycle, cfg scheduler.Config, reconciler reconciledomain.Service, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()
				summary, err := reconciler.ReconcileAll(ctx, cfg.BatchSize)
				log.Info("startup reconciliation finished",
					zap.Int("scanned", summary.Scanned),
					zap.Int("corrected", summary.Corrected),
					zap.Int("failed", summary.Failed),
					zap.Error(err),
				)
			}()
			return nil
		},
	})
}
