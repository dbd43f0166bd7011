package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/adledger/internal/accountlock"
	"github.com/smallbiznis/adledger/internal/adaccount"
	"github.com/smallbiznis/adledger/internal/agency"
	"github.com/smallbiznis/adledger/internal/bill"
	"github.com/smallbiznis/adledger/internal/clock"
	"github.com/smallbiznis/adledger/internal/config"
	"github.com/smallbiznis/adledger/internal/consumption"
	"github.com/smallbiznis/adledger/internal/ledger"
	"github.com/smallbiznis/adledger/internal/migration"
	"github.com/smallbiznis/adledger/internal/observability"
	"github.com/smallbiznis/adledger/internal/providers"
	"github.com/smallbiznis/adledger/internal/rebate"
	"github.com/smallbiznis/adledger/internal/recharge"
	"github.com/smallbiznis/adledger/internal/reconcile"
	"github.com/smallbiznis/adledger/internal/scheduler"
	"github.com/smallbiznis/adledger/internal/server"
	"github.com/smallbiznis/adledger/internal/settlement"
	"github.com/smallbiznis/adledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		accountlock.Module,
		providers.Module,

		// Ledger domains
		agency.Module,
		adaccount.Module,
		ledger.Module,
		rebate.Module,
		bill.Module,
		reconcile.Module,
		recharge.Module,
		consumption.Module,
		settlement.Module,

		scheduler.Module,
		server.Module,
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
