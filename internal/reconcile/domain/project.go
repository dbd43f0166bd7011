package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	consumptiondomain "github.com/smallbiznis/adledger/internal/consumption/domain"
	ledgerdomain "github.com/smallbiznis/adledger/internal/ledger/domain"
	rechargedomain "github.com/smallbiznis/adledger/internal/recharge/domain"
	"github.com/smallbiznis/adledger/pkg/money"
)

// History is everything recorded against an account that feeds its balances.
type History struct {
	Recharges     []rechargedomain.AdRecharge
	Consumptions  []consumptiondomain.AdConsumption
	LedgerEntries []ledgerdomain.LedgerEntry
}

// Projection is the account state derived from History.
type Projection struct {
	Recharged        decimal.Decimal `json:"recharged"`
	Consumed         decimal.Decimal `json:"consumed"`
	SettledRebate    decimal.Decimal `json:"settled_rebate"`
	AccruedRebate    decimal.Decimal `json:"accrued_rebate"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	RebateReceivable decimal.Decimal `json:"rebate_receivable"`
}

// Project derives an account's balances from its history.
//
//	balance    = Σ recharges − Σ consumptions + Σ settled rebate, floored at zero
//	receivable = Σ accrued rebate − Σ settled rebate, floored at zero
//
// Cancelled recharges are ignored. A settled rebate counts only when it is a confirmed
// ad_rebate_settled entry pointing at a settled consumption of the same account.
// Records of other accounts are ignored.
func Project(accountID snowflake.ID, history History) Projection {
	p := Projection{
		Recharged:     decimal.Zero,
		Consumed:      decimal.Zero,
		SettledRebate: decimal.Zero,
		AccruedRebate: decimal.Zero,
	}

	for _, recharge := range history.Recharges {
		if recharge.AdAccountID != accountID || recharge.PaymentStatus == rechargedomain.PaymentStatusCancelled {
			continue
		}
		p.Recharged = p.Recharged.Add(recharge.Amount)
		p.AccruedRebate = p.AccruedRebate.Add(recharge.RebateAmount)
	}

	settled := make(map[snowflake.ID]struct{})
	for _, consumption := range history.Consumptions {
		if consumption.AdAccountID != accountID {
			continue
		}
		p.Consumed = p.Consumed.Add(consumption.Amount)
		if consumption.IsSettled {
			settled[consumption.ID] = struct{}{}
		}
	}

	counted := make(map[snowflake.ID]struct{})
	for _, entry := range history.LedgerEntries {
		if entry.Status != ledgerdomain.EntryStatusConfirmed || entry.Category != ledgerdomain.CategoryRebateSettled {
			continue
		}
		if _, ok := settled[entry.RelatedID]; !ok {
			continue
		}
		if _, dup := counted[entry.RelatedID]; dup {
			continue
		}
		counted[entry.RelatedID] = struct{}{}
		p.SettledRebate = p.SettledRebate.Add(entry.Amount)
	}

	p.CurrentBalance = money.FloorZero(p.Recharged.Sub(p.Consumed).Add(p.SettledRebate))
	p.RebateReceivable = money.FloorZero(p.AccruedRebate.Sub(p.SettledRebate))
	return p
}
