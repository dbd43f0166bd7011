package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BatchStatus string

const (
	BatchStatusStaged  BatchStatus = "staged"
	BatchStatusApplied BatchStatus = "applied"
	// BatchStatusSuperseded marks a staged batch whose consumptions were settled by another batch.
	BatchStatusSuperseded BatchStatus = "superseded"
)

// SettlementBatch is the write-ahead record of one settlement request. A staged batch
// has not credited anything yet; applied and superseded are terminal.
type SettlementBatch struct {
	ID             snowflake.ID                      `gorm:"primaryKey" json:"id"`
	DedupeKey      string                            `gorm:"type:text;not null;uniqueIndex:ux_settlement_batches_dedupe_key" json:"dedupe_key"`
	AdAccountID    snowflake.ID                      `gorm:"not null;index" json:"ad_account_id"`
	Month          string                            `gorm:"type:text;not null" json:"month"`
	Currency       string                            `gorm:"type:text;not null" json:"currency"`
	ConsumptionIDs datatypes.JSONSlice[snowflake.ID] `gorm:"not null" json:"consumption_ids"`
	TotalRebate    decimal.Decimal                   `gorm:"type:decimal(18,4);not null" json:"total_rebate"`
	Status         BatchStatus                       `gorm:"type:text;not null;index:idx_settlement_batches_status_created,priority:1" json:"status"`
	AppliedAt      *time.Time                        `json:"applied_at,omitempty"`
	CreatedAt      time.Time                         `gorm:"not null;index:idx_settlement_batches_status_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time                         `gorm:"not null" json:"updated_at"`
}

func (SettlementBatch) TableName() string { return "settlement_batches" }

// Overlaps reports whether the batch holds any of ids.
func (b SettlementBatch) Overlaps(ids []snowflake.ID) bool {
	for _, id := range b.ConsumptionIDs {
		if slices.Contains(ids, id) {
			return true
		}
	}
	return false
}

// DedupeKey identifies a settlement request independent of the order of its ids.
func DedupeKey(accountID snowflake.ID, month string, consumptionIDs []snowflake.ID) string {
	ids := slices.Clone(consumptionIDs)
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString(accountID.String())
	b.WriteByte('|')
	b.WriteString(month)
	for _, id := range ids {
		b.WriteByte('|')
		b.WriteString(id.String())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
