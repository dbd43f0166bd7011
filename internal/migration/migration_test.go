package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/adledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrationsCreateEveryModelTable(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init_ledger.up.sql")
	require.NoError(t, err)
	sql := string(raw)

	for _, table := range []string{
		"agencies", "ad_accounts", "ad_recharges", "ad_consumptions",
		"rebate_receivables", "monthly_bills", "ledger_entries", "settlement_batches",
	} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, sql, "ux_monthly_bills_open_draft")
	assert.Contains(t, sql, "ux_ledger_entries_category_related")
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := testutil.OpenDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range Models() {
		assert.True(t, db.Migrator().HasTable(model))
	}
}
