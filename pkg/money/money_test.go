package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(1000), decimal.NewFromInt(10))
	assert.True(t, got.Equal(decimal.NewFromInt(100)), got.String())

	got = Percent(decimal.RequireFromString("909.09"), decimal.RequireFromString("2.5"))
	assert.Equal(t, "22.7273", got.StringFixed(Scale))
}

func TestFloorZero(t *testing.T) {
	assert.True(t, FloorZero(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, FloorZero(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}

func TestValidRate(t *testing.T) {
	assert.True(t, ValidRate(decimal.Zero))
	assert.True(t, ValidRate(Hundred))
	assert.False(t, ValidRate(decimal.NewFromInt(-1)))
	assert.False(t, ValidRate(decimal.RequireFromString("100.01")))
}

func TestDrifted(t *testing.T) {
	assert.False(t, Drifted(decimal.RequireFromString("90.91"), decimal.RequireFromString("90.9"), Epsilon))
	assert.True(t, Drifted(decimal.RequireFromString("90.93"), decimal.RequireFromString("90.91"), Epsilon))
}
