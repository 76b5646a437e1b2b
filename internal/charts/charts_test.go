package charts

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/ledger_bot/internal/model"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestGenerateSpendingPie(t *testing.T) {
	g := NewChartGenerator("USD")

	img, err := g.GenerateSpendingPie([]model.CategoryStats{
		{Name: "Rent", Amount: decimal.NewFromInt(900), Share: 75},
		{Name: "Food", Amount: decimal.NewFromInt(294), Share: 24.5},
		{Name: "Gum", Amount: decimal.NewFromInt(6), Share: 0.5},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))
}

func TestGenerateSpendingPieEmpty(t *testing.T) {
	g := NewChartGenerator("USD")

	img, err := g.GenerateSpendingPie(nil)
	require.NoError(t, err)
	assert.Nil(t, img)

	img, err = g.GenerateSpendingPie([]model.CategoryStats{{Name: "Zero", Amount: decimal.Zero}})
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestValueLabel(t *testing.T) {
	v := NewChartGenerator("EUR").value("Food", decimal.RequireFromString("1234.5"), 12.34)
	assert.Equal(t, "Food: €1,234.50 (12.3%)", v.Label)
	assert.InDelta(t, 1234.5, v.Value, 0.0001)
}

func TestCaption(t *testing.T) {
	caption := Caption([]model.CategoryStats{
		{Name: "Rent", Amount: decimal.NewFromInt(900)},
		{Name: "Food", Amount: decimal.RequireFromString("100.5")},
	}, "USD")
	assert.Equal(t, "📊 Spending across 2 categories: $1,000.50", caption)
}
