package charts

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/ledger_bot/internal/format"
	"github.com/ivanoskov/ledger_bot/internal/model"
)

// minShare is the smallest slice, in percent, drawn on its own; smaller
// categories are folded into "Other".
const minShare = 1.0

// ChartGenerator renders spending reports as PNG images.
type ChartGenerator struct {
	currency string
}

// NewChartGenerator creates a generator that labels amounts in currency.
func NewChartGenerator(currency string) *ChartGenerator {
	return &ChartGenerator{currency: currency}
}

// GenerateSpendingPie draws one slice per category. It returns nil, nil when
// there is nothing to draw.
func (g *ChartGenerator) GenerateSpendingPie(stats []model.CategoryStats) ([]byte, error) {
	values := make([]chart.Value, 0, len(stats))
	other := decimal.Zero
	otherShare := 0.0

	for _, cat := range stats {
		if cat.Amount.IsZero() {
			continue
		}
		if cat.Share < minShare {
			other = other.Add(cat.Amount)
			otherShare += cat.Share
			continue
		}
		values = append(values, g.value(cat.Name, cat.Amount, cat.Share))
	}
	if !other.IsZero() {
		values = append(values, g.value("Other", other, otherShare))
	}

	if len(values) == 0 {
		return nil, nil
	}

	pie := chart.PieChart{
		Title:  "Spending by category",
		Width:  800,
		Height: 800,
		Values: values,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render spending pie chart: %w", err)
	}

	return buffer.Bytes(), nil
}

func (g *ChartGenerator) value(name string, amount decimal.Decimal, share float64) chart.Value {
	return chart.Value{
		Label: fmt.Sprintf("%s: %s (%.1f%%)", name, format.Currency(amount, g.currency), share),
		Value: amount.InexactFloat64(),
		Style: chart.Style{
			FontSize:  12,
			FontColor: chart.ColorBlack,
		},
	}
}

// Caption summarises stats for the message sent with the chart.
func Caption(stats []model.CategoryStats, currency string) string {
	total := decimal.Zero
	for _, cat := range stats {
		total = total.Add(cat.Amount)
	}
	return fmt.Sprintf("📊 Spending across %d categories: %s", len(stats), format.Currency(total, currency))
}
