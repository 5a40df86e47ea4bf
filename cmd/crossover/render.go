package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-crossover/internal/strategy"
	"github.com/rxtech-lab/argo-crossover/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for field names.
	LabelStyle = lipgloss.NewStyle().Faint(true)

	BuyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	SellStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	HoldStyle = lipgloss.NewStyle().Bold(true)

	BoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func decisionStyle(decision string) lipgloss.Style {
	switch decision {
	case string(types.DecisionBuy):
		return BuyStyle
	case string(types.DecisionSell):
		return SellStyle
	default:
		return HoldStyle
	}
}

// renderSeries renders the last rows of the series as a table.
func renderSeries(series []types.SignalState, rows int) string {
	if rows > 0 && len(series) > rows {
		series = series[len(series)-rows:]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "CLOSE", "FAST MA", "SLOW MA", "SIGNAL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle
			}

			if col == 4 {
				return decisionStyle(string(series[row].Signal))
			}

			return lipgloss.NewStyle()
		})

	for _, row := range series {
		t.Row(
			row.Time.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.4f", row.Close),
			fmt.Sprintf("%.4f", row.FastMA),
			fmt.Sprintf("%.4f", row.SlowMA),
			string(row.Signal),
		)
	}

	return t.Render()
}

// renderAnalysis renders the decision of an analysis with the latest averages.
func renderAnalysis(symbol string, analysis strategy.Analysis) string {
	lines := []string{
		TitleStyle.Render(symbol),
		LabelStyle.Render("Position: ") + fmt.Sprintf("%g", analysis.Position),
	}

	if last, err := analysis.Last().Take(); err == nil {
		lines = append(lines,
			LabelStyle.Render("Fast MA:  ")+fmt.Sprintf("%.4f", last.FastMA),
			LabelStyle.Render("Slow MA:  ")+fmt.Sprintf("%.4f", last.SlowMA),
		)
	} else {
		lines = append(lines, LabelStyle.Render("Not enough bars for both averages"))
	}

	lines = append(lines,
		LabelStyle.Render("Decision: ")+decisionStyle(string(analysis.Decision)).Render(string(analysis.Decision)),
	)

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

func renderFill(fill types.Fill) string {
	return BoxStyle.Render(strings.Join([]string{
		TitleStyle.Render("Order " + fill.OrderID),
		LabelStyle.Render("Action:   ") + decisionStyle(string(fill.Action)).Render(string(fill.Action)),
		LabelStyle.Render("Status:   ") + string(fill.Status),
		LabelStyle.Render("Quantity: ") + fmt.Sprintf("%d", fill.Quantity),
		LabelStyle.Render("Price:    ") + fmt.Sprintf("%.4f", fill.FillPrice),
	}, "\n"))
}

func renderSummary(symbol string, summary types.PerformanceSummary) string {
	pnlStyle := HoldStyle
	if summary.TotalPnL > 0 {
		pnlStyle = BuyStyle
	} else if summary.TotalPnL < 0 {
		pnlStyle = SellStyle
	}

	return BoxStyle.Render(strings.Join([]string{
		TitleStyle.Render("Performance " + symbol),
		LabelStyle.Render("Total P&L:     ") + pnlStyle.Render(fmt.Sprintf("%.2f", summary.TotalPnL)),
		LabelStyle.Render("Trades:        ") + fmt.Sprintf("%d", summary.NumTrades),
		LabelStyle.Render("Average P&L:   ") + fmt.Sprintf("%.2f", summary.AveragePnLPerTrade),
	}, "\n"))
}
