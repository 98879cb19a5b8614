// Package charts renders analytics results as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"budgetmalin/internal/analytics"
	"budgetmalin/internal/core"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("not enough data to draw a chart")

const (
	width  = 900
	height = 500
)

var fallbackColors = []string{"#007bff", "#28a745", "#dc3545", "#ffc107", "#17a2b8", "#6f42c1", "#fd7e14", "#20c997"}

// CategoryPie draws the expense split by category, largest slice first.
func CategoryPie(w io.Writer, expenseByCategory map[string]core.Money) error {
	ranked := analytics.TopCategories(expenseByCategory, 0)
	if len(ranked) == 0 {
		return ErrNoData
	}

	values := make([]chart.Value, 0, len(ranked))
	for i, c := range ranked {
		if c.Amount.Cents <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: c.Amount.Euros(),
			Label: fmt.Sprintf("%s %s", c.Category, c.Amount.String()),
			Style: chart.Style{FillColor: categoryColor(c.Category, i)},
		})
	}

	if len(values) == 0 {
		return ErrNoData
	}

	pie := chart.PieChart{
		Width:  height,
		Height: height,
		Values: values,
	}
	return render(w, pie.Render)
}

// MonthlyTrend draws monthly income and expense lines. At least two months
// are needed.
func MonthlyTrend(w io.Writer, mt analytics.MonthlyTrend) error {
	if len(mt.Months) < 2 {
		return ErrNoData
	}

	x := make([]float64, len(mt.Months))
	income := make([]float64, len(mt.Months))
	expense := make([]float64, len(mt.Months))
	ticks := make([]chart.Tick, len(mt.Months))
	for i, m := range mt.Months {
		x[i] = float64(i)
		income[i] = mt.Income[i].Euros()
		expense[i] = mt.Expense[i].Euros()
		ticks[i] = chart.Tick{Value: float64(i), Label: m.String()}
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Ticks: ticks},
		YAxis: chart.YAxis{
			ValueFormatter: func(v any) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Revenus",
				XValues: x,
				YValues: income,
				Style:   chart.Style{StrokeColor: chart.ColorGreen, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Dépenses",
				XValues: x,
				YValues: expense,
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return render(w, graph.Render)
}

// render buffers the image so a failed render writes nothing to w.
func render(w io.Writer, fn func(chart.RendererProvider, io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(chart.PNG, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var knownColors = func() map[string]string {
	m := make(map[string]string, len(core.DefaultCategories))
	for _, c := range core.DefaultCategories {
		m[strings.ToLower(c.Name)] = c.Color
	}
	return m
}()

func categoryColor(name string, i int) drawing.Color {
	hex, ok := knownColors[strings.ToLower(name)]
	if !ok {
		hex = fallbackColors[i%len(fallbackColors)]
	}
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
