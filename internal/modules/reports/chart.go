package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderSeriesChart draws capital level, total burn and smoothed burn as a PNG
func RenderSeriesChart(points []SeriesPoint, currencyCode string) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	capital := make([]float64, len(points))
	burn := make([]float64, len(points))
	smoothed := make([]float64, len(points))
	for i, p := range points {
		xValues[i] = p.Date.Time
		capital[i] = p.CapitalLevel
		burn[i] = p.TotalBurn
		smoothed[i] = p.SmoothedBurn
	}

	money := func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return fmt.Sprintf("%.0f %s", f, currencyCode)
		}
		return ""
	}

	graph := chart.Chart{
		Title:  "Capital and burn",
		Width:  960,
		Height: 420,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis:          chart.YAxis{ValueFormatter: money},
		YAxisSecondary: chart.YAxis{ValueFormatter: money},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Capital",
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("2563eb"), StrokeWidth: 2.5},
				XValues: xValues,
				YValues: capital,
			},
			chart.TimeSeries{
				Name:    "Burn",
				YAxis:   chart.YAxisSecondary,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("f87171"), StrokeWidth: 1},
				XValues: xValues,
				YValues: burn,
			},
			chart.TimeSeries{
				Name:  "Burn (average)",
				YAxis: chart.YAxisSecondary,
				Style: chart.Style{
					StrokeColor:     drawing.ColorFromHex("b91c1c"),
					StrokeWidth:     2,
					StrokeDashArray: []float64{5.0, 3.0},
				},
				XValues: xValues,
				YValues: smoothed,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
