package report

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"windwatch/internal/units"
	"windwatch/internal/window"
)

// ErrNoSamples is returned when there is nothing to render.
var ErrNoSamples = errors.New("no samples in window")

// WriteSeriesCSV writes the samples as CSV rows.
func WriteSeriesCSV(w io.Writer, samples []window.Sample) error {
	writer := csv.NewWriter(w)

	header := []string{"captured_at", "source_timestamp", "wind_kt"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range samples {
		record := []string{
			s.CapturedAt.UTC().Format(time.RFC3339),
			s.SourceTimestamp,
			strconv.FormatFloat(s.SpeedKt, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderSeriesPNG draws the wind series with the storm thresholds as a PNG.
func RenderSeriesPNG(w io.Writer, samples []window.Sample, thresholds units.Thresholds) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	x := make([]time.Time, len(samples))
	speeds := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.CapturedAt
		speeds[i] = s.SpeedKt
	}

	// threshold lines extend past the data so a single sample still has an x range
	edges := []time.Time{x[0].Add(-time.Minute), x[len(x)-1].Add(time.Minute)}

	ktFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeMinuteValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Wind (kt)",
			ValueFormatter: ktFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Wind",
				XValues: x,
				YValues: speeds,
			},
			chart.TimeSeries{
				Name:    "Storm",
				XValues: edges,
				YValues: []float64{thresholds.StormKt, thresholds.StormKt},
				Style:   chart.Style{StrokeColor: chart.ColorOrange, StrokeDashArray: []float64{5, 5}},
			},
			chart.TimeSeries{
				Name:    "Strong storm",
				XValues: edges,
				YValues: []float64{thresholds.StrongStormKt, thresholds.StrongStormKt},
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeDashArray: []float64{5, 5}},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}
