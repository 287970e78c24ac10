// Package chart renders a collected SST time series as a dual-axis PNG line chart.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/i474232898/sst-timeseries-graph/internal/sst"
)

// ErrEmptyAxis is returned for a series without any dates.
var ErrEmptyAxis = errors.New("empty date axis")

const (
	DefaultWidth  = 1400
	DefaultHeight = 800

	temperatureLabel = "SST Temperature (°C)"
	anomalyLabel     = "SST Anomaly (°C)"
)

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// PresentPoints keeps only the positions of obs that carry a value, paired
// with the matching date.
func PresentPoints(dates []time.Time, obs []sst.Observation) ([]time.Time, []float64) {
	n := min(len(dates), len(obs))
	xs := make([]time.Time, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if v, ok := obs[i].Float(); ok {
			xs = append(xs, dates[i])
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// Title returns the two-line chart title for a location and date axis.
func Title(loc sst.Location, dates []time.Time) string {
	title := "SST Time Series: Temperature and Anomaly\nLocation: " + loc.Label()
	if len(dates) > 0 {
		title += fmt.Sprintf(" (%d-%d)", dates[0].Year(), dates[len(dates)-1].Year())
	}
	return title
}

// yearTicks returns one tick per January 1st from the year of first through
// the first January 1st at or after last. go-chart derives the x-range from
// the ticks, so they must enclose every date.
func yearTicks(first, last time.Time) []gochart.Tick {
	var ticks []gochart.Tick
	for y := first.Year(); ; y++ {
		t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		ticks = append(ticks, gochart.Tick{
			Value: gochart.TimeToFloat64(t),
			Label: t.Format("2006"),
		})
		if !t.Before(last) && len(ticks) > 1 {
			return ticks
		}
	}
}

// valueRange pads the extent of values so flat or single-point series still
// produce a drawable axis.
func valueRange(values []float64) *gochart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.5
	}
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func build(ts sst.TimeSeries, loc sst.Location, opts Options) (gochart.Chart, error) {
	if !ts.Aligned() {
		return gochart.Chart{}, fmt.Errorf("series not aligned: %d dates, %d temperatures, %d anomalies",
			len(ts.Dates), len(ts.Temperatures), len(ts.Anomalies))
	}

	if ts.Len() == 0 {
		return gochart.Chart{}, ErrEmptyAxis
	}

	tempX, tempY := PresentPoints(ts.Dates, ts.Temperatures)
	anomX, anomY := PresentPoints(ts.Dates, ts.Anomalies)

	first, last := ts.Dates[0], ts.Dates[len(ts.Dates)-1]
	ticks := yearTicks(first, last)
	grid := make([]gochart.GridLine, 0, len(ticks))
	for _, tick := range ticks {
		grid = append(grid, gochart.GridLine{Value: tick.Value})
	}

	graph := gochart.Chart{
		Title:  Title(loc, ts.Dates),
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006"),
			Range:          &gochart.ContinuousRange{Min: ticks[0].Value, Max: ticks[len(ticks)-1].Value},
			Ticks:          ticks,
			TickStyle:      gochart.Style{TextRotationDegrees: 45.0},
			GridLines:      grid,
			GridMajorStyle: gochart.Style{
				StrokeColor: gochart.ColorLightGray,
				StrokeWidth: 1.0,
			},
		},
	}

	temperature := gochart.TimeSeries{
		Name: "Temperature",
		Style: gochart.Style{
			StrokeColor: gochart.ColorBlue,
			StrokeWidth: 1.5,
		},
		XValues: tempX,
		YValues: tempY,
	}
	anomaly := gochart.TimeSeries{
		Name: "Anomaly",
		Style: gochart.Style{
			StrokeColor: gochart.ColorRed,
			StrokeWidth: 1.5,
		},
		XValues: anomX,
		YValues: anomY,
	}

	switch {
	case len(tempY) > 0 && len(anomY) > 0:
		anomaly.YAxis = gochart.YAxisSecondary
		graph.YAxis = gochart.YAxis{Name: temperatureLabel, Range: valueRange(tempY)}
		graph.YAxisSecondary = gochart.YAxis{Name: anomalyLabel, Range: valueRange(anomY)}
		graph.Series = []gochart.Series{temperature, anomaly}
	case len(tempY) > 0:
		graph.YAxis = gochart.YAxis{Name: temperatureLabel, Range: valueRange(tempY)}
		graph.Series = []gochart.Series{temperature}
	case len(anomY) > 0:
		graph.YAxis = gochart.YAxis{Name: anomalyLabel, Range: valueRange(anomY)}
		graph.Series = []gochart.Series{anomaly}
	default:
		opts.Logger.Warn("no values collected, rendering empty chart", "samples", ts.Len())
		graph.YAxis = gochart.YAxis{Name: temperatureLabel, Range: &gochart.ContinuousRange{Min: 0, Max: 1}}
		graph.Series = []gochart.Series{emptySeries(first, last)}
		return graph, nil
	}

	graph.Elements = []gochart.Renderable{gochart.LegendLeft(&graph)}
	return graph, nil
}

// emptySeries spans the date axis with an invisible line. go-chart refuses
// to render a chart without at least one visible series.
func emptySeries(first, last time.Time) gochart.TimeSeries {
	return gochart.TimeSeries{
		Name: "No data",
		Style: gochart.Style{
			StrokeColor: gochart.ColorTransparent,
			StrokeWidth: 1,
		},
		XValues: []time.Time{first, last},
		YValues: []float64{0, 0},
	}
}

// Render draws ts as a PNG into w.
func Render(w io.Writer, ts sst.TimeSeries, loc sst.Location, opts Options) error {
	opts = opts.withDefaults()

	graph, err := build(ts, loc, opts)
	if err != nil {
		return err
	}
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// RenderFile renders ts into the PNG file at path, replacing it if present.
// Nothing is written when rendering fails.
func RenderFile(path string, ts sst.TimeSeries, loc sst.Location, opts Options) error {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	if err := Render(&buf, ts, loc, opts); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	opts.Logger.Info("graph saved", "path", path, "bytes", buf.Len())
	return nil
}
