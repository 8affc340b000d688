package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/sql-assistant/server/internal/agent/model"
	"github.com/sql-assistant/server/internal/database"
	"github.com/sql-assistant/server/internal/observability"
)

var (
	ErrEmptyResult     = errors.New("no rows to chart")
	ErrUnknownColumn   = errors.New("unknown chart column")
	ErrNoNumericValues = errors.New("no numeric values to chart")
	ErrUnsupportedType = errors.New("unsupported chart type")
)

const (
	maxBars       = 50
	maxPieSlices  = 12
	maxTickLabels = 20
	labelLen      = 24
)

type point struct {
	x     any
	label string
	y     float64
}

type xKind int

const (
	xCategory xKind = iota
	xNumber
	xTime
)

// Render draws res as a PNG chart described by cfg.
func Render(cfg model.VizConfig, res *model.QueryResult, size model.ChartConfig) ([]byte, error) {
	if res.Empty() {
		return nil, ErrEmptyResult
	}
	xi, yi := res.ColumnIndex(cfg.XColumn), res.ColumnIndex(cfg.YColumn)
	if xi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, cfg.XColumn)
	}
	if yi < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, cfg.YColumn)
	}

	points := collect(res, xi, yi)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w in column %q", ErrNoNumericValues, cfg.YColumn)
	}

	width, height := size.Width, size.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 576
	}
	title := cfg.Title
	if title == "" {
		title = model.DefaultVizTitle
	}

	var (
		buf bytes.Buffer
		err error
	)
	switch cfg.Type {
	case model.VizBar:
		err = barChart(title, cfg, points, width, height).Render(chart.PNG, &buf)
	case model.VizLine:
		err = xyChart(title, cfg, points, width, height, true).Render(chart.PNG, &buf)
	case model.VizScatter:
		err = xyChart(title, cfg, points, width, height, false).Render(chart.PNG, &buf)
	case model.VizPie:
		var pie *chart.PieChart
		if pie, err = pieChart(title, points, width, height); err == nil {
			err = pie.Render(chart.PNG, &buf)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", cfg.Type, err)
	}

	observability.IncrementChartRendered(string(cfg.Type))
	return buf.Bytes(), nil
}

func collect(res *model.QueryResult, xi, yi int) []point {
	points := make([]point, 0, len(res.Rows))
	for _, row := range res.Rows {
		if xi >= len(row) || yi >= len(row) {
			continue
		}
		y, ok := model.AsFloat(row[yi])
		if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		points = append(points, point{x: row[xi], label: shorten(database.FormatValue(row[xi])), y: y})
	}
	return points
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= labelLen {
		return s
	}
	return string(r[:labelLen-1]) + "…"
}

func kindOfX(points []point) xKind {
	numbers, times := 0, 0
	for _, p := range points {
		if _, ok := model.AsFloat(p.x); ok {
			numbers++
		} else if _, ok := p.x.(time.Time); ok {
			times++
		}
	}
	switch {
	case numbers == len(points):
		return xNumber
	case times == len(points):
		return xTime
	}
	return xCategory
}

// yRange spans the values and zero, never collapsing to a single value.
func yRange(points []point) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, p := range points {
		lo = math.Min(lo, p.y)
		hi = math.Max(hi, p.y)
	}
	if lo == hi {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}}
}

func barChart(title string, cfg model.VizConfig, points []point, width, height int) chart.BarChart {
	if len(points) > maxBars {
		points = points[:maxBars]
	}
	bars := make([]chart.Value, len(points))
	for i, p := range points {
		bars[i] = chart.Value{Label: p.label, Value: p.y}
	}

	spacing := 8
	barWidth := (width-120)/len(bars) - spacing
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth, spacing = 4, 2
	}

	return chart.BarChart{
		Title:        title,
		Width:        width,
		Height:       height,
		Background:   background(),
		BarWidth:     barWidth,
		BarSpacing:   spacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Name: cfg.YColumn, Range: yRange(points)},
		Bars:         bars,
	}
}

func xyChart(title string, cfg model.VizConfig, points []point, width, height int, line bool) chart.Chart {
	style := chart.Style{StrokeWidth: 2, DotWidth: 3}
	if !line {
		style = chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5}
	}

	xAxis := chart.XAxis{Name: cfg.XColumn}
	var series chart.Series

	kind := kindOfX(points)
	if kind == xTime && len(points) < 2 {
		kind = xCategory
	}
	switch kind {
	case xTime:
		pts := append([]point(nil), points...)
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].x.(time.Time).Before(pts[j].x.(time.Time)) })
		ts := chart.TimeSeries{Name: cfg.YColumn, Style: style}
		for _, p := range pts {
			ts.XValues = append(ts.XValues, p.x.(time.Time))
			ts.YValues = append(ts.YValues, p.y)
		}
		xAxis.ValueFormatter = chart.TimeDateValueFormatter
		if ts.XValues[0].Equal(ts.XValues[len(ts.XValues)-1]) {
			first := chart.TimeToFloat64(ts.XValues[0])
			xAxis.Range = &chart.ContinuousRange{Min: first - 1, Max: first + 1}
		}
		series = ts

	case xNumber:
		pts := append([]point(nil), points...)
		if line {
			sort.SliceStable(pts, func(i, j int) bool {
				a, _ := model.AsFloat(pts[i].x)
				b, _ := model.AsFloat(pts[j].x)
				return a < b
			})
		}
		cs := chart.ContinuousSeries{Name: cfg.YColumn, Style: style}
		for _, p := range pts {
			x, _ := model.AsFloat(p.x)
			cs.XValues = append(cs.XValues, x)
			cs.YValues = append(cs.YValues, p.y)
		}
		lo, hi := minMax(cs.XValues)
		if lo == hi {
			xAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
		}
		series = cs

	default:
		// categories sit on 0..n-1; the blank edge ticks pad the x range
		cs := chart.ContinuousSeries{Name: cfg.YColumn, Style: style}
		step := (len(points) + maxTickLabels - 1) / maxTickLabels
		xAxis.Ticks = append(xAxis.Ticks, chart.Tick{Value: -0.5})
		for i, p := range points {
			cs.XValues = append(cs.XValues, float64(i))
			cs.YValues = append(cs.YValues, p.y)
			if i%step == 0 {
				xAxis.Ticks = append(xAxis.Ticks, chart.Tick{Value: float64(i), Label: p.label})
			}
		}
		xAxis.Ticks = append(xAxis.Ticks, chart.Tick{Value: float64(len(points)) - 0.5})
		series = cs
	}

	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis:      xAxis,
		YAxis:      chart.YAxis{Name: cfg.YColumn, Range: yRange(points)},
		Series:     []chart.Series{series},
	}
	return ch
}

func minMax(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// pieChart keeps the largest slices and folds the rest into "Other".
// Non-positive values cannot be drawn and are skipped.
func pieChart(title string, points []point, width, height int) (*chart.PieChart, error) {
	var values []chart.Value
	for _, p := range points {
		if p.y > 0 {
			values = append(values, chart.Value{Label: p.label, Value: p.y})
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: pie needs positive values", ErrNoNumericValues)
	}

	sort.SliceStable(values, func(i, j int) bool { return values[i].Value > values[j].Value })
	if len(values) > maxPieSlices {
		other := 0.0
		for _, v := range values[maxPieSlices-1:] {
			other += v.Value
		}
		values = append(values[:maxPieSlices-1], chart.Value{Label: "Other", Value: other})
	}

	return &chart.PieChart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: background(),
		Values:     values,
	}, nil
}
