// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chart renders the growth of an investment in each instrument as a line chart
package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/penny-vault/minvar/portfolio"
	"github.com/rs/zerolog/log"
	charts "github.com/vicanso/go-charts/v2"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const yDivisions = 5

var (
	ErrNoSeries      = errors.New("no series to plot")
	ErrUnknownFormat = errors.New("unknown chart format")
)

// Options control the rendered image
type Options struct {
	Title    string
	Subtitle string
	Format   string
	Width    int
	Height   int
}

// DefaultOptions renders a 1200x700 PNG
func DefaultOptions() Options {
	return Options{
		Title:  "Growth of investment",
		Format: FormatPNG,
		Width:  1200,
		Height: 700,
	}
}

// Align places every series on the union of their dates. A series without a value on some date
// carries its previous value forward; before its first date it holds the initial investment.
func Align(series ...*portfolio.GrowthSeries) (dates []time.Time, values [][]float64) {
	seen := make(map[int64]time.Time)
	for _, gs := range series {
		for _, dt := range gs.Frame.Index {
			seen[dt.UnixNano()] = dt
		}
	}

	dates = make([]time.Time, 0, len(seen))
	for _, dt := range seen {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	values = make([][]float64, len(series))
	for idx, gs := range series {
		aligned := make([]float64, len(dates))
		src := gs.Values()
		last := gs.Initial
		pos := 0
		for ii, dt := range dates {
			if pos < len(gs.Frame.Index) && gs.Frame.Index[pos].Equal(dt) {
				last = src[pos]
				pos++
			}
			aligned[ii] = last
		}
		values[idx] = aligned
	}

	return dates, values
}

// RenderGrowth draws each growth series as a line over a shared date axis and returns the encoded image
func RenderGrowth(series []*portfolio.GrowthSeries, opts Options) ([]byte, error) {
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatPNG
	}
	if format != FormatPNG && format != FormatSVG {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	dates, values := Align(series...)
	if len(dates) == 0 {
		return nil, ErrNoSeries
	}

	xLabels := make([]string, len(dates))
	for idx, dt := range dates {
		xLabels[idx] = dt.Format("2006-01-02")
	}

	names := make([]string, len(series))
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for idx, gs := range series {
		names[idx] = gs.Name
		for _, v := range values[idx] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	yMin, yMax, step := AxisBounds(lo, hi, yDivisions)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for idx := range seriesList {
		seriesList[idx].Name = names[idx]
	}

	split := 12
	if len(xLabels) <= 30 {
		split = len(xLabels) / 3
		if split < 3 {
			split = 3
		}
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultOptions().Width
	}
	if height <= 0 {
		height = DefaultOptions().Height
	}

	painter, err := charts.Render(charts.ChartOption{
		Type:           format,
		Width:          width,
		Height:         height,
		SeriesList:     seriesList,
		ValueFormatter: tickFormatter(step),
	},
		charts.TitleTextOptionFunc(opts.Title, opts.Subtitle),
		// the last date label is centred on the right edge of the plot
		charts.PaddingOptionFunc(charts.Box{Top: 20, Left: 20, Right: 60, Bottom: 20}),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: yDivisions}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		log.Error().Err(err).Msg("could not render growth chart")
		return nil, fmt.Errorf("render chart: %w", err)
	}

	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}

	log.Debug().Str("Format", format).Int("Bytes", len(buf)).Int("NumDates", len(dates)).Msg("rendered growth chart")
	return buf, nil
}

// AxisBounds widens [lo, hi] by 5% and snaps it outward to divisions equal steps of 1, 2 or 5
// times a power of ten, so every tick lands on a round value.
func AxisBounds(lo, hi float64, divisions int) (lower, upper, step float64) {
	if divisions <= 0 {
		divisions = yDivisions
	}

	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 1)
	}
	lo -= pad
	hi += pad

	step = niceStep((hi - lo) / float64(divisions))
	for {
		lower = math.Floor(lo/step) * step
		upper = lower + step*float64(divisions)
		if upper >= hi {
			return lower, upper, step
		}
		step = niceStep(step * 1.000001)
	}
}

// AxisTicks lists the tick values the chart draws between lower and upper
func AxisTicks(lower, upper float64, divisions int) []float64 {
	ticks := make([]float64, divisions+1)
	for ii := range ticks {
		ticks[ii] = lower + float64(ii)*(upper-lower)/float64(divisions)
	}
	return ticks
}

// niceStep is the smallest 1, 2 or 5 times a power of ten that is at least raw
func niceStep(raw float64) float64 {
	magnitude := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, mult := range []float64{1, 2, 5, 10} {
		if candidate := mult * magnitude; candidate >= raw*(1-1e-12) {
			return candidate
		}
	}
	return 10 * magnitude
}

func tickFormatter(step float64) charts.ValueFormatter {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	return func(v float64) string {
		return humanize.CommafWithDigits(v, decimals)
	}
}
