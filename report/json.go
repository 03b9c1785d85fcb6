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

package report

import (
	"io"
	"math"
	"time"

	"github.com/goccy/go-json"
)

type jsonReport struct {
	RunID      string           `json:"runId"`
	Generated  time.Time        `json:"generated"`
	Currency   string           `json:"currency"`
	Initial    float64          `json:"initialInvestment"`
	CutoffYear int              `json:"cutoffYear"`
	Chart      string           `json:"chart,omitempty"`
	Inputs     []jsonInput      `json:"inputs"`
	Statistics []jsonStatistics `json:"statistics"`
	Growth     []jsonGrowth     `json:"growth"`
	Join       *jsonJoin        `json:"join,omitempty"`
	Allocation *jsonAllocation  `json:"allocation,omitempty"`
}

type jsonInput struct {
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	Digest    string `json:"blake3,omitempty"`
	Available int    `json:"available"`
	Retained  int    `json:"retained"`
}

type jsonStatistics struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`

	// Ratio is null when the series has zero volatility
	Ratio *float64 `json:"ratio"`
}

type jsonGrowth struct {
	Name        string    `json:"name"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Final       float64   `json:"final"`
	Display     string    `json:"display"`
	TotalReturn float64   `json:"totalReturn"`
}

type jsonJoin struct {
	Rows          int       `json:"rows"`
	DroppedFirst  int       `json:"droppedFirst"`
	DroppedSecond int       `json:"droppedSecond"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

type jsonWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type jsonAllocation struct {
	// Weights lists the first instrument then the second
	Weights         []jsonWeight `json:"weights"`
	W1              float64      `json:"w1"`
	W2              float64      `json:"w2"`
	Variance        float64      `json:"variance"`
	Risk            float64      `json:"risk"`
	Method          string       `json:"method"`
	Status          string       `json:"status"`
	Iterations      int          `json:"iterations"`
	FuncEvaluations int          `json:"funcEvaluations"`
}

// JSON writes the machine readable report
func JSON(w io.Writer, r *Report) error {
	out := jsonReport{
		RunID:      r.RunID,
		Generated:  r.Generated,
		Currency:   r.Currency,
		Initial:    r.Initial,
		CutoffYear: r.CutoffYear,
		Chart:      r.ChartPath,
		Inputs:     make([]jsonInput, 0, len(r.Series)),
		Statistics: make([]jsonStatistics, 0, len(r.Summaries)),
		Growth:     make([]jsonGrowth, 0, len(r.Growth)),
	}

	for _, rs := range r.Series {
		out.Inputs = append(out.Inputs, jsonInput{
			Name:      rs.Name,
			Source:    rs.Source,
			Digest:    rs.Digest,
			Available: rs.Available,
			Retained:  rs.Retained,
		})
	}

	for _, summary := range r.Summaries {
		stats := jsonStatistics{
			Name:   summary.Name,
			Count:  summary.Count,
			Mean:   summary.Mean,
			StdDev: summary.StdDev,
		}
		if !math.IsNaN(summary.Ratio) && !math.IsInf(summary.Ratio, 0) {
			ratio := summary.Ratio
			stats.Ratio = &ratio
		}
		out.Statistics = append(out.Statistics, stats)
	}

	for _, gs := range r.Growth {
		out.Growth = append(out.Growth, jsonGrowth{
			Name:        gs.Name,
			Start:       gs.Frame.Start(),
			End:         gs.Frame.End(),
			Final:       gs.Final,
			Display:     FormatMoney(gs.Final, r.Currency),
			TotalReturn: gs.TotalReturn,
		})
	}

	if r.Joined != nil {
		out.Join = &jsonJoin{
			Rows:          r.Joined.Len(),
			DroppedFirst:  r.Joined.DroppedFirst,
			DroppedSecond: r.Joined.DroppedSecond,
			Start:         r.Joined.Start,
			End:           r.Joined.End,
		}
	}

	if r.Allocation != nil && r.Joined != nil {
		out.Allocation = &jsonAllocation{
			Weights: []jsonWeight{
				{Name: r.Joined.FirstName, Weight: r.Allocation.W1},
				{Name: r.Joined.SecondName, Weight: r.Allocation.W2},
			},
			W1:              r.Allocation.W1,
			W2:              r.Allocation.W2,
			Variance:        r.Allocation.Variance,
			Risk:            r.Allocation.Risk,
			Method:          r.Allocation.Method,
			Status:          r.Allocation.Status,
			Iterations:      r.Allocation.Iterations,
			FuncEvaluations: r.Allocation.FuncEvaluations,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
