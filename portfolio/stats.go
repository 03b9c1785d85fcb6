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

package portfolio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the risk/return figures of one return series
type Summary struct {
	Name   string
	Count  int
	Mean   float64
	StdDev float64

	// Ratio is Mean / StdDev with no risk-free rate; NaN when StdDev is zero
	Ratio          float64
	ZeroVolatility bool
}

// Summarize computes the mean, sample standard deviation (n-1) and reward/risk ratio of returns
func Summarize(name string, returns []float64) (*Summary, error) {
	if len(returns) < 2 {
		return nil, fmt.Errorf("%w: %s has %d returns, need at least 2", ErrInsufficientData, name, len(returns))
	}

	summary := &Summary{
		Name:  name,
		Count: len(returns),
	}

	// identical values must give a standard deviation of exactly zero, which the
	// two pass algorithm in stat does not guarantee for every value
	if floats.Max(returns) == floats.Min(returns) {
		summary.Mean = returns[0]
		summary.StdDev = 0
	} else {
		summary.Mean = stat.Mean(returns, nil)
		summary.StdDev = stat.StdDev(returns, nil)
	}

	if summary.StdDev == 0 {
		summary.Ratio = math.NaN()
		summary.ZeroVolatility = true
		log.Warn().Str("Instrument", name).Msg("return series has zero volatility; ratio is undefined")
	} else {
		summary.Ratio = summary.Mean / summary.StdDev
	}

	return summary, nil
}
