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

package data

import (
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/minvar/common"
	"github.com/rs/zerolog/log"
)

// CleanOptions control the transformation from prices to returns
type CleanOptions struct {
	// CutoffYear keeps rows dated on or after Jan 1 of this year; zero or less keeps every row
	CutoffYear int
	Location   *time.Location
}

// Clean sorts the price history, renames the price column to Close, derives the weekly return
// and drops the first row (its return is undefined). Rows before the cutoff year are removed last.
func Clean(ps *PriceSeries, opts CleanOptions) (*ReturnSeries, error) {
	subLog := log.With().Str("Instrument", ps.Name).Logger()

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	df := ps.Frame.Copy()
	if ps.PriceColumn != common.CloseIdx {
		if err := df.Rename(ps.PriceColumn, common.CloseIdx); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ps.PriceColumn)
		}
	}

	df = df.Sort()
	if dup, found := df.Duplicate(); found {
		subLog.Error().Time("Date", dup).Msg("price history contains duplicate dates")
		return nil, fmt.Errorf("%w: %s appears more than once in %s", ErrDuplicateDate, dup.Format("2006-01-02"), ps.Name)
	}

	if df.Len() < 2 {
		return nil, fmt.Errorf("%w: %d price rows, need at least 2", ErrInsufficientData, df.Len())
	}

	pct := df.PctChange()
	df.Insert(common.ReturnIdx, pct.Vals[df.ColIndex(common.CloseIdx)])
	df = df.Drop(math.NaN())

	available := df.Len()
	subLog.Info().Int("NumRows", available).Msg("rows after computing returns")

	retained := df
	if opts.CutoffYear > 0 {
		cutoff := time.Date(opts.CutoffYear, time.January, 1, 0, 0, 0, 0, loc)
		retained = df.Trim(cutoff, df.End())
	}

	if retained.Len() == 0 {
		subLog.Error().Int("CutoffYear", opts.CutoffYear).Msg("no rows left after cutoff filter")
		return nil, fmt.Errorf("%w: %s has no rows on or after %d", ErrInsufficientData, ps.Name, opts.CutoffYear)
	}

	subLog.Info().Int("NumRows", retained.Len()).Int("CutoffYear", opts.CutoffYear).Msg("rows after cutoff filter")

	return &ReturnSeries{
		Name:      ps.Name,
		Source:    ps.Source,
		Digest:    ps.Digest,
		Available: available,
		Retained:  retained.Len(),
		Frame:     retained,
	}, nil
}
