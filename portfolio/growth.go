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
	"time"

	"github.com/penny-vault/minvar/common"
	"github.com/penny-vault/minvar/data"
	"github.com/penny-vault/minvar/dataframe"
)

// GrowthSeries is the value over time of an initial investment compounded by a return series
type GrowthSeries struct {
	Name    string
	Initial float64

	// Frame holds a single Cumulative column indexed by date
	Frame *dataframe.DataFrame[time.Time]

	Final       float64
	TotalReturn float64
}

// Growth compounds initial by each return: cumulative[i] = initial * prod(1 + r[0..i])
func Growth(rs *data.ReturnSeries, initial float64) (*GrowthSeries, error) {
	if initial <= 0 {
		return nil, fmt.Errorf("initial investment must be positive: %v", initial)
	}

	returns, err := rs.Frame.Select(common.ReturnIdx)
	if err != nil {
		return nil, err
	}

	if returns.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no returns", ErrInsufficientData, rs.Name)
	}

	cumulative := returns.AddScalar(1).CumProd().MulScalar(initial)
	if err := cumulative.Rename(common.ReturnIdx, common.CumulativeIdx); err != nil {
		return nil, err
	}

	vals := cumulative.Vals[0]
	final := vals[len(vals)-1]

	return &GrowthSeries{
		Name:        rs.Name,
		Initial:     initial,
		Frame:       cumulative,
		Final:       final,
		TotalReturn: final/initial - 1,
	}, nil
}

// Values returns the cumulative value column
func (gs *GrowthSeries) Values() []float64 {
	return gs.Frame.Vals[0]
}
