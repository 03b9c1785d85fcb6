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
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// JoinedReturns are the returns of two instruments on the dates both of them traded
type JoinedReturns struct {
	FirstName  string
	SecondName string

	// Frame has two columns, the first and second instrument's returns
	Frame *dataframe.DataFrame[time.Time]

	// DroppedFirst and DroppedSecond count the dates only one side had
	DroppedFirst  int
	DroppedSecond int

	// Start and End bound the period covered by both inputs
	Start time.Time
	End   time.Time
}

// JoinReturns inner joins the return columns of a and b on date
func JoinReturns(a, b *data.ReturnSeries) (*JoinedReturns, error) {
	left, err := a.Frame.Select(common.ReturnIdx)
	if err != nil {
		return nil, err
	}
	right, err := b.Frame.Select(common.ReturnIdx)
	if err != nil {
		return nil, err
	}

	joined, err := left.InnerJoin(right, a.Name, b.Name)
	if err != nil {
		return nil, err
	}

	jr := &JoinedReturns{
		FirstName:     a.Name,
		SecondName:    b.Name,
		Frame:         joined,
		DroppedFirst:  left.Len() - joined.Len(),
		DroppedSecond: right.Len() - joined.Len(),
		Start:         common.MaxTime(left.Start(), right.Start()),
		End:           common.MinTime(left.End(), right.End()),
	}

	if jr.DroppedFirst > 0 || jr.DroppedSecond > 0 {
		log.Warn().
			Str("First", a.Name).Int("FirstDropped", jr.DroppedFirst).
			Str("Second", b.Name).Int("SecondDropped", jr.DroppedSecond).
			Int("NumRows", joined.Len()).
			Time("Start", jr.Start).Time("End", jr.End).
			Msg("trading calendars differ; dates missing from either series are excluded from the covariance")
	}

	if e := log.Debug(); e.Enabled() {
		e.Str("Table", joined.Table()).Msg("joined returns")
	}

	return jr, nil
}

// Len is the number of joined dates
func (jr *JoinedReturns) Len() int {
	return jr.Frame.Len()
}

// Covariance computes the 2x2 sample covariance matrix (n-1) of the joined returns
func Covariance(jr *JoinedReturns) (*mat.SymDense, error) {
	n := jr.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: %s and %s", ErrNoOverlap, jr.FirstName, jr.SecondName)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: %d joined rows, need at least 2", ErrInsufficientData, n)
	}

	obs := mat.NewDense(n, 2, nil)
	obs.SetCol(0, jr.Frame.Vals[0])
	obs.SetCol(1, jr.Frame.Vals[1])

	cov := mat.NewSymDense(2, nil)
	stat.CovarianceMatrix(cov, obs, nil)

	return cov, nil
}
