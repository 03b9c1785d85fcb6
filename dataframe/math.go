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

package dataframe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// AddScalar adds the scalar value to all columns in dataframe df and returns a new dataframe
func (df *DataFrame[T]) AddScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.AddConst(scalar, df.Vals[colIdx])
	}
	return df
}

// CumProd computes the running product of each column and returns a new dataframe.
// A NaN poisons the remainder of its column.
func (df *DataFrame[T]) CumProd() *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.CumProd(df.Vals[colIdx], df.Vals[colIdx])
	}
	return df
}

// MulScalar multiplies all columns in dataframe df by the scalar and returns a new dataframe
func (df *DataFrame[T]) MulScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.ColNames {
		floats.Scale(scalar, df.Vals[colIdx])
	}
	return df
}

// PctChange computes the period-over-period percentage change of every column,
// vals[i]/vals[i-1] - 1, and returns a new dataframe. The first row of each
// column is NaN because it has no prior period.
func (df *DataFrame[T]) PctChange() *DataFrame[T] {
	res := df.Copy()

	for colIdx, col := range df.Vals {
		if len(col) == 0 {
			continue
		}
		res.Vals[colIdx][0] = math.NaN()
		for rowIdx := 1; rowIdx < len(col); rowIdx++ {
			res.Vals[colIdx][rowIdx] = col[rowIdx]/col[rowIdx-1] - 1.0
		}
	}

	return res
}
