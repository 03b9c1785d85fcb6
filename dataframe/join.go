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

import "fmt"

// InnerJoin combines df and other on their index, keeping only index values present in
// both. Rows are emitted in the order of df. Column names are suffixed with `:leftSuffix`
// and `:rightSuffix` so both sides may carry a column of the same name, e.g. Return:dino
//
// Both dataframes must have unique index values.
func (df *DataFrame[T]) InnerJoin(other *DataFrame[T], leftSuffix, rightSuffix string) (*DataFrame[T], error) {
	if dup, found := df.Duplicate(); found {
		return nil, fmt.Errorf("%w: %v (left side)", ErrDuplicateIndex, dup)
	}
	if dup, found := other.Duplicate(); found {
		return nil, fmt.Errorf("%w: %v (right side)", ErrDuplicateIndex, dup)
	}

	rowMap := make(map[T]int, other.Len())
	for rowIdx, key := range other.Index {
		rowMap[key] = rowIdx
	}

	res := &DataFrame[T]{
		Index:    make([]T, 0, min(df.Len(), other.Len())),
		ColNames: make([]string, 0, df.ColCount()+other.ColCount()),
		Vals:     make([][]float64, df.ColCount()+other.ColCount()),
	}

	for _, colName := range df.ColNames {
		res.ColNames = append(res.ColNames, joinName(colName, leftSuffix))
	}
	for _, colName := range other.ColNames {
		res.ColNames = append(res.ColNames, joinName(colName, rightSuffix))
	}

	offset := df.ColCount()
	for rowIdx, key := range df.Index {
		otherRowIdx, ok := rowMap[key]
		if !ok {
			continue
		}

		res.Index = append(res.Index, key)
		for colIdx, col := range df.Vals {
			res.Vals[colIdx] = append(res.Vals[colIdx], col[rowIdx])
		}
		for colIdx, col := range other.Vals {
			res.Vals[offset+colIdx] = append(res.Vals[offset+colIdx], col[otherRowIdx])
		}
	}

	return res, nil
}

func joinName(colName, suffix string) string {
	if suffix == "" {
		return colName
	}
	return colName + ":" + suffix
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
