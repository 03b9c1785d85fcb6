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
	"time"

	"github.com/penny-vault/minvar/common"
	"github.com/penny-vault/minvar/dataframe"
)

// PriceSeries is the raw (date, close) history of one instrument as read from its source.
// The price column keeps the name it had in the source file.
type PriceSeries struct {
	Name        string
	Source      string
	Digest      string
	PriceColumn string
	Frame       *dataframe.DataFrame[time.Time]
}

// ReturnSeries is a cleaned, date sorted series carrying the canonical Close and Return columns
type ReturnSeries struct {
	Name   string
	Source string
	Digest string

	// Available is the number of rows with a defined return, before the cutoff filter
	Available int

	// Retained is the number of rows left after the cutoff filter
	Retained int

	Frame *dataframe.DataFrame[time.Time]
}

// Returns is the Return column of the series
func (rs *ReturnSeries) Returns() []float64 {
	vals, err := rs.Frame.Column(common.ReturnIdx)
	if err != nil {
		return []float64{}
	}
	return vals
}

// Closes is the Close column of the series
func (rs *ReturnSeries) Closes() []float64 {
	vals, err := rs.Frame.Column(common.CloseIdx)
	if err != nil {
		return []float64{}
	}
	return vals
}

// Dates is the date index of the series
func (rs *ReturnSeries) Dates() []time.Time {
	return rs.Frame.Index
}
