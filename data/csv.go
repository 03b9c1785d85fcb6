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
	"bytes"
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/minvar/dataframe"
	imports "github.com/rocketlaunchr/dataframe-go/imports"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// LoadOptions control how a price file is interpreted
type LoadOptions struct {
	DateColumns  []string
	CloseColumns []string
	DateLayout   string
	Location     *time.Location
}

// DefaultLoadOptions accepts both the English and the Polish stooq headers
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		DateColumns:  []string{"Date", "Data"},
		CloseColumns: []string{"Close", "Zamkniecie"},
		DateLayout:   "2006-01-02",
		Location:     time.UTC,
	}
}

func (opts LoadOptions) withDefaults() LoadOptions {
	def := DefaultLoadOptions()
	if len(opts.DateColumns) == 0 {
		opts.DateColumns = def.DateColumns
	}
	if len(opts.CloseColumns) == 0 {
		opts.CloseColumns = def.CloseColumns
	}
	if opts.DateLayout == "" {
		opts.DateLayout = def.DateLayout
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	return opts
}

// LoadCSV reads the price history stored in fn
func LoadCSV(ctx context.Context, name, fn string, opts LoadOptions) (*PriceSeries, error) {
	body, err := os.ReadFile(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not read price file")
		return nil, err
	}

	ps, err := ParseCSV(ctx, name, body, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	ps.Source = fn
	return ps, nil
}

// ParseCSV reads a price history from the CSV encoded body. The header row must carry one of
// the configured date columns and one of the configured price columns; other columns are ignored.
func ParseCSV(ctx context.Context, name string, body []byte, opts LoadOptions) (*PriceSeries, error) {
	opts = opts.withDefaults()
	subLog := log.With().Str("Instrument", name).Logger()

	digest := blake3.Sum256(body)

	header, dateCol, closeCol, rows, err := scanRecords(body, opts)
	if err != nil {
		return nil, err
	}
	if rows < 2 {
		subLog.Error().Int("NumRows", rows).Msg("not enough price rows to compute a return")
		return nil, fmt.Errorf("%w: %d price rows, need at least 2", ErrInsufficientData, rows)
	}

	dateName := header[dateCol]
	closeName := header[closeCol]

	// the converters are called once per data row in file order; row tracks the line for error messages
	var convErr error
	dateRow := 0
	closeRow := 0

	res, err := imports.LoadFromCSV(ctx, bytes.NewReader(body), imports.CSVLoadOptions{
		DictateDataType: map[string]interface{}{
			dateName: imports.Converter{
				ConcreteType: time.Time{},
				ConverterFunc: func(in interface{}) (interface{}, error) {
					dateRow++
					val := strings.TrimSpace(in.(string))
					dt, err := time.ParseInLocation(opts.DateLayout, val, opts.Location)
					if err != nil {
						err = fmt.Errorf("%w: row %d value %q (expected layout %s)", ErrMalformedDate, dateRow+1, val, opts.DateLayout)
						if convErr == nil {
							convErr = err
						}
						return nil, err
					}
					return dt, nil
				},
			},
			closeName: imports.Converter{
				ConcreteType: float64(0),
				ConverterFunc: func(in interface{}) (interface{}, error) {
					closeRow++
					val := strings.TrimSpace(in.(string))
					price, err := parsePrice(val)
					if err != nil {
						err = fmt.Errorf("%w: row %d value %q", err, closeRow+1, val)
						if convErr == nil {
							convErr = err
						}
						return nil, err
					}
					return price, nil
				},
			},
		},
	})

	if convErr != nil {
		subLog.Error().Err(convErr).Msg("could not parse price file")
		return nil, convErr
	}
	if err != nil {
		subLog.Error().Err(err).Msg("could not import price file")
		return nil, err
	}

	dateIdx, err := res.NameToColumn(dateName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, dateName)
	}
	closeIdx, err := res.NameToColumn(closeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, closeName)
	}

	nrows := res.NRows()
	dates := make([]time.Time, nrows)
	closes := make([]float64, nrows)
	for ii := 0; ii < nrows; ii++ {
		dt, ok := res.Series[dateIdx].Value(ii).(time.Time)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is empty", ErrMalformedDate, ii+2)
		}
		price, ok := res.Series[closeIdx].Value(ii).(float64)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is empty", ErrMalformedPrice, ii+2)
		}
		dates[ii] = dt
		closes[ii] = price
	}

	priceCol := strings.TrimSpace(strings.TrimPrefix(closeName, "\ufeff"))
	subLog.Debug().Int("NumRows", nrows).Str("PriceColumn", priceCol).Msg("loaded price history")

	return &PriceSeries{
		Name:        name,
		Digest:      hex.EncodeToString(digest[:]),
		PriceColumn: priceCol,
		Frame: &dataframe.DataFrame[time.Time]{
			Index:    dates,
			ColNames: []string{priceCol},
			Vals:     [][]float64{closes},
		},
	}, nil
}

// scanRecords resolves the date and price columns from the header and checks that no data row
// leaves either of them blank. It returns the raw header, the two column positions and the
// number of data rows.
func scanRecords(body []byte, opts LoadOptions) (header []string, dateCol, closeCol, rows int, err error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err = reader.Read()
	if err == io.EOF {
		return nil, 0, 0, 0, fmt.Errorf("%w: file is empty", ErrInsufficientData)
	}
	if err != nil {
		return nil, 0, 0, 0, err
	}

	dateCol = resolveColumn(header, opts.DateColumns)
	if dateCol < 0 {
		return nil, 0, 0, 0, fmt.Errorf("%w: none of %v found in header %v", ErrMissingColumn, opts.DateColumns, header)
	}
	closeCol = resolveColumn(header, opts.CloseColumns)
	if closeCol < 0 {
		return nil, 0, 0, 0, fmt.Errorf("%w: none of %v found in header %v", ErrMissingColumn, opts.CloseColumns, header)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, 0, err
		}
		rows++
		line := rows + 1
		if dateCol >= len(rec) || strings.TrimSpace(rec[dateCol]) == "" {
			return nil, 0, 0, 0, fmt.Errorf("%w: row %d is empty", ErrMalformedDate, line)
		}
		if closeCol >= len(rec) || strings.TrimSpace(rec[closeCol]) == "" {
			return nil, 0, 0, 0, fmt.Errorf("%w: row %d is empty", ErrMalformedPrice, line)
		}
	}

	return header, dateCol, closeCol, rows, nil
}

// resolveColumn returns the position of the first header matching any alias, or -1
func resolveColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		want := normalizeColumn(alias)
		for idx, col := range header {
			if normalizeColumn(col) == want {
				return idx
			}
		}
	}
	return -1
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

func parsePrice(val string) (float64, error) {
	price, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, ErrMalformedPrice
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrMalformedPrice
	}
	return price, nil
}
