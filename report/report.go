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

// Package report renders the outcome of an analysis run for people (text) and machines (JSON)
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/penny-vault/minvar/common"
	"github.com/penny-vault/minvar/data"
	"github.com/penny-vault/minvar/portfolio"
	"github.com/rs/zerolog/log"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown report format")
)

// Report is everything an analysis run produced
type Report struct {
	RunID      string
	Generated  time.Time
	Currency   string
	Initial    float64
	CutoffYear int
	ChartPath  string

	// Series, Summaries and Growth are ordered first instrument, second instrument
	Series    []*data.ReturnSeries
	Summaries []*portfolio.Summary
	Growth    []*portfolio.GrowthSeries

	Joined     *portfolio.JoinedReturns
	Allocation *portfolio.Allocation
}

// Render encodes the report in the requested format
func Render(r *Report, format string) ([]byte, error) {
	var sb strings.Builder
	var err error

	switch strings.ToLower(format) {
	case FormatText, "":
		err = Text(&sb, r)
	case FormatJSON:
		err = JSON(&sb, r)
	default:
		return nil, fmt.Errorf("%w: %q (expected %s or %s)", ErrUnknownFormat, format, FormatText, FormatJSON)
	}

	if err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// Write renders the report to fn, or to out when fn is empty. A file name ending in .lz4 is
// written as an lz4 frame.
func Write(r *Report, format, fn string, out io.Writer) error {
	buf, err := Render(r, format)
	if err != nil {
		return err
	}

	if fn == "" {
		_, err = out.Write(buf)
		return err
	}

	if common.IsCompressedPath(fn) {
		buf, err = common.Compress(buf)
		if err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("could not compress report")
			return err
		}
	}

	if err := os.WriteFile(fn, buf, 0600); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not write report")
		return err
	}

	log.Info().Str("FileName", fn).Int("Bytes", len(buf)).Msg("wrote report")
	return nil
}
