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

// Package pipeline runs the analysis stages in order: load, clean, summarize, grow, join,
// optimize and chart. Each stage takes the previous stage's output; nothing is shared.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/minvar/chart"
	"github.com/penny-vault/minvar/data"
	"github.com/penny-vault/minvar/portfolio"
	"github.com/penny-vault/minvar/report"
	"github.com/rs/zerolog/log"
)

// ErrDuplicateName is returned when both instruments carry the same name
var ErrDuplicateName = errors.New("instruments must have distinct names")

// Input names one instrument and where its prices come from. When Body is set it is parsed
// directly and Path only labels the source.
type Input struct {
	Name string
	Path string
	Body []byte
}

// Config holds every parameter of a run
type Config struct {
	First  Input
	Second Input

	Load      data.LoadOptions
	Clean     data.CleanOptions
	Optimizer portfolio.OptimizerOptions
	Chart     chart.Options

	InitialInvestment float64
	Currency          string

	// SkipChart disables rendering; ChartImage is then nil
	SkipChart bool
}

// DefaultConfig mirrors the defaults of the command line
func DefaultConfig() Config {
	return Config{
		Load:              data.DefaultLoadOptions(),
		Clean:             data.CleanOptions{CutoffYear: 2024, Location: time.UTC},
		Optimizer:         portfolio.DefaultOptimizerOptions(),
		Chart:             chart.DefaultOptions(),
		InitialInvestment: 1000,
		Currency:          "PLN",
	}
}

// Result is the output of every stage
type Result struct {
	RunID     string
	Generated time.Time

	Prices     [2]*data.PriceSeries
	Returns    [2]*data.ReturnSeries
	Summaries  [2]*portfolio.Summary
	Growth     [2]*portfolio.GrowthSeries
	Joined     *portfolio.JoinedReturns
	Allocation *portfolio.Allocation

	// ChartImage is the encoded growth chart in the configured format
	ChartImage []byte

	cfg Config
}

// Analyze runs the whole analysis. The first failing stage stops the run.
func Analyze(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.InitialInvestment == 0 {
		cfg.InitialInvestment = 1000
	}
	if cfg.Clean.Location == nil {
		cfg.Clean.Location = cfg.Load.Location
	}
	if strings.EqualFold(cfg.First.Name, cfg.Second.Name) {
		return nil, fmt.Errorf("%w: both are %q; set --first-name or --second-name", ErrDuplicateName, cfg.First.Name)
	}

	res := &Result{
		RunID:     uuid.New().String(),
		Generated: time.Now(),
		cfg:       cfg,
	}
	subLog := log.With().Str("RunID", res.RunID).Logger()

	for idx, input := range []Input{cfg.First, cfg.Second} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ps, err := load(ctx, input, cfg.Load)
		if err != nil {
			return nil, err
		}
		res.Prices[idx] = ps

		rs, err := data.Clean(ps, cfg.Clean)
		if err != nil {
			return nil, err
		}
		res.Returns[idx] = rs

		summary, err := portfolio.Summarize(rs.Name, rs.Returns())
		if err != nil {
			return nil, err
		}
		res.Summaries[idx] = summary

		growth, err := portfolio.Growth(rs, cfg.InitialInvestment)
		if err != nil {
			return nil, err
		}
		res.Growth[idx] = growth
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !cfg.SkipChart {
		img, err := chart.RenderGrowth(res.Growth[:], cfg.Chart)
		if err != nil {
			return nil, err
		}
		res.ChartImage = img
	}

	joined, err := portfolio.JoinReturns(res.Returns[0], res.Returns[1])
	if err != nil {
		return nil, err
	}
	res.Joined = joined

	cov, err := portfolio.Covariance(joined)
	if err != nil {
		return nil, err
	}

	alloc, err := portfolio.MinimumVariance(cov, cfg.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("optimize %s/%s: %w", joined.FirstName, joined.SecondName, err)
	}
	res.Allocation = alloc

	subLog.Info().Float64("W1", alloc.W1).Float64("Risk", alloc.Risk).Str("Status", alloc.Status).Msg("analysis complete")
	return res, nil
}

// Report assembles the report for the result; chartPath names where the chart was written
func (res *Result) Report(chartPath string) *report.Report {
	return &report.Report{
		RunID:      res.RunID,
		Generated:  res.Generated,
		Currency:   res.cfg.Currency,
		Initial:    res.cfg.InitialInvestment,
		CutoffYear: res.cfg.Clean.CutoffYear,
		ChartPath:  chartPath,
		Series:     res.Returns[:],
		Summaries:  res.Summaries[:],
		Growth:     res.Growth[:],
		Joined:     res.Joined,
		Allocation: res.Allocation,
	}
}

func load(ctx context.Context, input Input, opts data.LoadOptions) (*data.PriceSeries, error) {
	if input.Body != nil {
		ps, err := data.ParseCSV(ctx, input.Name, input.Body, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", input.Name, err)
		}
		ps.Source = input.Path
		return ps, nil
	}
	return data.LoadCSV(ctx, input.Name, input.Path, opts)
}
