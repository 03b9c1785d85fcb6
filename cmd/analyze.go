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

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/penny-vault/minvar/chart"
	"github.com/penny-vault/minvar/common"
	"github.com/penny-vault/minvar/data"
	"github.com/penny-vault/minvar/pipeline"
	"github.com/penny-vault/minvar/portfolio"
	"github.com/penny-vault/minvar/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Analysis
	viper.BindEnv("analysis.cutoff_year", "MINVAR_CUTOFF_YEAR")
	analyzeCmd.Flags().Int("cutoff-year", 2024, "Only analyze weeks on or after Jan 1 of this year; 0 keeps every week")
	viper.BindPFlag("analysis.cutoff_year", analyzeCmd.Flags().Lookup("cutoff-year"))

	viper.BindEnv("analysis.initial_investment", "MINVAR_INITIAL_INVESTMENT")
	analyzeCmd.Flags().Float64("initial-investment", 1000, "Amount invested in each instrument for the growth chart")
	viper.BindPFlag("analysis.initial_investment", analyzeCmd.Flags().Lookup("initial-investment"))

	viper.BindEnv("analysis.currency", "MINVAR_CURRENCY")
	analyzeCmd.Flags().String("currency", "PLN", "ISO 4217 currency of the investment")
	viper.BindPFlag("analysis.currency", analyzeCmd.Flags().Lookup("currency"))

	analyzeCmd.Flags().String("first-name", "", "Name of the first instrument (default: file name without extension)")
	analyzeCmd.Flags().String("second-name", "", "Name of the second instrument (default: file name without extension)")

	// Optimizer
	viper.BindEnv("optimizer.method", "MINVAR_OPTIMIZER")
	analyzeCmd.Flags().String("method", portfolio.MethodBFGS, "Minimizer one of: bfgs, nelder-mead, bracket")
	viper.BindPFlag("optimizer.method", analyzeCmd.Flags().Lookup("method"))

	analyzeCmd.Flags().Float64("start-weight", 0.5, "Initial weight of the first instrument")
	viper.BindPFlag("optimizer.start_weight", analyzeCmd.Flags().Lookup("start-weight"))

	analyzeCmd.Flags().Float64("min-weight", 0, "Lower bound on the weight of the first instrument")
	viper.BindPFlag("optimizer.min_weight", analyzeCmd.Flags().Lookup("min-weight"))

	analyzeCmd.Flags().Float64("max-weight", 1, "Upper bound on the weight of the first instrument")
	viper.BindPFlag("optimizer.max_weight", analyzeCmd.Flags().Lookup("max-weight"))

	// Loader
	viper.SetDefault("loader.date_columns", []string{"Date", "Data"})
	viper.SetDefault("loader.close_columns", []string{"Close", "Zamkniecie"})

	analyzeCmd.Flags().String("date-layout", "2006-01-02", "Go time layout of the date column")
	viper.BindPFlag("loader.date_layout", analyzeCmd.Flags().Lookup("date-layout"))

	analyzeCmd.Flags().String("timezone", "UTC", "Time zone dates are interpreted in")
	viper.BindPFlag("loader.timezone", analyzeCmd.Flags().Lookup("timezone"))

	// Chart
	viper.BindEnv("chart.output", "MINVAR_CHART")
	analyzeCmd.Flags().String("chart", "growth.png", "Write the growth chart to this file; empty to skip the chart")
	viper.BindPFlag("chart.output", analyzeCmd.Flags().Lookup("chart"))

	analyzeCmd.Flags().String("chart-format", chart.FormatPNG, "Chart image format one of: png, svg")
	viper.BindPFlag("chart.format", analyzeCmd.Flags().Lookup("chart-format"))

	viper.SetDefault("chart.width", 1200)
	viper.SetDefault("chart.height", 700)

	// Report
	analyzeCmd.Flags().String("format", report.FormatText, "Report format one of: text, json")
	viper.BindPFlag("report.format", analyzeCmd.Flags().Lookup("format"))

	analyzeCmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout; a .lz4 suffix compresses it")
	viper.BindPFlag("report.output", analyzeCmd.Flags().Lookup("output"))
}

var analyzeCmd = &cobra.Command{
	Use:        "analyze [flags] FIRST.csv SECOND.csv",
	Short:      "Analyze two weekly price histories and find the minimum variance allocation",
	Args:       cobra.ExactArgs(2),
	ArgAliases: []string{"FIRST", "SECOND"},
	Run: func(cmd *cobra.Command, args []string) {
		cfg := buildConfig(cmd, args)

		res, err := pipeline.Analyze(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("analysis failed")
		}

		chartPath := viper.GetString("chart.output")
		if !cfg.SkipChart {
			if err := os.WriteFile(chartPath, res.ChartImage, 0600); err != nil {
				log.Fatal().Err(err).Str("FileName", chartPath).Msg("could not write chart")
			}
			log.Info().Str("FileName", chartPath).Msg("wrote growth chart")
		}

		rpt := res.Report(chartPath)
		if err := report.Write(rpt, viper.GetString("report.format"), viper.GetString("report.output"), os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("could not write report")
		}
	},
}

// buildConfig translates the viper configuration into pipeline parameters
func buildConfig(cmd *cobra.Command, args []string) pipeline.Config {
	tz := common.GetTimezone()

	cfg := pipeline.DefaultConfig()
	cfg.First = pipeline.Input{Name: common.FileStem(args[0]), Path: args[0]}
	cfg.Second = pipeline.Input{Name: common.FileStem(args[1]), Path: args[1]}

	if name, _ := cmd.Flags().GetString("first-name"); name != "" {
		cfg.First.Name = name
	}
	if name, _ := cmd.Flags().GetString("second-name"); name != "" {
		cfg.Second.Name = name
	}

	cfg.Load = data.LoadOptions{
		DateColumns:  viper.GetStringSlice("loader.date_columns"),
		CloseColumns: viper.GetStringSlice("loader.close_columns"),
		DateLayout:   viper.GetString("loader.date_layout"),
		Location:     tz,
	}

	cfg.Clean = data.CleanOptions{
		CutoffYear: viper.GetInt("analysis.cutoff_year"),
		Location:   tz,
	}

	cfg.Optimizer = portfolio.OptimizerOptions{
		Method:      viper.GetString("optimizer.method"),
		StartWeight: viper.GetFloat64("optimizer.start_weight"),
		MinWeight:   viper.GetFloat64("optimizer.min_weight"),
		MaxWeight:   viper.GetFloat64("optimizer.max_weight"),
	}

	cfg.InitialInvestment = viper.GetFloat64("analysis.initial_investment")
	cfg.Currency = strings.ToUpper(viper.GetString("analysis.currency"))

	cfg.Chart = chart.Options{
		Title:    "Growth of " + report.FormatMoney(cfg.InitialInvestment, cfg.Currency),
		Subtitle: cfg.First.Name + " vs " + cfg.Second.Name,
		Format:   viper.GetString("chart.format"),
		Width:    viper.GetInt("chart.width"),
		Height:   viper.GetInt("chart.height"),
	}
	if cfg.Clean.CutoffYear > 0 {
		cfg.Chart.Subtitle += fmt.Sprintf(" since %d", cfg.Clean.CutoffYear)
	}
	cfg.SkipChart = viper.GetString("chart.output") == ""

	return cfg
}
