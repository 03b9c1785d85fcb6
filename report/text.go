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

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

const ruleWidth = 50

// Text writes the console report: rows kept per instrument, the statistics of each instrument,
// the growth of the initial investment and the minimum variance allocation.
func Text(w io.Writer, r *Report) error {
	sb := &strings.Builder{}

	for _, rs := range r.Series {
		fmt.Fprintf(sb, "Weeks available for %s: %d\n", rs.Name, rs.Available)
	}
	for _, rs := range r.Series {
		fmt.Fprintf(sb, "Weeks analyzed for %s since %d: %d\n", rs.Name, r.CutoffYear, rs.Retained)
	}

	for _, summary := range r.Summaries {
		fmt.Fprintf(sb, "\nAnalysis of %s:\n", summary.Name)
		fmt.Fprintf(sb, "- Mean weekly return: %.2f%%\n", summary.Mean*100)
		fmt.Fprintf(sb, "- Risk (std. dev.): %.2f%%\n", summary.StdDev*100)
		fmt.Fprintf(sb, "- Sharpe ratio: %.4f\n", summary.Ratio)
	}

	if len(r.Growth) > 0 {
		fmt.Fprintf(sb, "\nValue of a %s investment:\n", FormatMoney(r.Initial, r.Currency))
		table := tablewriter.NewWriter(sb)
		table.SetHeader([]string{"Instrument", "Start", "End", "Final value", "Total return"})
		table.SetBorder(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, gs := range r.Growth {
			table.Append([]string{
				gs.Name,
				gs.Frame.Start().Format("2006-01-02"),
				gs.Frame.End().Format("2006-01-02"),
				FormatMoney(gs.Final, r.Currency),
				fmt.Sprintf("%.2f%%", gs.TotalReturn*100),
			})
		}
		table.Render()
	}

	if r.Allocation != nil && r.Joined != nil {
		rule := strings.Repeat("=", ruleWidth)
		fmt.Fprintf(sb, "\n%s\n", rule)
		fmt.Fprintf(sb, "Optimal portfolio allocation (minimum risk):\n")
		fmt.Fprintf(sb, "- %s: %.2f%%\n", r.Joined.FirstName, r.Allocation.W1*100)
		fmt.Fprintf(sb, "- %s: %.2f%%\n", r.Joined.SecondName, r.Allocation.W2*100)
		fmt.Fprintf(sb, "- Portfolio risk (std. dev.): %.2f%%\n", r.Allocation.Risk*100)
		fmt.Fprintf(sb, "%s\n", rule)
	}

	if r.ChartPath != "" {
		fmt.Fprintf(sb, "Chart written to %s\n", r.ChartPath)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
