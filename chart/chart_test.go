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

package chart_test

import (
	"bytes"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/minvar/chart"
	"github.com/penny-vault/minvar/common"
	"github.com/penny-vault/minvar/dataframe"
	"github.com/penny-vault/minvar/portfolio"
)

func growth(name string, days []int, vals []float64) *portfolio.GrowthSeries {
	dates := make([]time.Time, len(days))
	for idx, d := range days {
		dates[idx] = time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
	}
	return &portfolio.GrowthSeries{
		Name:    name,
		Initial: 1000,
		Frame: &dataframe.DataFrame[time.Time]{
			Index:    dates,
			ColNames: []string{common.CumulativeIdx},
			Vals:     [][]float64{vals},
		},
		Final: vals[len(vals)-1],
	}
}

var _ = Describe("Growth chart", func() {
	var (
		first  *portfolio.GrowthSeries
		second *portfolio.GrowthSeries
	)

	BeforeEach(func() {
		first = growth("alpha", []int{5, 12, 19}, []float64{1010, 1030, 1020})
		second = growth("beta", []int{12, 15, 19, 26}, []float64{990, 980, 1005, 1015})
	})

	Describe("aligning series", func() {
		It("uses the union of dates with forward fill", func() {
			dates, values := chart.Align(first, second)
			Expect(dates).To(HaveLen(5))
			Expect(dates[0]).To(Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
			Expect(dates[4]).To(Equal(time.Date(2024, time.January, 26, 0, 0, 0, 0, time.UTC)))

			Expect(values[0]).To(Equal([]float64{1010, 1030, 1030, 1020, 1020}))
			Expect(values[1]).To(Equal([]float64{1000, 990, 980, 1005, 1015}))
		})

		It("leaves identical calendars untouched", func() {
			_, values := chart.Align(first, first)
			Expect(values[0]).To(Equal(first.Values()))
			Expect(values[1]).To(Equal(first.Values()))
		})
	})

	Describe("rendering", func() {
		It("produces a PNG by default", func() {
			opts := chart.DefaultOptions()
			opts.Format = ""
			buf, err := chart.RenderGrowth([]*portfolio.GrowthSeries{first, second}, opts)
			Expect(err).To(BeNil())
			Expect(bytes.HasPrefix(buf, []byte("\x89PNG"))).To(BeTrue())
		})

		It("produces an SVG on request", func() {
			opts := chart.DefaultOptions()
			opts.Format = chart.FormatSVG
			opts.Width = 600
			opts.Height = 400
			buf, err := chart.RenderGrowth([]*portfolio.GrowthSeries{first, second}, opts)
			Expect(err).To(BeNil())
			Expect(string(buf)).To(ContainSubstring("<svg"))
			Expect(string(buf)).To(ContainSubstring("alpha"))
		})

		It("labels the y axis with round values", func() {
			opts := chart.DefaultOptions()
			opts.Format = chart.FormatSVG
			buf, err := chart.RenderGrowth([]*portfolio.GrowthSeries{first, second}, opts)
			Expect(err).To(BeNil())
			Expect(string(buf)).To(ContainSubstring("1,020"))
			Expect(string(buf)).To(ContainSubstring("1,060"))
			Expect(string(buf)).NotTo(ContainSubstring("k<"))
		})

		It("handles a flat series", func() {
			flat := growth("flat", []int{5, 12}, []float64{1000, 1000})
			buf, err := chart.RenderGrowth([]*portfolio.GrowthSeries{flat}, chart.DefaultOptions())
			Expect(err).To(BeNil())
			Expect(buf).NotTo(BeEmpty())
		})

		It("rejects an unknown format", func() {
			opts := chart.DefaultOptions()
			opts.Format = "gif"
			_, err := chart.RenderGrowth([]*portfolio.GrowthSeries{first}, opts)
			Expect(errors.Is(err, chart.ErrUnknownFormat)).To(BeTrue())
		})

		It("needs at least one series", func() {
			_, err := chart.RenderGrowth(nil, chart.DefaultOptions())
			Expect(errors.Is(err, chart.ErrNoSeries)).To(BeTrue())
		})
	})
})

var _ = Describe("Y axis bounds", func() {
	It("snaps the padded range to round steps", func() {
		lower, upper, step := chart.AxisBounds(980, 1030, 5)
		Expect(step).To(Equal(20.0))
		Expect(lower).To(Equal(960.0))
		Expect(upper).To(Equal(1060.0))
		Expect(chart.AxisTicks(lower, upper, 5)).To(Equal([]float64{960, 980, 1000, 1020, 1040, 1060}))
	})

	DescribeTable("keeps the data inside ticks that are multiples of the step",
		func(lo, hi float64) {
			lower, upper, step := chart.AxisBounds(lo, hi, 5)
			Expect(lower).To(BeNumerically("<", lo))
			Expect(upper).To(BeNumerically(">", hi))

			mantissa := step / math.Pow(10, math.Floor(math.Log10(step)))
			Expect([]float64{1, 2, 5}).To(ContainElement(BeNumerically("~", mantissa, 1e-9)))

			for _, tick := range chart.AxisTicks(lower, upper, 5) {
				units := tick / step
				Expect(units).To(BeNumerically("~", math.Round(units), 1e-6))
			}
		},
		Entry("short weekly run", 999.1, 1060.9),
		Entry("long run", 640.0, 4875.0),
		Entry("small values", 0.93, 1.12),
		Entry("flat", 1000.0, 1000.0),
	)
})
