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

package portfolio_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/minvar/portfolio"
)

var _ = Describe("Covariance of joined returns", func() {
	It("joins on shared dates and counts what each side lost", func() {
		a := returnSeries("a", []int{0, 1, 2, 3}, []float64{0.01, 0.02, 0.03, 0.04})
		b := returnSeries("b", []int{1, 2, 3, 4, 5}, []float64{0.2, 0.3, 0.4, 0.5, 0.6})

		jr, err := portfolio.JoinReturns(a, b)
		Expect(err).To(BeNil())
		Expect(jr.Len()).To(Equal(3))
		Expect(jr.DroppedFirst).To(Equal(1))
		Expect(jr.DroppedSecond).To(Equal(2))
		Expect(jr.Frame.Vals[0]).To(Equal([]float64{0.02, 0.03, 0.04}))
		Expect(jr.Frame.Vals[1]).To(Equal([]float64{0.2, 0.3, 0.4}))
		Expect(jr.Start).To(Equal(week(1)))
		Expect(jr.End).To(Equal(week(3)))
	})

	It("computes the sample covariance matrix", func() {
		a := returnSeries("a", []int{0, 1, 2, 3}, []float64{0.01, 0.03, -0.02, 0.02})
		b := returnSeries("b", []int{0, 1, 2, 3}, []float64{0.02, 0.00, 0.01, 0.03})

		jr, err := portfolio.JoinReturns(a, b)
		Expect(err).To(BeNil())
		cov, err := portfolio.Covariance(jr)
		Expect(err).To(BeNil())

		// a deviations 0, .02, -.03, .01; b deviations .005, -.015, -.005, .015
		Expect(cov.At(0, 0)).To(BeNumerically("~", 0.0014/3, 1e-12))
		Expect(cov.At(1, 1)).To(BeNumerically("~", 0.0005/3, 1e-12))
		Expect(cov.At(0, 1)).To(BeNumerically("~", 0.0, 1e-15))
		Expect(cov.At(1, 0)).To(Equal(cov.At(0, 1)))
	})

	It("fails when the series share no dates", func() {
		a := returnSeries("a", []int{0, 2, 4}, []float64{0.01, 0.02, 0.03})
		b := returnSeries("b", []int{1, 3, 5}, []float64{0.01, 0.02, 0.03})

		jr, err := portfolio.JoinReturns(a, b)
		Expect(err).To(BeNil())
		Expect(jr.Start).To(Equal(week(1)))
		Expect(jr.End).To(Equal(week(4)))
		_, err = portfolio.Covariance(jr)
		Expect(errors.Is(err, portfolio.ErrNoOverlap)).To(BeTrue())
	})

	It("needs two shared dates", func() {
		a := returnSeries("a", []int{0, 2, 4}, []float64{0.01, 0.02, 0.03})
		b := returnSeries("b", []int{1, 2, 5}, []float64{0.01, 0.02, 0.03})

		jr, err := portfolio.JoinReturns(a, b)
		Expect(err).To(BeNil())
		_, err = portfolio.Covariance(jr)
		Expect(errors.Is(err, portfolio.ErrInsufficientData)).To(BeTrue())
	})
})
