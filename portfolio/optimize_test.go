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
	"fmt"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/minvar/portfolio"
	"gonum.org/v1/gonum/mat"
)

func covMatrix(var1, var2, cov12 float64) *mat.SymDense {
	return mat.NewSymDense(2, []float64{var1, cov12, cov12, var2})
}

func withMethod(method string) portfolio.OptimizerOptions {
	opts := portfolio.DefaultOptimizerOptions()
	opts.Method = method
	return opts
}

var methods = []string{portfolio.MethodBFGS, portfolio.MethodNelderMead, portfolio.MethodBracket}

var _ = Describe("Minimum variance allocation", func() {
	It("splits symmetric assets evenly", func() {
		for _, method := range methods {
			alloc, err := portfolio.MinimumVariance(covMatrix(0.04, 0.04, 0.01), withMethod(method))
			Expect(err).To(BeNil(), method)
			Expect(alloc.W1).To(BeNumerically("~", 0.5, 1e-6), method)
			Expect(alloc.W2).To(BeNumerically("~", 0.5, 1e-6), method)
			Expect(alloc.Risk).To(BeNumerically("~", math.Sqrt(0.025), 1e-6), method)
			Expect(alloc.Method).To(Equal(method))
		}
	})

	DescribeTable("agrees with the closed form for every method",
		func(var1, var2, cov12 float64) {
			cov := covMatrix(var1, var2, cov12)
			expected := portfolio.ClosedFormWeight(cov, 0, 1)
			for _, method := range methods {
				alloc, err := portfolio.MinimumVariance(cov, withMethod(method))
				Expect(err).To(BeNil(), method)
				Expect(alloc.W1).To(BeNumerically("~", expected, 1e-6), method)
				Expect(alloc.W1 + alloc.W2).To(BeNumerically("~", 1.0, 1e-15), method)
				Expect(alloc.W1).To(BeNumerically(">=", 0.0), method)
				Expect(alloc.W1).To(BeNumerically("<=", 1.0), method)
				Expect(alloc.Variance).To(BeNumerically("~", portfolio.PortfolioVariance(cov, expected), 1e-10), method)
			}
		},
		Entry("interior optimum", 0.04, 0.09, 0.006),
		Entry("weekly scale variances", 0.0009, 0.0016, -0.0003),
		Entry("uncorrelated", 0.0025, 0.0004, 0.0),
		Entry("perfect positive correlation favours the first asset", 0.01, 0.04, 0.02),
		Entry("perfect positive correlation favours the second asset", 0.09, 0.01, 0.03),
		Entry("perfect negative correlation", 0.01, 0.04, -0.02),
	)

	It("matches the closed form on random weekly covariances", func() {
		rng := rand.New(rand.NewSource(20240105))
		for draw := 0; draw < 2000; draw++ {
			sigma1 := 0.005 + 0.08*rng.Float64()
			sigma2 := 0.005 + 0.08*rng.Float64()
			rho := 2*rng.Float64() - 1
			cov := covMatrix(sigma1*sigma1, sigma2*sigma2, rho*sigma1*sigma2)

			expected := portfolio.ClosedFormWeight(cov, 0, 1)
			best := portfolio.PortfolioVariance(cov, expected)
			scale := math.Max(sigma1*sigma1, sigma2*sigma2)
			curvature := (sigma1*sigma1 + sigma2*sigma2 - 2*rho*sigma1*sigma2) / scale

			for _, method := range methods {
				desc := fmt.Sprintf("%s s1=%.4f s2=%.4f rho=%.3f", method, sigma1, sigma2, rho)
				alloc, err := portfolio.MinimumVariance(cov, withMethod(method))
				Expect(err).To(BeNil(), desc)
				Expect(alloc.W1).To(BeNumerically(">=", 0.0), desc)
				Expect(alloc.W1).To(BeNumerically("<=", 1.0), desc)
				Expect(alloc.Variance - best).To(BeNumerically("<=", 1e-9*scale), desc)
				if curvature >= 0.1 {
					Expect(alloc.W1).To(BeNumerically("~", expected, 1e-4), desc)
				}
			}
		}
	})

	It("puts all weight on the lower variance asset when the assets are perfectly correlated", func() {
		for _, method := range methods {
			alloc, err := portfolio.MinimumVariance(covMatrix(0.01, 0.04, 0.02), withMethod(method))
			Expect(err).To(BeNil(), method)
			Expect(alloc.W1).To(BeNumerically("~", 1.0, 1e-6), method)
			Expect(alloc.Risk).To(BeNumerically("~", 0.1, 1e-6), method)
		}
	})

	It("eliminates the risk of perfectly hedged assets", func() {
		for _, method := range methods {
			alloc, err := portfolio.MinimumVariance(covMatrix(0.01, 0.04, -0.02), withMethod(method))
			Expect(err).To(BeNil(), method)
			Expect(alloc.W1).To(BeNumerically("~", 2.0/3.0, 1e-6), method)
			Expect(alloc.Risk).To(BeNumerically("<", 1e-4), method)
		}
	})

	It("escapes a start weight on a bound", func() {
		for _, start := range []float64{0, 1} {
			for _, method := range methods {
				opts := withMethod(method)
				opts.StartWeight = start
				alloc, err := portfolio.MinimumVariance(covMatrix(0.04, 0.09, 0.006), opts)
				Expect(err).To(BeNil(), method)
				Expect(alloc.W1).To(BeNumerically("~", 0.084/0.118, 1e-6), method)
			}
		}
	})

	It("respects narrower bounds", func() {
		for _, method := range methods {
			opts := withMethod(method)
			opts.MinWeight = 0.2
			opts.MaxWeight = 0.4
			opts.StartWeight = 0.3
			alloc, err := portfolio.MinimumVariance(covMatrix(0.04, 0.09, 0.006), opts)
			Expect(err).To(BeNil(), method)
			Expect(alloc.W1).To(BeNumerically("~", 0.4, 1e-6), method)
			Expect(alloc.W1).To(BeNumerically("<=", 0.4), method)
		}
	})

	It("returns the only feasible weight when the bounds coincide", func() {
		for _, method := range methods {
			opts := withMethod(method)
			opts.MinWeight = 0.3
			opts.MaxWeight = 0.3
			opts.StartWeight = 0.3
			alloc, err := portfolio.MinimumVariance(covMatrix(0.04, 0.09, 0.006), opts)
			Expect(err).To(BeNil(), method)
			Expect(alloc.W1).To(Equal(0.3))
			Expect(alloc.W2).To(BeNumerically("~", 0.7, 1e-15))
		}
	})

	It("accepts the method name in any case", func() {
		alloc, err := portfolio.MinimumVariance(covMatrix(0.04, 0.04, 0.01), withMethod("Nelder-Mead"))
		Expect(err).To(BeNil())
		Expect(alloc.Method).To(Equal(portfolio.MethodNelderMead))
	})

	It("rejects an unknown method", func() {
		_, err := portfolio.MinimumVariance(covMatrix(0.04, 0.04, 0.01), withMethod("simplex"))
		Expect(errors.Is(err, portfolio.ErrUnknownMethod)).To(BeTrue())
	})

	DescribeTable("rejects invalid bounds",
		func(lo, hi, start float64) {
			opts := portfolio.DefaultOptimizerOptions()
			opts.MinWeight = lo
			opts.MaxWeight = hi
			opts.StartWeight = start
			_, err := portfolio.MinimumVariance(covMatrix(0.04, 0.04, 0.01), opts)
			Expect(errors.Is(err, portfolio.ErrInvalidBounds)).To(BeTrue())
		},
		Entry("negative minimum", -0.1, 1.0, 0.5),
		Entry("maximum above one", 0.0, 1.2, 0.5),
		Entry("inverted", 0.8, 0.2, 0.5),
		Entry("start below minimum", 0.3, 0.6, 0.1),
		Entry("start above maximum", 0.3, 0.6, 0.9),
		Entry("NaN start", 0.0, 1.0, math.NaN()),
	)

	It("computes the portfolio variance", func() {
		cov := covMatrix(0.04, 0.09, 0.006)
		Expect(portfolio.PortfolioVariance(cov, 1)).To(BeNumerically("~", 0.04, 1e-15))
		Expect(portfolio.PortfolioVariance(cov, 0)).To(BeNumerically("~", 0.09, 1e-15))
		Expect(portfolio.PortfolioVariance(cov, 0.5)).To(BeNumerically("~", 0.25*0.04+0.25*0.09+0.5*0.006, 1e-15))
	})
})
