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

package data_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/minvar/data"
)

var _ = Describe("Loading price files", func() {
	var (
		ctx  context.Context
		opts data.LoadOptions
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = data.DefaultLoadOptions()
	})

	Context("with an English header", func() {
		It("reads dates and closing prices", func() {
			body := []byte("Date,Open,High,Low,Close,Volume\n" +
				"2024-01-05,10,11,9,10.5,1000\n" +
				"2024-01-12,10.5,12,10,11.5,1200\n" +
				"2024-01-19,11.5,12,11,11.0,900\n")

			ps, err := data.ParseCSV(ctx, "alpha", body, opts)
			Expect(err).To(BeNil())
			Expect(ps.Name).To(Equal("alpha"))
			Expect(ps.PriceColumn).To(Equal("Close"))
			Expect(ps.Frame.Len()).To(Equal(3))
			Expect(ps.Frame.Index[0]).To(Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
			Expect(ps.Frame.Vals[0]).To(Equal([]float64{10.5, 11.5, 11.0}))
			Expect(ps.Digest).To(HaveLen(64))
		})
	})

	Context("with a Polish header", func() {
		It("resolves the aliases case-insensitively", func() {
			body := []byte("data,otwarcie,ZAMKNIECIE\n" +
				"2024-01-05,10,20\n" +
				"2024-01-12,10,22\n")

			ps, err := data.ParseCSV(ctx, "dino", body, opts)
			Expect(err).To(BeNil())
			Expect(ps.PriceColumn).To(Equal("ZAMKNIECIE"))
			Expect(ps.Frame.ColNames).To(Equal([]string{"ZAMKNIECIE"}))
			Expect(ps.Frame.Vals[0]).To(Equal([]float64{20, 22}))
		})
	})

	It("gives identical files identical digests", func() {
		body := []byte("Date,Close\n2024-01-05,1\n2024-01-12,2\n")
		a, err := data.ParseCSV(ctx, "a", body, opts)
		Expect(err).To(BeNil())
		b, err := data.ParseCSV(ctx, "b", body, opts)
		Expect(err).To(BeNil())
		Expect(a.Digest).To(Equal(b.Digest))
	})

	It("parses dates in the configured location", func() {
		warsaw, err := time.LoadLocation("Europe/Warsaw")
		Expect(err).To(BeNil())
		opts.Location = warsaw

		ps, err := data.ParseCSV(ctx, "a", []byte("Date,Close\n2024-01-05,1\n2024-01-12,2\n"), opts)
		Expect(err).To(BeNil())
		Expect(ps.Frame.Index[0].Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, warsaw))).To(BeTrue())
	})

	DescribeTable("rejects bad input",
		func(body string, target error) {
			_, err := data.ParseCSV(ctx, "bad", []byte(body), opts)
			Expect(err).NotTo(BeNil())
			Expect(errors.Is(err, target)).To(BeTrue(), err.Error())
		},
		Entry("no date column", "Day,Close\n2024-01-05,1\n2024-01-12,2\n", data.ErrMissingColumn),
		Entry("no price column", "Date,Price\n2024-01-05,1\n2024-01-12,2\n", data.ErrMissingColumn),
		Entry("malformed date", "Date,Close\n2024-01-05,1\n05/01/2024,2\n", data.ErrMalformedDate),
		Entry("blank date", "Date,Close\n2024-01-05,1\n,2\n", data.ErrMalformedDate),
		Entry("non-numeric price", "Date,Close\n2024-01-05,1\n2024-01-12,abc\n", data.ErrMalformedPrice),
		Entry("zero price", "Date,Close\n2024-01-05,1\n2024-01-12,0\n", data.ErrMalformedPrice),
		Entry("negative price", "Date,Close\n2024-01-05,1\n2024-01-12,-3\n", data.ErrMalformedPrice),
		Entry("blank price", "Date,Close\n2024-01-05,1\n2024-01-12,\n", data.ErrMalformedPrice),
		Entry("empty file", "", data.ErrInsufficientData),
		Entry("header only", "Date,Close\n", data.ErrInsufficientData),
		Entry("single row", "Date,Close\n2024-01-05,1\n", data.ErrInsufficientData),
	)

	It("names the offending row and value of a malformed date", func() {
		_, err := data.ParseCSV(ctx, "bad", []byte("Date,Close\n2024-01-05,1\n2024-13-45,2\n"), opts)
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(ContainSubstring("row 3"))
		Expect(err.Error()).To(ContainSubstring("2024-13-45"))
	})

	Context("from disk", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "minvar-data")
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("records the source file name", func() {
			fn := filepath.Join(dir, "dino_w.csv")
			Expect(os.WriteFile(fn, []byte("Data,Zamkniecie\n2024-01-05,1\n2024-01-12,2\n"), 0600)).To(Succeed())

			ps, err := data.LoadCSV(ctx, "dino_w", fn, opts)
			Expect(err).To(BeNil())
			Expect(ps.Source).To(Equal(fn))
			Expect(ps.Frame.Len()).To(Equal(2))
		})

		It("includes the file name in errors", func() {
			fn := filepath.Join(dir, "broken.csv")
			Expect(os.WriteFile(fn, []byte("When,Close\n2024-01-05,1\n"), 0600)).To(Succeed())

			_, err := data.LoadCSV(ctx, "broken", fn, opts)
			Expect(errors.Is(err, data.ErrMissingColumn)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("broken.csv"))
		})

		It("fails when the file does not exist", func() {
			_, err := data.LoadCSV(ctx, "missing", filepath.Join(dir, "missing.csv"), opts)
			Expect(err).NotTo(BeNil())
		})
	})
})
