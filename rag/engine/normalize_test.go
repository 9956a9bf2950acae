package engine_test

import (
	"math"

	. "github.com/astramind/astramind/rag/engine"
	"github.com/astramind/astramind/rag/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizeScores", func() {
	It("rescales scores onto [0,1] with min at 0 and max at 1", func() {
		results := NormalizeScores([]types.Result{
			{Text: "low", Score: 2},
			{Text: "mid", Score: 5},
			{Text: "high", Score: 8},
		})

		Expect(results[0].NormScore).To(BeZero())
		Expect(results[1].NormScore).To(BeNumerically("~", 0.5, 1e-9))
		Expect(results[2].NormScore).To(Equal(1.0))
	})

	It("treats an all-equal set as uniformly relevant", func() {
		results := NormalizeScores([]types.Result{
			{Text: "a", Score: 3.3},
			{Text: "b", Score: 3.3},
		})

		Expect(results[0].NormScore).To(Equal(1.0))
		Expect(results[1].NormScore).To(Equal(1.0))
	})

	It("normalizes a single result to 1.0", func() {
		results := NormalizeScores([]types.Result{{Text: "only", Score: 0.01}})
		Expect(results[0].NormScore).To(Equal(1.0))
	})

	It("handles an empty slice", func() {
		Expect(NormalizeScores([]types.Result{})).To(BeEmpty())
		Expect(NormalizeScores(nil)).To(BeNil())
	})

	It("excludes non-finite scores and maps them to 0.0", func() {
		results := NormalizeScores([]types.Result{
			{Text: "nan", Score: math.NaN()},
			{Text: "inf", Score: math.Inf(1)},
			{Text: "low", Score: 1},
			{Text: "high", Score: 3},
		})

		Expect(results[0].NormScore).To(BeZero())
		Expect(results[1].NormScore).To(BeZero())
		Expect(results[2].NormScore).To(BeZero())
		Expect(results[3].NormScore).To(Equal(1.0))
	})

	It("zeroes everything when no score is finite", func() {
		results := NormalizeScores([]types.Result{
			{Text: "a", Score: math.NaN()},
			{Text: "b", Score: math.Inf(-1)},
		})

		Expect(results[0].NormScore).To(BeZero())
		Expect(results[1].NormScore).To(BeZero())
	})
})

var _ = Describe("NormalizeRerankScores", func() {
	It("rescales the rerank score field, leaving the others alone", func() {
		results := NormalizeRerankScores([]types.Result{
			{Text: "a", Score: 7, RerankScore: 0.2},
			{Text: "b", Score: 9, RerankScore: 0.8},
		})

		Expect(results[0].RerankScore).To(BeZero())
		Expect(results[1].RerankScore).To(Equal(1.0))
		Expect(results[0].Score).To(Equal(7.0))
		Expect(results[1].Score).To(Equal(9.0))
	})
})
