package engine_test

import (
	. "github.com/astramind/astramind/rag/engine"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IsFactoidQuery", func() {
	It("detects factual lookup queries", func() {
		Expect(IsFactoidQuery("Who wrote the report?")).To(BeTrue())
		Expect(IsFactoidQuery("what is the capital of France")).To(BeTrue())
		Expect(IsFactoidQuery("WHEN did the project start")).To(BeTrue())
		Expect(IsFactoidQuery("list the supported formats")).To(BeTrue())
		Expect(IsFactoidQuery("define latency")).To(BeTrue())
	})

	It("treats open-ended queries as semantic", func() {
		Expect(IsFactoidQuery("explain the reasoning behind this approach")).To(BeFalse())
		Expect(IsFactoidQuery("summarize the document")).To(BeFalse())
		Expect(IsFactoidQuery("")).To(BeFalse())
	})
})

var _ = Describe("AdjustAlpha", func() {
	Context("for factoid queries", func() {
		It("clamps alpha into the keyword-favouring band", func() {
			Expect(AdjustAlpha("who is the author", 0.9)).To(Equal(0.4))
			Expect(AdjustAlpha("who is the author", 0.1)).To(Equal(0.2))
			Expect(AdjustAlpha("who is the author", 0.3)).To(Equal(0.3))
		})
	})

	Context("for semantic queries", func() {
		It("floors alpha at 0.6", func() {
			Expect(AdjustAlpha("summarize the findings", 0.1)).To(Equal(0.6))
			Expect(AdjustAlpha("summarize the findings", 0.8)).To(Equal(0.8))
		})
	})
})
