package rag

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("clipText", func() {
	It("leaves short text alone", func() {
		Expect(clipText("short", 100)).To(Equal("short"))
	})

	It("clips without splitting a multi-byte rune", func() {
		text := strings.Repeat("a", 1999) + "日本"
		clipped := clipText(text, 2000)

		Expect(len(clipped)).To(BeNumerically("<=", 2000))
		Expect(utf8.ValidString(clipped)).To(BeTrue())
	})
})

var _ = Describe("normalizeForEmbedding", func() {
	It("flattens newlines and trims whitespace", func() {
		Expect(normalizeForEmbedding("  line one\nline two  ")).To(Equal("line one line two"))
	})

	It("keeps truncated input valid UTF-8", func() {
		text := strings.Repeat("x", 1998) + "héllo"
		out := normalizeForEmbedding(text)

		Expect(len(out)).To(BeNumerically("<=", 2000))
		Expect(utf8.ValidString(out)).To(BeTrue())
	})
})

var _ = Describe("joinContexts", func() {
	It("joins chunks with blank lines within the budget", func() {
		Expect(joinContexts([]string{"one", "two"}, 100)).To(Equal("one\n\ntwo"))
	})

	It("clips an oversized first chunk instead of dropping it", func() {
		joined := joinContexts([]string{strings.Repeat("x", 4000)}, 3500)
		Expect(joined).To(HaveLen(3500))
	})

	It("stops before a later chunk that would exceed the budget", func() {
		joined := joinContexts([]string{"first", strings.Repeat("x", 4000)}, 3500)
		Expect(joined).To(Equal("first"))
	})
})
