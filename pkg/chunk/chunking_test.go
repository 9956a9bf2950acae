package chunk_test

import (
	"strings"

	. "github.com/astramind/astramind/pkg/chunk"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SplitText", func() {
	It("returns no chunks for blank text", func() {
		Expect(SplitText("", 100)).To(BeNil())
		Expect(SplitText("   \n\t  ", 100)).To(BeNil())
	})

	It("returns text that fits as a single chunk", func() {
		Expect(SplitText("short text", 100)).To(Equal([]string{"short text"}))
	})

	It("splits on word boundaries", func() {
		chunks := SplitText("one two three four five six", 10)
		Expect(len(chunks)).To(BeNumerically(">", 1))
		for _, c := range chunks {
			Expect(len(c)).To(BeNumerically("<=", 10))
			Expect(strings.HasPrefix(c, " ")).To(BeFalse())
			Expect(strings.HasSuffix(c, " ")).To(BeFalse())
		}
	})

	It("keeps every word", func() {
		text := "alpha beta gamma delta epsilon zeta eta theta"
		chunks := SplitText(text, 12)
		Expect(strings.Fields(strings.Join(chunks, " "))).To(Equal(strings.Fields(text)))
	})

	It("gives an oversized word its own chunk", func() {
		chunks := SplitText("tiny supercalifragilistic word", 10)
		Expect(chunks).To(ContainElement("supercalifragilistic"))
	})
})

var _ = Describe("SplitTextWithOverlap", func() {
	It("returns no chunks for blank text", func() {
		Expect(SplitTextWithOverlap("  ", 10, 2)).To(BeNil())
	})

	It("returns text that fits as a single chunk", func() {
		Expect(SplitTextWithOverlap("abc", 10, 2)).To(Equal([]string{"abc"}))
	})

	It("repeats the overlap between consecutive chunks", func() {
		chunks := SplitTextWithOverlap("abcdefghij", 6, 2)
		Expect(len(chunks)).To(BeNumerically(">", 1))
		for i := 1; i < len(chunks); i++ {
			prev := chunks[i-1]
			Expect(strings.HasPrefix(chunks[i], prev[len(prev)-2:])).To(BeTrue())
		}
	})

	It("covers the full text", func() {
		text := "abcdefghijklmnopqrstuvwxyz"
		chunks := SplitTextWithOverlap(text, 8, 3)
		Expect(chunks[0][:1]).To(Equal("a"))
		last := chunks[len(chunks)-1]
		Expect(strings.HasSuffix(last, "z")).To(BeTrue())
	})

	It("caps the overlap below the chunk size", func() {
		chunks := SplitTextWithOverlap("abcdefghij", 4, 10)
		Expect(chunks).ToNot(BeEmpty())
	})
})
