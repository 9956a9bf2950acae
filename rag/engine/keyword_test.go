package engine_test

import (
	"os"
	"path/filepath"

	. "github.com/astramind/astramind/rag/engine"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("KeywordIndex", func() {
	var (
		tempDir   string
		indexPath string
		index     *KeywordIndex
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "keyword_test_*")
		Expect(err).ToNot(HaveOccurred())
		indexPath = filepath.Join(tempDir, "keyword.json")
		index = NewKeywordIndex(indexPath)
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("AddDocuments", func() {
		It("indexes new documents and reports how many were added", func() {
			added := index.AddDocuments([]string{"cats purr loudly", "dogs bark at night"})
			Expect(added).To(Equal(2))
			Expect(index.Count()).To(Equal(2))
		})

		It("skips duplicates across calls and within a batch", func() {
			index.AddDocuments([]string{"alpha", "alpha", "beta"})
			added := index.AddDocuments([]string{"alpha", "gamma"})
			Expect(added).To(Equal(1))
			Expect(index.Documents()).To(Equal([]string{"alpha", "beta", "gamma"}))
		})

		It("filters out blank documents", func() {
			added := index.AddDocuments([]string{"", "   ", "real content"})
			Expect(added).To(Equal(1))
			Expect(index.Count()).To(Equal(1))
		})
	})

	Describe("Retrieve", func() {
		BeforeEach(func() {
			index.AddDocuments([]string{
				"cats are independent pets that love to nap",
				"the cat sat on the mat while the cat purred",
				"dogs are loyal companions",
				"quantum computing uses qubits",
			})
		})

		It("ranks documents about the query terms above unrelated ones", func() {
			results := index.Retrieve("cat", 4)
			Expect(results).ToNot(BeEmpty())
			Expect(results[0].Text).To(ContainSubstring("cat"))
			Expect(results[0].Score).To(BeNumerically(">", 0))
		})

		It("ranks a document containing the query term strictly above one without it", func() {
			fresh := NewKeywordIndex(filepath.Join(tempDir, "pair.json"))
			fresh.AddDocuments([]string{"the cat sat", "the dog ran"})

			results := fresh.Retrieve("cat", 2)
			Expect(results[0].Text).To(Equal("the cat sat"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("returns at most topK results", func() {
			results := index.Retrieve("cats dogs quantum", 2)
			Expect(len(results)).To(BeNumerically("<=", 2))
		})

		It("returns results in descending score order", func() {
			results := index.Retrieve("cat", 4)
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("scores documents at zero when no term matches", func() {
			results := index.Retrieve("zeppelin", 5)
			for _, r := range results {
				Expect(r.Score).To(BeZero())
			}
		})

		It("returns an empty slice for an empty query", func() {
			Expect(index.Retrieve("", 5)).To(BeEmpty())
		})
	})

	Describe("persistence", func() {
		It("reloads indexed documents from disk", func() {
			index.AddDocuments([]string{"persistent fact one", "persistent fact two"})

			reloaded := NewKeywordIndex(indexPath)
			Expect(reloaded.Count()).To(Equal(2))
			Expect(reloaded.Documents()).To(Equal(index.Documents()))

			results := reloaded.Retrieve("persistent", 5)
			Expect(results).ToNot(BeEmpty())
		})

		It("starts empty when the state file is missing", func() {
			fresh := NewKeywordIndex(filepath.Join(tempDir, "missing.json"))
			Expect(fresh.Count()).To(BeZero())
		})
	})

	Describe("Reset", func() {
		It("clears documents and the state file", func() {
			index.AddDocuments([]string{"to be removed"})
			index.Reset()

			Expect(index.Count()).To(BeZero())
			Expect(index.Retrieve("removed", 5)).To(BeEmpty())

			_, err := os.Stat(indexPath)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("treats an empty batch after a reset as a no-op", func() {
			index.AddDocuments([]string{"old"})
			index.Reset()

			Expect(index.AddDocuments([]string{})).To(BeZero())
			Expect(index.Retrieve("old", 5)).To(BeEmpty())
		})

		It("accepts new documents after a reset", func() {
			index.AddDocuments([]string{"old"})
			index.Reset()
			added := index.AddDocuments([]string{"new content"})
			Expect(added).To(Equal(1))
		})
	})
})
