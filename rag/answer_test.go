package rag_test

import (
	"context"

	. "github.com/astramind/astramind/rag"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AnswerGenerator", func() {
	It("refuses without calling the model when there is no context", func() {
		g := NewAnswerGenerator(nil, "any-model")

		answer, err := g.GenerateAnswer(context.Background(), nil, "what is the answer?")
		Expect(err).ToNot(HaveOccurred())
		Expect(answer).To(Equal("I can't find that information in the provided documents."))
	})

	It("treats whitespace-only context as empty", func() {
		g := NewAnswerGenerator(nil, "any-model")

		answer, err := g.GenerateAnswer(context.Background(), []string{"   ", "\n"}, "question")
		Expect(err).ToNot(HaveOccurred())
		Expect(answer).To(Equal("I can't find that information in the provided documents."))
	})
})
