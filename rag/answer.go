package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	// maxContextChars bounds the retrieved context joined into a prompt.
	maxContextChars = 3500

	// noAnswerMessage is the fixed refusal the model is instructed to use
	// and that we return ourselves when there is no context at all.
	noAnswerMessage = "I can't find that information in the provided documents."
)

const answerPromptTemplate = `You are a document question-answering assistant.

Rules:
- ONLY use the given context.
- Be concise and factually accurate.
- If multiple relevant points exist, summarize briefly.
- If information is not present, respond exactly:
  %q

Context:
%s

Question:
%s

Answer:`

// Answer is the response payload for a question, either generated fresh or
// served from the cache.
type Answer struct {
	Question    string    `json:"question"`
	ContextUsed []string  `json:"context_used"`
	Answer      string    `json:"answer"`
	Timestamp   time.Time `json:"timestamp"`
	Cached      bool      `json:"cached,omitempty"`
}

// AnswerGenerator produces grounded answers from retrieved context with a
// chat model.
type AnswerGenerator struct {
	client *openai.Client
	model  string
}

// NewAnswerGenerator creates an answer generator using the given chat
// model.
func NewAnswerGenerator(client *openai.Client, model string) *AnswerGenerator {
	return &AnswerGenerator{client: client, model: model}
}

// GenerateAnswer joins the context chunks within the prompt budget and
// asks the model to answer the question from them alone.
func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, contexts []string, question string) (string, error) {
	joined := joinContexts(contexts, maxContextChars)
	if strings.TrimSpace(joined) == "" {
		return noAnswerMessage, nil
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(answerPromptTemplate, noAnswerMessage, joined, question),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// joinContexts concatenates chunks with blank-line separators, stopping
// before the total exceeds maxChars. A first chunk that alone exceeds the
// budget is clipped rather than dropped, so retrieved context is never
// discarded wholesale.
func joinContexts(chunks []string, maxChars int) string {
	var b strings.Builder
	for _, chunk := range chunks {
		if b.Len()+len(chunk) > maxChars {
			if b.Len() == 0 {
				return clipText(chunk, maxChars)
			}
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(chunk)
	}
	return b.String()
}
